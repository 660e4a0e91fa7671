package purchase

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store/memtree"
)

func newService(t *testing.T) (*Service, *memtree.Store, *events.Bus) {
	t.Helper()
	tree := memtree.New()
	bus := events.NewBus(tree, zerolog.Nop())
	svc, err := NewService(Config{Tree: tree, Bus: bus, Logger: zerolog.Nop()})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, tree.Set(ctx, model.ColSuppliers, "s1", model.Supplier{Name: "PT Sumber"}))
	require.NoError(t, tree.Set(ctx, model.ColProducts, "p1", model.Product{Name: "Kopi", Stock: 5}))
	return svc, tree, bus
}

func createOrder(t *testing.T, svc *Service) model.PurchaseOrder {
	t.Helper()
	po, err := svc.Create(context.Background(), model.PurchaseOrder{
		SupplierID: "s1",
		Items:      []model.PurchaseOrderItem{{ProductID: "p1", Quantity: 10, Cost: 4_000}},
	})
	require.NoError(t, err)
	return po
}

func TestCreateComputesTotals(t *testing.T) {
	svc, _, _ := newService(t)
	po := createOrder(t, svc)
	require.Equal(t, model.POPending, po.Status)
	require.Equal(t, "PT Sumber", po.SupplierName)
	require.Equal(t, int64(40_000), po.TotalAmount)
	require.Equal(t, "Kopi", po.Items[0].ProductName)
	require.NotZero(t, po.OrderDate)
}

func TestReceiveIncrementsStock(t *testing.T) {
	svc, tree, bus := newService(t)
	ctx := context.Background()
	var topics []string
	bus.Subscribe(func(evt events.Event) { topics = append(topics, evt.Topic) })

	po := createOrder(t, svc)
	_, err := svc.MarkShipped(ctx, po.ID)
	require.NoError(t, err)
	received, err := svc.MarkReceived(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, model.POReceived, received.Status)
	require.NotZero(t, received.ReceivedDate)

	var product model.Product
	require.NoError(t, tree.Get(ctx, model.ColProducts, "p1", &product))
	require.Equal(t, int64(15), product.Stock)
	require.Contains(t, topics, events.TopicPurchaseReceived)
}

func TestReceivePendingOrderSkipsShippedStep(t *testing.T) {
	svc, tree, _ := newService(t)
	ctx := context.Background()
	po := createOrder(t, svc)

	received, err := svc.MarkReceived(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, model.POReceived, received.Status)
	require.Zero(t, received.ShippedDate)

	var product model.Product
	require.NoError(t, tree.Get(ctx, model.ColProducts, "p1", &product))
	require.Equal(t, int64(15), product.Stock)
}

func TestReceiveTerminalOrderRejected(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	po := createOrder(t, svc)
	_, err := svc.Cancel(ctx, po.ID)
	require.NoError(t, err)

	_, err = svc.MarkReceived(ctx, po.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelDoesNotTouchStock(t *testing.T) {
	svc, tree, _ := newService(t)
	ctx := context.Background()
	po := createOrder(t, svc)
	cancelled, err := svc.Cancel(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, model.POCancelled, cancelled.Status)

	var product model.Product
	require.NoError(t, tree.Get(ctx, model.ColProducts, "p1", &product))
	require.Equal(t, int64(5), product.Stock)
}

func TestCancelReceivedOrderRejected(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	po := createOrder(t, svc)
	_, err := svc.MarkShipped(ctx, po.ID)
	require.NoError(t, err)
	_, err = svc.MarkReceived(ctx, po.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, po.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCreateRejectsInvalidPayloads(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, model.PurchaseOrder{SupplierID: "s1"})
	require.True(t, common.IsAppError(err))

	_, err = svc.Create(ctx, model.PurchaseOrder{
		SupplierID: "s1",
		Items:      []model.PurchaseOrderItem{{ProductID: "p1", Quantity: 0, Cost: -1}},
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	require.Equal(t, "gt", details["Quantity"])
	require.Equal(t, "gte", details["Cost"])
}

func TestCreateUnknownSupplier(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Create(context.Background(), model.PurchaseOrder{
		SupplierID: "ghost",
		Items:      []model.PurchaseOrderItem{{ProductID: "p1", Quantity: 1, Cost: 100}},
	})
	require.Error(t, err)
}
