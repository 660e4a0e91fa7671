package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/snapshot"
	"github.com/noah-isme/backend-kasir/internal/store/memtree"
)

type fixture struct {
	tree  *memtree.Store
	hub   *snapshot.Hub
	carts *cart.Service
	bus   *events.Bus
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	tree := memtree.New()
	require.NoError(t, tree.Set(ctx, model.ColProducts, "p1", model.Product{Name: "Kopi Susu", Price: 15_000, Stock: 10, MinStock: 2}))
	require.NoError(t, tree.Set(ctx, model.ColProducts, "p2", model.Product{Name: "Roti Bakar", Price: 12_000, Stock: 3, MinStock: 1}))
	require.NoError(t, tree.Set(ctx, model.ColCustomers, "c1", model.Customer{
		Name:         "Budi",
		CustomPrices: []model.CustomerPrice{{ProductID: "p1", CustomPrice: 13_000}},
	}))
	require.NoError(t, tree.Set(ctx, model.ColSettings, "tax", model.TaxSetting{Rate: 10}))

	hub := snapshot.New(tree, zerolog.Nop(), snapshot.Options{})
	require.NoError(t, hub.Load(ctx))

	carts := cart.NewService(hub, zerolog.Nop(), time.Hour)
	bus := events.NewBus(tree, zerolog.Nop())
	svc, err := NewService(Config{Tree: tree, Carts: carts, Hub: hub, Bus: bus, Logger: zerolog.Nop(), DefaultDueDays: 30})
	require.NoError(t, err)
	return &fixture{tree: tree, hub: hub, carts: carts, bus: bus, svc: svc}
}

func (f *fixture) cartWith(t *testing.T, customerID string, items map[string]int64) string {
	t.Helper()
	id := f.carts.Create()
	if customerID != "" {
		_, err := f.carts.SetCustomer(id, customerID)
		require.NoError(t, err)
	}
	for productID, qty := range items {
		_, err := f.carts.AddItem(id, productID, qty)
		require.NoError(t, err)
	}
	return id
}

func TestFinalizeCashSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cartID := f.cartWith(t, "", map[string]int64{"p1": 2})

	result, err := f.svc.Finalize(ctx, Request{CartID: cartID, PaymentMethod: model.PaymentCash})
	require.NoError(t, err)
	require.NotEmpty(t, result.SaleID)
	require.Equal(t, int64(30_000), result.Sale.Subtotal)
	require.Equal(t, int64(3_000), result.Sale.Tax)
	require.Equal(t, int64(33_000), result.Sale.Total)
	require.Equal(t, model.StatusPaid, result.Sale.PaymentStatus)
	require.Zero(t, result.Sale.DueDate)

	var stored model.Sale
	require.NoError(t, f.tree.Get(ctx, model.ColSales, result.SaleID, &stored))
	require.Equal(t, result.Sale.Total, stored.Total)

	var product model.Product
	require.NoError(t, f.tree.Get(ctx, model.ColProducts, "p1", &product))
	require.Equal(t, int64(8), product.Stock)

	// Session is destroyed on success.
	_, err = f.carts.Snapshot(cartID)
	require.ErrorIs(t, err, cart.ErrCartNotFound)
}

func TestFinalizeCreditSaleSetsDueDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cartID := f.cartWith(t, "c1", map[string]int64{"p1": 1})

	fixed := time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)
	f.svc.Now = func() time.Time { return fixed }

	result, err := f.svc.Finalize(ctx, Request{CartID: cartID, PaymentMethod: model.PaymentCredit, DueDays: 14})
	require.NoError(t, err)
	require.Equal(t, model.StatusUnpaid, result.Sale.PaymentStatus)
	require.Equal(t, fixed.UnixMilli()+14*dayMillis, result.Sale.DueDate)
	// Customer override applies.
	require.Equal(t, int64(13_000), result.Sale.Subtotal)
	require.Equal(t, "Budi", result.Sale.CustomerName)
	require.Equal(t, "10/05/2024 14:30", result.Receipt.Date)
}

func TestFinalizeCreditWithoutCustomer(t *testing.T) {
	f := newFixture(t)
	cartID := f.cartWith(t, "", map[string]int64{"p1": 1})

	_, err := f.svc.Finalize(context.Background(), Request{CartID: cartID, PaymentMethod: model.PaymentCredit})
	require.ErrorIs(t, err, ErrMissingCustomer)
}

func TestFinalizeEmptyCart(t *testing.T) {
	f := newFixture(t)
	cartID := f.carts.Create()

	_, err := f.svc.Finalize(context.Background(), Request{CartID: cartID, PaymentMethod: model.PaymentCash})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestFinalizeStockConflictCompensates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cartID := f.cartWith(t, "", map[string]int64{"p1": 2, "p2": 3})

	// Another sale consumes p2 after the cart was built.
	_, err := f.tree.AddToField(ctx, model.ColProducts, "p2", "stock", -2, 0)
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, Request{CartID: cartID, PaymentMethod: model.PaymentCash})
	require.ErrorIs(t, err, ErrStockConflict)

	// p1's decrement was rolled back, no sale was stored.
	var p1 model.Product
	require.NoError(t, f.tree.Get(ctx, model.ColProducts, "p1", &p1))
	require.Equal(t, int64(10), p1.Stock)
	sales, err := f.tree.List(ctx, model.ColSales)
	require.NoError(t, err)
	require.Empty(t, sales)

	// The cart survives so the cashier can adjust it.
	_, err = f.carts.Snapshot(cartID)
	require.NoError(t, err)
}

func TestFinalizeEmitsLowStockEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var topics []string
	f.bus.Subscribe(func(evt events.Event) { topics = append(topics, evt.Topic) })

	cartID := f.cartWith(t, "", map[string]int64{"p1": 9})
	_, err := f.svc.Finalize(ctx, Request{CartID: cartID, PaymentMethod: model.PaymentCash})
	require.NoError(t, err)

	require.Contains(t, topics, events.TopicProductLowStock)
	require.Contains(t, topics, events.TopicSaleCreated)
}

func TestFinalizeLowStockUsesDefaultThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tree.Set(ctx, model.ColProducts, "p3", model.Product{Name: "Gula", Price: 8_000, Stock: 6}))
	require.NoError(t, f.hub.Load(ctx))

	svc, err := NewService(Config{
		Tree:            f.tree,
		Carts:           f.carts,
		Hub:             f.hub,
		Bus:             f.bus,
		Logger:          zerolog.Nop(),
		DefaultDueDays:  30,
		LowStockDefault: 5,
	})
	require.NoError(t, err)

	var topics []string
	f.bus.Subscribe(func(evt events.Event) { topics = append(topics, evt.Topic) })

	cartID := f.cartWith(t, "", map[string]int64{"p3": 2})
	_, err = svc.Finalize(ctx, Request{CartID: cartID, PaymentMethod: model.PaymentCash})
	require.NoError(t, err)
	require.Contains(t, topics, events.TopicProductLowStock)
}

func TestFinalizeInvalidPaymentMethod(t *testing.T) {
	f := newFixture(t)
	cartID := f.cartWith(t, "", map[string]int64{"p1": 1})

	_, err := f.svc.Finalize(context.Background(), Request{CartID: cartID, PaymentMethod: "barter"})
	require.ErrorIs(t, err, ErrInvalidPayment)
}
