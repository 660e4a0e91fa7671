package receivable

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

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
	return svc, tree, bus
}

func seedSale(t *testing.T, tree *memtree.Store, id string, sl model.Sale) {
	t.Helper()
	require.NoError(t, tree.Set(context.Background(), model.ColSales, id, sl))
}

func TestListOnlyCreditSales(t *testing.T) {
	svc, tree, _ := newService(t)
	seedSale(t, tree, "s1", model.Sale{PaymentMethod: model.PaymentCash, PaymentStatus: model.StatusPaid, Total: 10_000})
	seedSale(t, tree, "s2", model.Sale{PaymentMethod: model.PaymentCredit, PaymentStatus: model.StatusUnpaid, Total: 20_000, DueDate: 200})
	seedSale(t, tree, "s3", model.Sale{PaymentMethod: model.PaymentCredit, PaymentStatus: model.StatusUnpaid, Total: 30_000, DueDate: 100})

	receivables, err := svc.List(context.Background(), ListParams{})
	require.NoError(t, err)
	require.Len(t, receivables, 2)
	// Sorted by due date, soonest first.
	require.Equal(t, "s3", receivables[0].ID)
}

func TestOutstandingSummary(t *testing.T) {
	svc, tree, _ := newService(t)
	now := time.Now()
	svc.Now = func() time.Time { return now }
	seedSale(t, tree, "s1", model.Sale{PaymentMethod: model.PaymentCredit, PaymentStatus: model.StatusUnpaid, Total: 20_000, DueDate: now.UnixMilli() - 1000})
	seedSale(t, tree, "s2", model.Sale{PaymentMethod: model.PaymentCredit, PaymentStatus: model.StatusUnpaid, Total: 30_000, DueDate: now.UnixMilli() + 100_000})
	seedSale(t, tree, "s3", model.Sale{PaymentMethod: model.PaymentCredit, PaymentStatus: model.StatusPaid, Total: 99_000})

	summary, err := svc.Outstanding(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(50_000), summary.OutstandingTotal)
	require.Equal(t, 2, summary.OutstandingCount)
	require.Equal(t, int64(20_000), summary.OverdueTotal)
	require.Equal(t, 1, summary.OverdueCount)
}

func TestMarkPaidSettlesOnce(t *testing.T) {
	svc, tree, bus := newService(t)
	ctx := context.Background()
	var paidEvents int
	bus.Subscribe(func(evt events.Event) {
		if evt.Topic == events.TopicSalePaid {
			paidEvents++
		}
	})
	seedSale(t, tree, "s1", model.Sale{PaymentMethod: model.PaymentCredit, PaymentStatus: model.StatusUnpaid, Total: 20_000})

	settled, err := svc.MarkPaid(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, model.StatusPaid, settled.PaymentStatus)
	require.NotZero(t, settled.PaidDate)
	firstPaidDate := settled.PaidDate

	// Second settlement is a no-op and keeps the original paid date.
	again, err := svc.MarkPaid(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, firstPaidDate, again.PaidDate)
	require.Equal(t, 1, paidEvents)
}

func TestMarkPaidRejectsNonCredit(t *testing.T) {
	svc, tree, _ := newService(t)
	seedSale(t, tree, "s1", model.Sale{PaymentMethod: model.PaymentCash, PaymentStatus: model.StatusPaid, Total: 10_000})

	_, err := svc.MarkPaid(context.Background(), "s1")
	require.ErrorIs(t, err, ErrNotCredit)
}
