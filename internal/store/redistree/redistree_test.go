package redistree

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s, err := New(client, Options{Prefix: "test"})
	require.NoError(t, err)
	return s
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	product := model.Product{ID: "p1", Name: "Kopi Bubuk", Price: 25_000, Stock: 10}
	require.NoError(t, s.Set(ctx, model.ColProducts, "p1", product))

	var got model.Product
	require.NoError(t, s.Get(ctx, model.ColProducts, "p1", &got))
	require.Equal(t, product, got)
}

func TestGetMissing(t *testing.T) {
	s := newStore(t)
	var got model.Product
	err := s.Get(context.Background(), model.ColProducts, "nope", &got)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPushAssignsKey(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.Push(ctx, model.ColSales, model.Sale{Total: 5_000})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	docs, err := s.List(ctx, model.ColSales)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Contains(t, docs, id)
}

func TestUpdateMergesFields(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, model.ColSales, "s1", model.Sale{PaymentStatus: model.StatusUnpaid, Total: 9_000}))
	require.NoError(t, s.Update(ctx, model.ColSales, "s1", map[string]any{
		"paymentStatus": model.StatusPaid,
		"paidDate":      int64(1_700_000_000_000),
	}))

	var got model.Sale
	require.NoError(t, s.Get(ctx, model.ColSales, "s1", &got))
	require.Equal(t, model.StatusPaid, got.PaymentStatus)
	require.Equal(t, int64(1_700_000_000_000), got.PaidDate)
	require.Equal(t, int64(9_000), got.Total)
}

func TestUpdateMissing(t *testing.T) {
	s := newStore(t)
	err := s.Update(context.Background(), model.ColSales, "nope", map[string]any{"paymentStatus": "paid"})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, model.ColProducts, "p1", model.Product{ID: "p1"}))
	require.NoError(t, s.Delete(ctx, model.ColProducts, "p1"))
	require.NoError(t, s.Delete(ctx, model.ColProducts, "p1"))
}

func TestAddToFieldDecrementsStock(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, model.ColProducts, "p1", model.Product{ID: "p1", Stock: 5}))

	left, err := s.AddToField(ctx, model.ColProducts, "p1", "stock", -3, 0)
	require.NoError(t, err)
	require.Equal(t, int64(2), left)

	_, err = s.AddToField(ctx, model.ColProducts, "p1", "stock", -3, 0)
	require.ErrorIs(t, err, store.ErrConditionFailed)

	var got model.Product
	require.NoError(t, s.Get(ctx, model.ColProducts, "p1", &got))
	require.Equal(t, int64(2), got.Stock)
}

func TestWatchSignalsChanges(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := s.Watch(ctx, model.ColProducts)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, model.ColProducts, "p1", model.Product{ID: "p1"}))
	require.NoError(t, s.Set(ctx, model.ColSales, "s1", model.Sale{}))

	select {
	case change := <-changes:
		require.Equal(t, model.ColProducts, change.Collection)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change signal")
	}
}
