package backup

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store/memtree"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := memtree.New()
	require.NoError(t, source.Set(ctx, model.ColProducts, "p1", model.Product{Name: "Kopi", Price: 15_000, Stock: 10}))
	require.NoError(t, source.Set(ctx, model.ColCustomers, "c1", model.Customer{Name: "Budi"}))
	require.NoError(t, source.Set(ctx, model.ColSales, "s1", model.Sale{Total: 33_000, PaymentMethod: model.PaymentCash}))

	src, err := NewService(source, zerolog.Nop())
	require.NoError(t, err)
	snapshot, err := src.Export(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Products, 1)
	require.NotZero(t, snapshot.Timestamp)

	target := memtree.New()
	// Pre-existing data not present in the snapshot is removed on import.
	require.NoError(t, target.Set(ctx, model.ColProducts, "stale", model.Product{Name: "Stale"}))
	dst, err := NewService(target, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, dst.Import(ctx, snapshot))

	var product model.Product
	require.NoError(t, target.Get(ctx, model.ColProducts, "p1", &product))
	require.Equal(t, "Kopi", product.Name)
	require.Error(t, target.Get(ctx, model.ColProducts, "stale", &product))

	var sl model.Sale
	require.NoError(t, target.Get(ctx, model.ColSales, "s1", &sl))
	require.Equal(t, int64(33_000), sl.Total)
}

func TestStoreSnapshotWritesBackupDocument(t *testing.T) {
	ctx := context.Background()
	tree := memtree.New()
	require.NoError(t, tree.Set(ctx, model.ColProducts, "p1", model.Product{Name: "Kopi"}))

	svc, err := NewService(tree, zerolog.Nop())
	require.NoError(t, err)
	id, err := svc.StoreSnapshot(ctx)
	require.NoError(t, err)

	var stored model.Backup
	require.NoError(t, tree.Get(ctx, model.ColBackups, id, &stored))
	require.Len(t, stored.Products, 1)
}
