package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store/memtree"
)

func TestHubLoadPopulatesCatalog(t *testing.T) {
	ctx := context.Background()
	tree := memtree.New()
	require.NoError(t, tree.Set(ctx, model.ColProducts, "p1", model.Product{Name: "Kopi", Price: 15_000, Stock: 10}))
	require.NoError(t, tree.Set(ctx, model.ColCustomers, "c1", model.Customer{Name: "Budi"}))
	require.NoError(t, tree.Set(ctx, model.ColSettings, "tax", model.TaxSetting{Rate: 11}))

	hub := New(tree, zerolog.Nop(), Options{})
	require.NoError(t, hub.Load(ctx))

	snap := hub.Catalog()
	require.Len(t, snap.Products, 1)
	require.Equal(t, "p1", snap.Products["p1"].ID)
	require.Equal(t, int64(15_000), snap.Products["p1"].Price)
	require.Len(t, snap.Customers, 1)
	require.Equal(t, 1100, snap.TaxRateBps)
	require.Equal(t, uint64(1), snap.Version)
}

func TestHubLoadWithoutTaxSetting(t *testing.T) {
	ctx := context.Background()
	tree := memtree.New()

	hub := New(tree, zerolog.Nop(), Options{})
	require.NoError(t, hub.Load(ctx))
	require.Equal(t, 0, hub.Catalog().TaxRateBps)
}

func TestHubRunReloadsOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree := memtree.New()

	hub := New(tree, zerolog.Nop(), Options{RefreshInterval: time.Hour})
	require.NoError(t, hub.Load(ctx))
	before := hub.Catalog().Version

	go hub.Run(ctx)
	// Give the watcher a moment to subscribe before writing.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, tree.Set(ctx, model.ColProducts, "p1", model.Product{Name: "Teh", Price: 5_000, Stock: 3}))

	require.Eventually(t, func() bool {
		snap := hub.Catalog()
		return snap.Version > before && len(snap.Products) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
