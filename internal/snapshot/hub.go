// Package snapshot maintains an in-memory working set of the catalog:
// products, customers, and the tax rate. The hub reloads the snapshot when
// the store signals a change and on a periodic timer, so checkout reads
// prices from memory instead of hitting the store per keystroke.
package snapshot

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/pricing"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// Catalog is an immutable view of the working set. Callers must not mutate
// the maps.
type Catalog struct {
	Version    uint64
	Products   map[string]model.Product
	Customers  map[string]model.Customer
	TaxRateBps int
	LoadedAt   time.Time
}

// Hub owns the current catalog snapshot.
type Hub struct {
	tree    store.Tree
	logger  zerolog.Logger
	refresh time.Duration

	current atomic.Pointer[Catalog]
	version atomic.Uint64

	// Now is injectable for tests.
	Now func() time.Time
}

// Options configures a Hub.
type Options struct {
	// RefreshInterval bounds staleness when change signals are missed.
	RefreshInterval time.Duration
}

// New constructs a Hub. Call Load once before serving, then Run in a goroutine.
func New(tree store.Tree, logger zerolog.Logger, opts Options) *Hub {
	refresh := opts.RefreshInterval
	if refresh <= 0 {
		refresh = time.Minute
	}
	h := &Hub{
		tree:    tree,
		logger:  logger,
		refresh: refresh,
		Now:     time.Now,
	}
	h.current.Store(&Catalog{
		Products:  map[string]model.Product{},
		Customers: map[string]model.Customer{},
	})
	return h
}

// Catalog returns the current snapshot. The returned value is never nil.
func (h *Hub) Catalog() *Catalog {
	return h.current.Load()
}

// Load reads the full working set from the store and swaps it in.
func (h *Hub) Load(ctx context.Context) error {
	products, err := loadCollection[model.Product](ctx, h.tree, model.ColProducts, func(p *model.Product, id string) { p.ID = id })
	if err != nil {
		return err
	}
	customers, err := loadCollection[model.Customer](ctx, h.tree, model.ColCustomers, func(c *model.Customer, id string) { c.ID = id })
	if err != nil {
		return err
	}

	taxBps := 0
	var tax model.TaxSetting
	switch err := h.tree.Get(ctx, model.ColSettings, "tax", &tax); {
	case err == nil:
		taxBps = pricing.PercentToBps(tax.Rate)
	case errors.Is(err, store.ErrNotFound):
		// no tax configured yet
	default:
		return err
	}

	snap := &Catalog{
		Version:    h.version.Add(1),
		Products:   products,
		Customers:  customers,
		TaxRateBps: taxBps,
		LoadedAt:   h.Now(),
	}
	h.current.Store(snap)
	h.logger.Debug().
		Uint64("version", snap.Version).
		Int("products", len(products)).
		Int("customers", len(customers)).
		Int("tax_bps", taxBps).
		Msg("catalog snapshot loaded")
	return nil
}

// Run watches the store for changes and refreshes the snapshot until ctx is
// cancelled. Reload failures are logged and retried on the next trigger.
func (h *Hub) Run(ctx context.Context) {
	changes, err := h.tree.Watch(ctx, model.ColProducts, model.ColCustomers, model.ColSettings)
	if err != nil {
		h.logger.Error().Err(err).Msg("snapshot watch unavailable, falling back to periodic refresh")
		changes = nil
	}
	ticker := time.NewTicker(h.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			h.reload(ctx, "change")
		case <-ticker.C:
			h.reload(ctx, "interval")
		}
	}
}

func (h *Hub) reload(ctx context.Context, trigger string) {
	if err := h.Load(ctx); err != nil {
		h.logger.Error().Err(err).Str("trigger", trigger).Msg("catalog snapshot reload failed")
		return
	}
	if obs.CatalogSnapshotReloads != nil {
		obs.CatalogSnapshotReloads.WithLabelValues(trigger).Inc()
	}
}

func loadCollection[T any](ctx context.Context, tree store.Tree, collection string, setID func(*T, string)) (map[string]T, error) {
	raw, err := tree.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	return store.DecodeAll(raw, setID), nil
}
