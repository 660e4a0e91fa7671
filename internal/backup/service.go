// Package backup exports and restores the full dataset. Exports can be
// served inline or written to the backups collection by the worker.
package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// Service implements backup operations against the tree store.
type Service struct {
	tree   store.Tree
	logger zerolog.Logger

	// Now is injectable for tests.
	Now func() time.Time
}

// NewService constructs a backup service.
func NewService(tree store.Tree, logger zerolog.Logger) (*Service, error) {
	if tree == nil {
		return nil, errors.New("backup: tree is required")
	}
	return &Service{tree: tree, logger: logger, Now: time.Now}, nil
}

// Export assembles a full-dataset snapshot.
func (s *Service) Export(ctx context.Context) (model.Backup, error) {
	var (
		backup model.Backup
		err    error
	)
	if backup.Products, err = collect[model.Product](ctx, s.tree, model.ColProducts); err != nil {
		return model.Backup{}, err
	}
	if backup.Categories, err = collect[model.Category](ctx, s.tree, model.ColCategories); err != nil {
		return model.Backup{}, err
	}
	if backup.Customers, err = collect[model.Customer](ctx, s.tree, model.ColCustomers); err != nil {
		return model.Backup{}, err
	}
	if backup.Suppliers, err = collect[model.Supplier](ctx, s.tree, model.ColSuppliers); err != nil {
		return model.Backup{}, err
	}
	if backup.PurchaseOrders, err = collect[model.PurchaseOrder](ctx, s.tree, model.ColPurchaseOrders); err != nil {
		return model.Backup{}, err
	}
	if backup.Sales, err = collect[model.Sale](ctx, s.tree, model.ColSales); err != nil {
		return model.Backup{}, err
	}
	backup.Timestamp = s.Now().UnixMilli()
	return backup, nil
}

// StoreSnapshot exports the dataset and persists it in the backups
// collection. Used by the scheduled worker task.
func (s *Service) StoreSnapshot(ctx context.Context) (string, error) {
	backup, err := s.Export(ctx)
	if err != nil {
		return "", err
	}
	id, err := s.tree.Push(ctx, model.ColBackups, backup)
	if err != nil {
		return "", fmt.Errorf("backup: store snapshot: %w", err)
	}
	s.logger.Info().Str("backup_id", id).Int("products", len(backup.Products)).Int("sales", len(backup.Sales)).Msg("backup stored")
	return id, nil
}

// Import replaces the dataset with the snapshot's contents. Collections
// absent from the snapshot are left untouched.
func (s *Service) Import(ctx context.Context, backup model.Backup) error {
	if err := replace(ctx, s.tree, model.ColProducts, backup.Products); err != nil {
		return err
	}
	if err := replace(ctx, s.tree, model.ColCategories, backup.Categories); err != nil {
		return err
	}
	if err := replace(ctx, s.tree, model.ColCustomers, backup.Customers); err != nil {
		return err
	}
	if err := replace(ctx, s.tree, model.ColSuppliers, backup.Suppliers); err != nil {
		return err
	}
	if err := replace(ctx, s.tree, model.ColPurchaseOrders, backup.PurchaseOrders); err != nil {
		return err
	}
	if err := replace(ctx, s.tree, model.ColSales, backup.Sales); err != nil {
		return err
	}
	s.logger.Info().Int64("timestamp", backup.Timestamp).Msg("backup imported")
	return nil
}

func collect[T any](ctx context.Context, tree store.Tree, collection string) (map[string]T, error) {
	raw, err := tree.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("backup: export %s: %w", collection, err)
	}
	return store.DecodeAll[T](raw, nil), nil
}

func replace[T any](ctx context.Context, tree store.Tree, collection string, docs map[string]T) error {
	if docs == nil {
		return nil
	}
	existing, err := tree.List(ctx, collection)
	if err != nil {
		return fmt.Errorf("backup: import %s: %w", collection, err)
	}
	for id := range existing {
		if _, keep := docs[id]; keep {
			continue
		}
		if err := tree.Delete(ctx, collection, id); err != nil {
			return fmt.Errorf("backup: import %s: %w", collection, err)
		}
	}
	for id, doc := range docs {
		if err := tree.Set(ctx, collection, id, doc); err != nil {
			return fmt.Errorf("backup: import %s: %w", collection, err)
		}
	}
	return nil
}
