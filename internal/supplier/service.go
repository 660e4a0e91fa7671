// Package supplier manages purchase-order counterparties.
package supplier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// Service implements supplier operations against the tree store.
type Service struct {
	tree     store.Tree
	logger   zerolog.Logger
	validate *validator.Validate

	// Now is injectable for tests.
	Now func() time.Time
}

// NewService constructs a supplier service.
func NewService(tree store.Tree, logger zerolog.Logger) (*Service, error) {
	if tree == nil {
		return nil, errors.New("supplier: tree is required")
	}
	return &Service{tree: tree, logger: logger, validate: validator.New(), Now: time.Now}, nil
}

// List returns suppliers sorted by name.
func (s *Service) List(ctx context.Context) ([]model.Supplier, error) {
	raw, err := s.tree.List(ctx, model.ColSuppliers)
	if err != nil {
		return nil, fmt.Errorf("supplier: list: %w", err)
	}
	all := store.DecodeAll(raw, func(sup *model.Supplier, id string) { sup.ID = id })
	suppliers := make([]model.Supplier, 0, len(all))
	for _, sup := range all {
		suppliers = append(suppliers, sup)
	}
	sort.Slice(suppliers, func(i, j int) bool { return suppliers[i].Name < suppliers[j].Name })
	return suppliers, nil
}

// Get returns a single supplier.
func (s *Service) Get(ctx context.Context, id string) (model.Supplier, error) {
	var supplier model.Supplier
	if err := s.tree.Get(ctx, model.ColSuppliers, id, &supplier); err != nil {
		return model.Supplier{}, err
	}
	supplier.ID = id
	return supplier, nil
}

// Create stores a new supplier.
func (s *Service) Create(ctx context.Context, supplier model.Supplier) (model.Supplier, error) {
	supplier.Name = strings.TrimSpace(supplier.Name)
	if err := common.ValidateStruct(s.validate, supplier); err != nil {
		return model.Supplier{}, err
	}
	now := s.Now().UnixMilli()
	supplier.CreatedAt = now
	supplier.UpdatedAt = now
	id, err := s.tree.Push(ctx, model.ColSuppliers, supplier)
	if err != nil {
		return model.Supplier{}, fmt.Errorf("supplier: create: %w", err)
	}
	supplier.ID = id
	s.logger.Info().Str("supplier_id", id).Str("name", supplier.Name).Msg("supplier created")
	return supplier, nil
}

// Update replaces an existing supplier.
func (s *Service) Update(ctx context.Context, id string, supplier model.Supplier) (model.Supplier, error) {
	var existing model.Supplier
	if err := s.tree.Get(ctx, model.ColSuppliers, id, &existing); err != nil {
		return model.Supplier{}, err
	}
	supplier.Name = strings.TrimSpace(supplier.Name)
	if err := common.ValidateStruct(s.validate, supplier); err != nil {
		return model.Supplier{}, err
	}
	supplier.ID = id
	supplier.CreatedAt = existing.CreatedAt
	supplier.UpdatedAt = s.Now().UnixMilli()
	if err := s.tree.Set(ctx, model.ColSuppliers, id, supplier); err != nil {
		return model.Supplier{}, fmt.Errorf("supplier: update: %w", err)
	}
	return supplier, nil
}

// Delete removes a supplier. Past purchase orders keep their snapshot of the name.
func (s *Service) Delete(ctx context.Context, id string) error {
	var existing model.Supplier
	if err := s.tree.Get(ctx, model.ColSuppliers, id, &existing); err != nil {
		return err
	}
	if err := s.tree.Delete(ctx, model.ColSuppliers, id); err != nil {
		return fmt.Errorf("supplier: delete: %w", err)
	}
	return nil
}
