// Package customer manages customers and their per-product price overrides.
// Overrides are validated against a minimum markup over product cost at write
// time; later cost changes do not retroactively invalidate stored overrides.
package customer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// Service implements customer operations against the tree store.
type Service struct {
	tree          store.Tree
	logger        zerolog.Logger
	markupPercent int64
	validate      *validator.Validate

	// Now is injectable for tests.
	Now func() time.Time
}

// Config wires Service dependencies.
type Config struct {
	Tree store.Tree
	// MinMarkupPercent is the floor for overrides as a percentage of product
	// cost. Defaults to 115.
	MinMarkupPercent int
	Logger           zerolog.Logger
}

// NewService constructs a customer service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Tree == nil {
		return nil, errors.New("customer: tree is required")
	}
	markup := int64(cfg.MinMarkupPercent)
	if markup <= 0 {
		markup = 115
	}
	return &Service{tree: cfg.Tree, logger: cfg.Logger, markupPercent: markup, validate: validator.New(), Now: time.Now}, nil
}

// List returns customers sorted by name.
func (s *Service) List(ctx context.Context) ([]model.Customer, error) {
	raw, err := s.tree.List(ctx, model.ColCustomers)
	if err != nil {
		return nil, fmt.Errorf("customer: list: %w", err)
	}
	all := store.DecodeAll(raw, func(c *model.Customer, id string) { c.ID = id })
	customers := make([]model.Customer, 0, len(all))
	for _, c := range all {
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
	return customers, nil
}

// Get returns a single customer.
func (s *Service) Get(ctx context.Context, id string) (model.Customer, error) {
	var customer model.Customer
	if err := s.tree.Get(ctx, model.ColCustomers, id, &customer); err != nil {
		return model.Customer{}, err
	}
	customer.ID = id
	return customer, nil
}

// Create validates and stores a new customer.
func (s *Service) Create(ctx context.Context, customer model.Customer) (model.Customer, error) {
	if err := s.prepare(ctx, &customer); err != nil {
		return model.Customer{}, err
	}
	now := s.Now().UnixMilli()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	id, err := s.tree.Push(ctx, model.ColCustomers, customer)
	if err != nil {
		return model.Customer{}, fmt.Errorf("customer: create: %w", err)
	}
	customer.ID = id
	s.logger.Info().Str("customer_id", id).Str("name", customer.Name).Msg("customer created")
	return customer, nil
}

// Update validates and replaces an existing customer.
func (s *Service) Update(ctx context.Context, id string, customer model.Customer) (model.Customer, error) {
	var existing model.Customer
	if err := s.tree.Get(ctx, model.ColCustomers, id, &existing); err != nil {
		return model.Customer{}, err
	}
	if err := s.prepare(ctx, &customer); err != nil {
		return model.Customer{}, err
	}
	customer.ID = id
	customer.CreatedAt = existing.CreatedAt
	customer.UpdatedAt = s.Now().UnixMilli()
	if err := s.tree.Set(ctx, model.ColCustomers, id, customer); err != nil {
		return model.Customer{}, fmt.Errorf("customer: update: %w", err)
	}
	return customer, nil
}

// Delete removes a customer. Historical sales keep their snapshot of the name.
func (s *Service) Delete(ctx context.Context, id string) error {
	var existing model.Customer
	if err := s.tree.Get(ctx, model.ColCustomers, id, &existing); err != nil {
		return err
	}
	if err := s.tree.Delete(ctx, model.ColCustomers, id); err != nil {
		return fmt.Errorf("customer: delete: %w", err)
	}
	s.logger.Info().Str("customer_id", id).Msg("customer deleted")
	return nil
}

// PutPriceOverride sets or replaces the override for one product.
func (s *Service) PutPriceOverride(ctx context.Context, customerID, productID string, price int64) (model.Customer, error) {
	var customer model.Customer
	if err := s.tree.Get(ctx, model.ColCustomers, customerID, &customer); err != nil {
		return model.Customer{}, err
	}
	customer.ID = customerID
	if err := s.validateOverride(ctx, model.CustomerPrice{ProductID: productID, CustomPrice: price}); err != nil {
		return model.Customer{}, err
	}
	replaced := false
	for i := range customer.CustomPrices {
		if customer.CustomPrices[i].ProductID == productID {
			customer.CustomPrices[i].CustomPrice = price
			replaced = true
			break
		}
	}
	if !replaced {
		customer.CustomPrices = append(customer.CustomPrices, model.CustomerPrice{ProductID: productID, CustomPrice: price})
	}
	customer.UpdatedAt = s.Now().UnixMilli()
	if err := s.tree.Set(ctx, model.ColCustomers, customerID, customer); err != nil {
		return model.Customer{}, fmt.Errorf("customer: put override: %w", err)
	}
	return customer, nil
}

// RemovePriceOverride drops the override for a product. Removing an absent
// override is a no-op.
func (s *Service) RemovePriceOverride(ctx context.Context, customerID, productID string) (model.Customer, error) {
	var customer model.Customer
	if err := s.tree.Get(ctx, model.ColCustomers, customerID, &customer); err != nil {
		return model.Customer{}, err
	}
	customer.ID = customerID
	kept := customer.CustomPrices[:0]
	for _, override := range customer.CustomPrices {
		if override.ProductID != productID {
			kept = append(kept, override)
		}
	}
	if len(kept) == len(customer.CustomPrices) {
		return customer, nil
	}
	customer.CustomPrices = kept
	customer.UpdatedAt = s.Now().UnixMilli()
	if err := s.tree.Set(ctx, model.ColCustomers, customerID, customer); err != nil {
		return model.Customer{}, fmt.Errorf("customer: remove override: %w", err)
	}
	return customer, nil
}

func (s *Service) prepare(ctx context.Context, customer *model.Customer) error {
	customer.Name = strings.TrimSpace(customer.Name)
	if err := common.ValidateStruct(s.validate, customer); err != nil {
		return err
	}
	seen := map[string]struct{}{}
	for _, override := range customer.CustomPrices {
		if _, dup := seen[override.ProductID]; dup {
			return common.NewAppError("BAD_REQUEST", "duplicate price override for product", http.StatusBadRequest, nil)
		}
		seen[override.ProductID] = struct{}{}
		if err := s.validateOverride(ctx, override); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) validateOverride(ctx context.Context, override model.CustomerPrice) error {
	if err := common.ValidateStruct(s.validate, override); err != nil {
		return err
	}
	var product model.Product
	if err := s.tree.Get(ctx, model.ColProducts, override.ProductID, &product); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return common.NewAppError("BAD_REQUEST", "override references unknown product", http.StatusBadRequest, nil)
		}
		return err
	}
	// Cross-multiplied so a fractional floor is enforced exactly.
	if override.CustomPrice*100 < product.Cost*s.markupPercent {
		return common.NewAppError("BAD_REQUEST",
			fmt.Sprintf("override for %s is below the minimum of %d%% of cost", product.Name, s.markupPercent),
			http.StatusBadRequest, nil)
	}
	return nil
}
