// Package catalog manages products and categories. Bundle products derive
// their cost from constituent products at write time.
package catalog

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
	"github.com/noah-isme/backend-kasir/internal/pricing"
	"github.com/noah-isme/backend-kasir/internal/store"
)

const (
	productListCacheKey  = "catalog:products"
	categoryListCacheKey = "catalog:categories"
)

// Service implements catalog operations against the tree store.
type Service struct {
	tree     store.Tree
	cache    *Cache
	logger   zerolog.Logger
	validate *validator.Validate

	// Now is injectable for tests.
	Now func() time.Time
}

// Config wires Service dependencies.
type Config struct {
	Tree   store.Tree
	Cache  *Cache
	Logger zerolog.Logger
}

// NewService constructs a catalog service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Tree == nil {
		return nil, errors.New("catalog: tree is required")
	}
	return &Service{tree: cfg.Tree, cache: cfg.Cache, logger: cfg.Logger, validate: validator.New(), Now: time.Now}, nil
}

// ListParams filters product listings.
type ListParams struct {
	Query      string
	CategoryID string
}

// ListProducts returns products sorted by name. Unfiltered listings are
// served from cache when possible.
func (s *Service) ListProducts(ctx context.Context, params ListParams) ([]model.Product, error) {
	useCache := params.Query == "" && params.CategoryID == ""
	if useCache {
		var cached []model.Product
		if ok, err := s.cache.GetJSON(ctx, productListCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	raw, err := s.tree.List(ctx, model.ColProducts)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	all := store.DecodeAll(raw, func(p *model.Product, id string) { p.ID = id })
	query := strings.ToLower(strings.TrimSpace(params.Query))
	products := make([]model.Product, 0, len(all))
	for _, p := range all {
		if params.CategoryID != "" && p.CategoryID != params.CategoryID {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Barcode), query) &&
			!strings.Contains(strings.ToLower(p.SKU), query) {
			continue
		}
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	if useCache {
		_ = s.cache.SetJSON(ctx, productListCacheKey, products)
	}
	return products, nil
}

// GetProduct returns a single product.
func (s *Service) GetProduct(ctx context.Context, id string) (model.Product, error) {
	var product model.Product
	if err := s.tree.Get(ctx, model.ColProducts, id, &product); err != nil {
		return model.Product{}, err
	}
	product.ID = id
	return product, nil
}

// CreateProduct validates and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, product model.Product) (model.Product, error) {
	if err := s.prepareProduct(ctx, &product); err != nil {
		return model.Product{}, err
	}
	now := s.Now().UnixMilli()
	product.CreatedAt = now
	product.UpdatedAt = now
	id, err := s.tree.Push(ctx, model.ColProducts, product)
	if err != nil {
		return model.Product{}, fmt.Errorf("catalog: create product: %w", err)
	}
	product.ID = id
	s.cache.Invalidate(ctx, productListCacheKey)
	s.logger.Info().Str("product_id", id).Str("name", product.Name).Msg("product created")
	return product, nil
}

// UpdateProduct validates and replaces an existing product.
func (s *Service) UpdateProduct(ctx context.Context, id string, product model.Product) (model.Product, error) {
	var existing model.Product
	if err := s.tree.Get(ctx, model.ColProducts, id, &existing); err != nil {
		return model.Product{}, err
	}
	if err := s.prepareProduct(ctx, &product); err != nil {
		return model.Product{}, err
	}
	product.ID = id
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = s.Now().UnixMilli()
	if err := s.tree.Set(ctx, model.ColProducts, id, product); err != nil {
		return model.Product{}, fmt.Errorf("catalog: update product: %w", err)
	}
	s.cache.Invalidate(ctx, productListCacheKey)
	return product, nil
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	var existing model.Product
	if err := s.tree.Get(ctx, model.ColProducts, id, &existing); err != nil {
		return err
	}
	if err := s.tree.Delete(ctx, model.ColProducts, id); err != nil {
		return fmt.Errorf("catalog: delete product: %w", err)
	}
	s.cache.Invalidate(ctx, productListCacheKey)
	s.logger.Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// prepareProduct validates invariants and fills derived fields: category name
// and, for bundles, the aggregated cost.
func (s *Service) prepareProduct(ctx context.Context, product *model.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	if !product.IsBundle {
		product.BundleItems = nil
	}
	if err := common.ValidateStruct(s.validate, product); err != nil {
		return err
	}
	if product.CategoryID != "" {
		var category model.Category
		if err := s.tree.Get(ctx, model.ColCategories, product.CategoryID, &category); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return badRequest("category does not exist")
			}
			return err
		}
		product.CategoryName = category.Name
	} else {
		product.CategoryName = ""
	}
	if !product.IsBundle {
		return nil
	}
	if len(product.BundleItems) == 0 {
		return badRequest("bundle requires at least one item")
	}
	catalog := map[string]model.Product{}
	for i, item := range product.BundleItems {
		var constituent model.Product
		err := s.tree.Get(ctx, model.ColProducts, item.ProductID, &constituent)
		switch {
		case err == nil:
			constituent.ID = item.ProductID
			catalog[item.ProductID] = constituent
			product.BundleItems[i].ProductName = constituent.Name
		case errors.Is(err, store.ErrNotFound):
			// missing constituents contribute zero cost
		default:
			return err
		}
	}
	product.Cost = pricing.BundleCost(product.BundleItems, catalog)
	return nil
}

// ListCategories returns categories sorted by name.
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	var cached []model.Category
	if ok, err := s.cache.GetJSON(ctx, categoryListCacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	raw, err := s.tree.List(ctx, model.ColCategories)
	if err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	all := store.DecodeAll(raw, func(c *model.Category, id string) { c.ID = id })
	categories := make([]model.Category, 0, len(all))
	for _, c := range all {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	_ = s.cache.SetJSON(ctx, categoryListCacheKey, categories)
	return categories, nil
}

// CreateCategory stores a new category.
func (s *Service) CreateCategory(ctx context.Context, category model.Category) (model.Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if err := common.ValidateStruct(s.validate, category); err != nil {
		return model.Category{}, err
	}
	now := s.Now().UnixMilli()
	category.CreatedAt = now
	category.UpdatedAt = now
	id, err := s.tree.Push(ctx, model.ColCategories, category)
	if err != nil {
		return model.Category{}, fmt.Errorf("catalog: create category: %w", err)
	}
	category.ID = id
	s.cache.Invalidate(ctx, categoryListCacheKey)
	return category, nil
}

// UpdateCategory replaces a category and refreshes the denormalized name on
// its products.
func (s *Service) UpdateCategory(ctx context.Context, id string, category model.Category) (model.Category, error) {
	var existing model.Category
	if err := s.tree.Get(ctx, model.ColCategories, id, &existing); err != nil {
		return model.Category{}, err
	}
	category.Name = strings.TrimSpace(category.Name)
	if err := common.ValidateStruct(s.validate, category); err != nil {
		return model.Category{}, err
	}
	category.ID = id
	category.CreatedAt = existing.CreatedAt
	category.UpdatedAt = s.Now().UnixMilli()
	if err := s.tree.Set(ctx, model.ColCategories, id, category); err != nil {
		return model.Category{}, fmt.Errorf("catalog: update category: %w", err)
	}
	if category.Name != existing.Name {
		s.renameCategoryOnProducts(ctx, id, category.Name)
	}
	s.cache.Invalidate(ctx, categoryListCacheKey, productListCacheKey)
	return category, nil
}

// DeleteCategory removes a category. Deletion is refused while any product
// still references the category.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	var existing model.Category
	if err := s.tree.Get(ctx, model.ColCategories, id, &existing); err != nil {
		return err
	}
	raw, err := s.tree.List(ctx, model.ColProducts)
	if err != nil {
		return fmt.Errorf("catalog: delete category: %w", err)
	}
	for _, p := range store.DecodeAll(raw, func(p *model.Product, pid string) { p.ID = pid }) {
		if p.CategoryID == id {
			return common.NewAppError("CONFLICT", "category still has products", http.StatusConflict, nil)
		}
	}
	if err := s.tree.Delete(ctx, model.ColCategories, id); err != nil {
		return fmt.Errorf("catalog: delete category: %w", err)
	}
	s.cache.Invalidate(ctx, categoryListCacheKey)
	return nil
}

func (s *Service) renameCategoryOnProducts(ctx context.Context, categoryID, name string) {
	raw, err := s.tree.List(ctx, model.ColProducts)
	if err != nil {
		s.logger.Error().Err(err).Msg("rename category on products: list failed")
		return
	}
	for id, p := range store.DecodeAll(raw, func(p *model.Product, id string) { p.ID = id }) {
		if p.CategoryID != categoryID {
			continue
		}
		if err := s.tree.Update(ctx, model.ColProducts, id, map[string]any{"categoryName": name}); err != nil {
			s.logger.Error().Err(err).Str("product_id", id).Msg("rename category on product failed")
		}
	}
}

func badRequest(message string) error {
	return common.NewAppError("BAD_REQUEST", message, http.StatusBadRequest, nil)
}
