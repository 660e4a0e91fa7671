package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store"
	"github.com/noah-isme/backend-kasir/internal/store/memtree"
)

func newService(t *testing.T) (*Service, *memtree.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	tree := memtree.New()
	svc, err := NewService(Config{
		Tree:   tree,
		Cache:  NewCache(client, time.Minute),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	return svc, tree
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, model.Product{Name: "  ", Price: 100})
	require.True(t, common.IsAppError(err))

	_, err = svc.CreateProduct(ctx, model.Product{Name: "Kopi", Price: -1})
	require.True(t, common.IsAppError(err))
}

func TestCreateProductValidationReportsFields(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreateProduct(context.Background(), model.Product{Price: -1, Stock: -5})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	require.Equal(t, "required", details["Name"])
	require.Equal(t, "gte", details["Price"])
	require.Equal(t, "gte", details["Stock"])
}

func TestCreateBundleItemQuantityMustBePositive(t *testing.T) {
	svc, tree := newService(t)
	ctx := context.Background()
	require.NoError(t, tree.Set(ctx, model.ColProducts, "p1", model.Product{Name: "Kopi", Cost: 5_000}))

	_, err := svc.CreateProduct(ctx, model.Product{
		Name:        "Paket",
		Price:       10_000,
		IsBundle:    true,
		BundleItems: []model.BundleItem{{ProductID: "p1", Quantity: 0}},
	})
	require.True(t, common.IsAppError(err))
}

func TestCreateProductResolvesCategoryName(t *testing.T) {
	svc, tree := newService(t)
	ctx := context.Background()
	require.NoError(t, tree.Set(ctx, model.ColCategories, "cat1", model.Category{Name: "Minuman"}))

	product, err := svc.CreateProduct(ctx, model.Product{Name: "Kopi", Price: 15_000, CategoryID: "cat1"})
	require.NoError(t, err)
	require.Equal(t, "Minuman", product.CategoryName)
	require.NotEmpty(t, product.ID)
	require.NotZero(t, product.CreatedAt)
}

func TestCreateBundleDerivesCost(t *testing.T) {
	svc, tree := newService(t)
	ctx := context.Background()
	require.NoError(t, tree.Set(ctx, model.ColProducts, "p1", model.Product{Name: "Kopi", Cost: 5_000}))
	require.NoError(t, tree.Set(ctx, model.ColProducts, "p2", model.Product{Name: "Roti", Cost: 4_000}))

	bundle, err := svc.CreateProduct(ctx, model.Product{
		Name:     "Paket Sarapan",
		Price:    20_000,
		IsBundle: true,
		Cost:     999, // ignored, derived from constituents
		BundleItems: []model.BundleItem{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(13_000), bundle.Cost)
	require.Equal(t, "Kopi", bundle.BundleItems[0].ProductName)
}

func TestCreateBundleMissingConstituentContributesZero(t *testing.T) {
	svc, tree := newService(t)
	ctx := context.Background()
	require.NoError(t, tree.Set(ctx, model.ColProducts, "p1", model.Product{Name: "Kopi", Cost: 5_000}))

	bundle, err := svc.CreateProduct(ctx, model.Product{
		Name:     "Paket",
		Price:    10_000,
		IsBundle: true,
		BundleItems: []model.BundleItem{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "ghost", Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(5_000), bundle.Cost)
}

func TestListProductsFiltersAndSorts(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.CreateProduct(ctx, model.Product{Name: "Teh Manis", Price: 5_000, Barcode: "899001"})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, model.Product{Name: "Kopi Susu", Price: 15_000, Barcode: "899002"})
	require.NoError(t, err)

	all, err := svc.ListProducts(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Kopi Susu", all[0].Name)

	matched, err := svc.ListProducts(ctx, ListParams{Query: "899001"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	require.Equal(t, "Teh Manis", matched[0].Name)
}

func TestListProductsCacheInvalidatedOnWrite(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.CreateProduct(ctx, model.Product{Name: "Kopi", Price: 15_000})
	require.NoError(t, err)

	first, err := svc.ListProducts(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = svc.CreateProduct(ctx, model.Product{Name: "Teh", Price: 5_000})
	require.NoError(t, err)

	second, err := svc.ListProducts(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, second, 2)
}

func TestUpdateCategoryRenamesProducts(t *testing.T) {
	svc, tree := newService(t)
	ctx := context.Background()
	category, err := svc.CreateCategory(ctx, model.Category{Name: "Minuman"})
	require.NoError(t, err)
	product, err := svc.CreateProduct(ctx, model.Product{Name: "Kopi", Price: 15_000, CategoryID: category.ID})
	require.NoError(t, err)

	_, err = svc.UpdateCategory(ctx, category.ID, model.Category{Name: "Minuman Dingin"})
	require.NoError(t, err)

	var updated model.Product
	require.NoError(t, tree.Get(ctx, model.ColProducts, product.ID, &updated))
	require.Equal(t, "Minuman Dingin", updated.CategoryName)
}

func TestDeleteProductNotFound(t *testing.T) {
	svc, _ := newService(t)
	err := svc.DeleteProduct(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteCategoryRefusedWhileInUse(t *testing.T) {
	svc, tree := newService(t)
	ctx := context.Background()
	require.NoError(t, tree.Set(ctx, model.ColCategories, "c1", model.Category{Name: "Minuman"}))
	require.NoError(t, tree.Set(ctx, model.ColProducts, "p1", model.Product{Name: "Kopi", CategoryID: "c1", Price: 1}))

	err := svc.DeleteCategory(ctx, "c1")
	require.True(t, common.IsAppError(err))

	require.NoError(t, tree.Delete(ctx, model.ColProducts, "p1"))
	require.NoError(t, svc.DeleteCategory(ctx, "c1"))
}
