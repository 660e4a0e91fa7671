package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-kasir/internal/config"
	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store"
	"github.com/noah-isme/backend-kasir/internal/store/pgtree"
	"github.com/noah-isme/backend-kasir/internal/store/redistree"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tree := mustOpenTree(ctx, cfg)
	defer tree.Close()

	now := time.Now().UnixMilli()

	seedCategories(ctx, tree, now)
	seedProducts(ctx, tree, now)
	seedCustomers(ctx, tree, now)
	seedSuppliers(ctx, tree, now)
	seedSettings(ctx, tree, now)

	log.Println("Seeding completed successfully!")
}

func mustOpenTree(ctx context.Context, cfg *config.Config) store.Tree {
	if cfg.StoreDriver == config.DriverPostgres {
		if err := pgtree.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("run migrations: %v", err)
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect database: %v", err)
		}
		tree, err := pgtree.New(pool)
		if err != nil {
			log.Fatalf("open postgres store: %v", err)
		}
		return tree
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}
	tree, err := redistree.New(client, redistree.Options{Prefix: "kasir"})
	if err != nil {
		log.Fatalf("open redis store: %v", err)
	}
	return tree
}

func seedCategories(ctx context.Context, tree store.Tree, now int64) {
	log.Println("Seeding Categories...")
	categories := []model.Category{
		{ID: "cat-minuman", Name: "Minuman", Description: "Minuman kemasan dan seduh"},
		{ID: "cat-makanan", Name: "Makanan Ringan"},
		{ID: "cat-sembako", Name: "Sembako"},
		{ID: "cat-perawatan", Name: "Perawatan Diri"},
	}
	for _, c := range categories {
		c.CreatedAt = now
		c.UpdatedAt = now
		if err := tree.Set(ctx, model.ColCategories, c.ID, c); err != nil {
			log.Fatalf("seed category %s: %v", c.ID, err)
		}
	}
}

func seedProducts(ctx context.Context, tree store.Tree, now int64) {
	log.Println("Seeding Products...")
	products := []model.Product{
		{ID: "prd-kopi-sachet", Name: "Kopi Sachet", CategoryID: "cat-minuman", CategoryName: "Minuman", Barcode: "8991002101012", SKU: "KOPI-001", Price: 2_000, Cost: 1_500, Stock: 200, MinStock: 24},
		{ID: "prd-teh-botol", Name: "Teh Botol 450ml", CategoryID: "cat-minuman", CategoryName: "Minuman", Barcode: "8992761111335", SKU: "TEH-001", Price: 5_000, Cost: 3_800, Stock: 48, MinStock: 12},
		{ID: "prd-air-galon", Name: "Air Mineral Galon", CategoryID: "cat-minuman", CategoryName: "Minuman", SKU: "AIR-019", Price: 21_000, Cost: 16_000, Stock: 15, MinStock: 5},
		{ID: "prd-keripik", Name: "Keripik Singkong 200g", CategoryID: "cat-makanan", CategoryName: "Makanan Ringan", SKU: "KRP-002", Price: 12_000, Cost: 8_000, Stock: 30, MinStock: 10},
		{ID: "prd-beras-5kg", Name: "Beras Premium 5kg", CategoryID: "cat-sembako", CategoryName: "Sembako", SKU: "BRS-005", Price: 78_000, Cost: 68_000, Stock: 20, MinStock: 4},
		{ID: "prd-minyak-1l", Name: "Minyak Goreng 1L", CategoryID: "cat-sembako", CategoryName: "Sembako", SKU: "MYK-001", Price: 19_000, Cost: 16_500, Stock: 40, MinStock: 8},
		{ID: "prd-sabun-mandi", Name: "Sabun Mandi Batang", CategoryID: "cat-perawatan", CategoryName: "Perawatan Diri", SKU: "SBN-003", Price: 4_500, Cost: 3_200, Stock: 60, MinStock: 12},
	}
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := tree.Set(ctx, model.ColProducts, p.ID, p); err != nil {
			log.Fatalf("seed product %s: %v", p.ID, err)
		}
	}

	// Bundle cost derives from its constituents: 10x kopi + 1x keripik.
	bundle := model.Product{
		ID:           "prd-paket-ngopi",
		Name:         "Paket Ngopi Rame",
		CategoryID:   "cat-makanan",
		CategoryName: "Makanan Ringan",
		SKU:          "PKT-001",
		Price:        30_000,
		Cost:         1_500*10 + 8_000,
		Stock:        10,
		MinStock:     2,
		IsBundle:     true,
		BundleItems: []model.BundleItem{
			{ProductID: "prd-kopi-sachet", ProductName: "Kopi Sachet", Quantity: 10},
			{ProductID: "prd-keripik", ProductName: "Keripik Singkong 200g", Quantity: 1},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tree.Set(ctx, model.ColProducts, bundle.ID, bundle); err != nil {
		log.Fatalf("seed bundle: %v", err)
	}
}

func seedCustomers(ctx context.Context, tree store.Tree, now int64) {
	log.Println("Seeding Customers...")
	customers := []model.Customer{
		{ID: "cst-budi", Name: "Budi Santoso", Phone: "081234567801", Address: "Jl. Melati 3"},
		{ID: "cst-siti", Name: "Siti Aminah", Phone: "081234567802"},
		{
			ID:    "cst-warung-sari",
			Name:  "Warung Sari",
			Phone: "081234567803",
			// Reseller pricing, still above the cost floor.
			CustomPrices: []model.CustomerPrice{
				{ProductID: "prd-kopi-sachet", CustomPrice: 1_800},
				{ProductID: "prd-teh-botol", CustomPrice: 4_500},
			},
		},
	}
	for _, c := range customers {
		c.CreatedAt = now
		c.UpdatedAt = now
		if err := tree.Set(ctx, model.ColCustomers, c.ID, c); err != nil {
			log.Fatalf("seed customer %s: %v", c.ID, err)
		}
	}
}

func seedSuppliers(ctx context.Context, tree store.Tree, now int64) {
	log.Println("Seeding Suppliers...")
	suppliers := []model.Supplier{
		{ID: "sup-maju", Name: "PT Maju Distribusi", Phone: "0215550101", Email: "sales@majudistribusi.example"},
		{ID: "sup-sumber", Name: "CV Sumber Rejeki", Phone: "0215550102", Address: "Jl. Industri 12"},
	}
	for _, s := range suppliers {
		s.CreatedAt = now
		s.UpdatedAt = now
		if err := tree.Set(ctx, model.ColSuppliers, s.ID, s); err != nil {
			log.Fatalf("seed supplier %s: %v", s.ID, err)
		}
	}
}

func seedSettings(ctx context.Context, tree store.Tree, now int64) {
	log.Println("Seeding Settings...")
	if err := tree.Set(ctx, model.ColSettings, "tax", model.TaxSetting{Rate: 11, UpdatedAt: now}); err != nil {
		log.Fatalf("seed tax setting: %v", err)
	}
	profile := model.StoreProfile{
		Name:          "Toko Kasir Sejahtera",
		Address:       "Jl. Pasar Baru 1, Jakarta",
		Phone:         "0215550100",
		ReceiptFooter: "Terima kasih, selamat belanja kembali!",
		UpdatedAt:     now,
	}
	if err := tree.Set(ctx, model.ColSettings, "store", profile); err != nil {
		log.Fatalf("seed store profile: %v", err)
	}
}
