// Package report aggregates sales and stock into dashboard figures. Results
// are cached briefly in Redis since reports scan full collections.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// Service computes reports from the tree store.
type Service struct {
	tree     store.Tree
	cache    *catalog.Cache
	logger   zerolog.Logger
	lowStock int64

	// Now is injectable for tests.
	Now func() time.Time
}

// Config wires Service dependencies.
type Config struct {
	Tree   store.Tree
	Cache  *catalog.Cache
	Logger zerolog.Logger
	// LowStockDefault is the threshold for products that do not set their own
	// MinStock.
	LowStockDefault int64
}

// NewService constructs a report service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Tree == nil {
		return nil, errors.New("report: tree is required")
	}
	return &Service{tree: cfg.Tree, cache: cfg.Cache, logger: cfg.Logger, lowStock: cfg.LowStockDefault, Now: time.Now}, nil
}

// Summary aggregates sales over a period.
type Summary struct {
	From         int64 `json:"from"`
	To           int64 `json:"to"`
	SalesCount   int   `json:"salesCount"`
	Revenue      int64 `json:"revenue"`
	TaxCollected int64 `json:"taxCollected"`
	Discounts    int64 `json:"discounts"`
	CreditTotal  int64 `json:"creditTotal"`
	UnpaidTotal  int64 `json:"unpaidTotal"`
	AvgTicket    int64 `json:"avgTicket"`
}

// Summarize aggregates sales between from and to (unix millis, inclusive).
func (s *Service) Summarize(ctx context.Context, from, to int64) (Summary, error) {
	key := fmt.Sprintf("report:summary:%d:%d", from, to)
	var cached Summary
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	sales, err := s.salesBetween(ctx, from, to)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{From: from, To: to}
	for _, sl := range sales {
		summary.SalesCount++
		summary.Revenue += sl.Total
		summary.TaxCollected += sl.Tax
		summary.Discounts += sl.Discount
		if sl.PaymentMethod == model.PaymentCredit {
			summary.CreditTotal += sl.Total
			if sl.PaymentStatus == model.StatusUnpaid {
				summary.UnpaidTotal += sl.Total
			}
		}
	}
	if summary.SalesCount > 0 {
		summary.AvgTicket = summary.Revenue / int64(summary.SalesCount)
	}
	_ = s.cache.SetJSON(ctx, key, summary)
	return summary, nil
}

// TopProduct is one row of the best-seller report.
type TopProduct struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int64  `json:"quantity"`
	Revenue     int64  `json:"revenue"`
}

// TopProducts ranks products by quantity sold between from and to.
func (s *Service) TopProducts(ctx context.Context, from, to int64, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	key := fmt.Sprintf("report:top:%d:%d:%d", from, to, limit)
	var cached []TopProduct
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	sales, err := s.salesBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byProduct := map[string]*TopProduct{}
	for _, sl := range sales {
		for _, item := range sl.Items {
			row, ok := byProduct[item.ProductID]
			if !ok {
				row = &TopProduct{ProductID: item.ProductID, ProductName: item.ProductName}
				byProduct[item.ProductID] = row
			}
			row.Quantity += item.Quantity
			row.Revenue += item.Total
		}
	}
	top := make([]TopProduct, 0, len(byProduct))
	for _, row := range byProduct {
		top = append(top, *row)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Quantity != top[j].Quantity {
			return top[i].Quantity > top[j].Quantity
		}
		return top[i].ProductName < top[j].ProductName
	})
	if len(top) > limit {
		top = top[:limit]
	}
	_ = s.cache.SetJSON(ctx, key, top)
	return top, nil
}

// LowStock returns products at or below their minimum stock, most depleted
// first. Products without a MinStock of their own fall back to the configured
// default threshold.
func (s *Service) LowStock(ctx context.Context) ([]model.Product, error) {
	raw, err := s.tree.List(ctx, model.ColProducts)
	if err != nil {
		return nil, fmt.Errorf("report: list products: %w", err)
	}
	all := store.DecodeAll(raw, func(p *model.Product, id string) { p.ID = id })
	low := make([]model.Product, 0)
	for _, p := range all {
		if p.Stock <= s.threshold(p) {
			low = append(low, p)
		}
	}
	sort.Slice(low, func(i, j int) bool {
		di := s.threshold(low[i]) - low[i].Stock
		dj := s.threshold(low[j]) - low[j].Stock
		if di != dj {
			return di > dj
		}
		return low[i].Name < low[j].Name
	})
	return low, nil
}

func (s *Service) threshold(p model.Product) int64 {
	if p.MinStock > 0 {
		return p.MinStock
	}
	return s.lowStock
}

// DailyPoint is revenue for one calendar day.
type DailyPoint struct {
	Date    string `json:"date"`
	Count   int    `json:"count"`
	Revenue int64  `json:"revenue"`
}

// Daily buckets sales by calendar day over the trailing days window.
func (s *Service) Daily(ctx context.Context, days int) ([]DailyPoint, error) {
	if days <= 0 {
		days = 7
	}
	now := s.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))
	sales, err := s.salesBetween(ctx, start.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, err
	}
	points := make([]DailyPoint, days)
	index := map[string]int{}
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		points[i] = DailyPoint{Date: date}
		index[date] = i
	}
	for _, sl := range sales {
		date := time.UnixMilli(sl.SaleDate).In(now.Location()).Format("2006-01-02")
		if i, ok := index[date]; ok {
			points[i].Count++
			points[i].Revenue += sl.Total
		}
	}
	return points, nil
}

func (s *Service) salesBetween(ctx context.Context, from, to int64) ([]model.Sale, error) {
	raw, err := s.tree.List(ctx, model.ColSales)
	if err != nil {
		return nil, fmt.Errorf("report: list sales: %w", err)
	}
	all := store.DecodeAll(raw, func(sl *model.Sale, id string) { sl.ID = id })
	sales := make([]model.Sale, 0, len(all))
	for _, sl := range all {
		if from > 0 && sl.SaleDate < from {
			continue
		}
		if to > 0 && sl.SaleDate > to {
			continue
		}
		sales = append(sales, sl)
	}
	return sales, nil
}
