// Package sale exposes read access to finalized sales. Sales are written by
// checkout and are immutable here.
package sale

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// Service reads sales from the tree store.
type Service struct {
	tree store.Tree
}

// NewService constructs a sale service.
func NewService(tree store.Tree) (*Service, error) {
	if tree == nil {
		return nil, errors.New("sale: tree is required")
	}
	return &Service{tree: tree}, nil
}

// ListParams filters sale listings. Zero bounds are open-ended.
type ListParams struct {
	From       int64
	To         int64
	CustomerID string
	Method     string
}

// List returns sales newest first.
func (s *Service) List(ctx context.Context, params ListParams) ([]model.Sale, error) {
	raw, err := s.tree.List(ctx, model.ColSales)
	if err != nil {
		return nil, fmt.Errorf("sale: list: %w", err)
	}
	all := store.DecodeAll(raw, func(sl *model.Sale, id string) { sl.ID = id })
	sales := make([]model.Sale, 0, len(all))
	for _, sl := range all {
		if params.From > 0 && sl.SaleDate < params.From {
			continue
		}
		if params.To > 0 && sl.SaleDate > params.To {
			continue
		}
		if params.CustomerID != "" && sl.CustomerID != params.CustomerID {
			continue
		}
		if params.Method != "" && sl.PaymentMethod != params.Method {
			continue
		}
		sales = append(sales, sl)
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].SaleDate > sales[j].SaleDate })
	return sales, nil
}

// Get returns a single sale.
func (s *Service) Get(ctx context.Context, id string) (model.Sale, error) {
	var sl model.Sale
	if err := s.tree.Get(ctx, model.ColSales, id, &sl); err != nil {
		return model.Sale{}, err
	}
	sl.ID = id
	return sl, nil
}

// DayRange converts a calendar date to the [from, to] unix-millisecond bounds
// of that day in the given location.
func DayRange(t time.Time) (int64, int64) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start.UnixMilli(), start.Add(24*time.Hour).UnixMilli() - 1
}
