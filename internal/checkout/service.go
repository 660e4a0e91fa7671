// Package checkout turns a cart into a persisted sale: totals are computed
// against the current snapshot, stock is decremented with conditional writes,
// and the sale document becomes immutable except for receivable settlement.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/pricing"
	"github.com/noah-isme/backend-kasir/internal/snapshot"
	"github.com/noah-isme/backend-kasir/internal/store"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

var (
	// ErrEmptyCart indicates finalization of a cart with no lines.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrMissingCustomer indicates a credit sale without an attached customer.
	ErrMissingCustomer = errors.New("checkout: credit sale requires a customer")
	// ErrInvalidPayment indicates an unknown payment method.
	ErrInvalidPayment = errors.New("checkout: invalid payment method")
	// ErrStockConflict indicates a concurrent sale consumed the stock first.
	ErrStockConflict = errors.New("checkout: insufficient stock")
)

// Request describes a finalization.
type Request struct {
	CartID        string        `json:"cartId"`
	PaymentMethod string        `json:"paymentMethod"`
	Discount      pricing.Money `json:"discount"`
	DueDays       int           `json:"dueDays,omitempty"`
}

// Result is the outcome of a successful finalization.
type Result struct {
	SaleID  string     `json:"saleId"`
	Sale    model.Sale `json:"sale"`
	Receipt Receipt    `json:"receipt"`
}

// Service finalizes sales.
type Service struct {
	tree     store.Tree
	carts    *cart.Service
	hub      *snapshot.Hub
	bus      *events.Bus
	logger   zerolog.Logger
	dueDays  int
	lowStock int64

	// Now is injectable for tests.
	Now func() time.Time
}

// Config wires Service dependencies.
type Config struct {
	Tree           store.Tree
	Carts          *cart.Service
	Hub            *snapshot.Hub
	Bus            *events.Bus
	Logger         zerolog.Logger
	DefaultDueDays int
	// LowStockDefault is the warning threshold for products that do not set
	// their own MinStock.
	LowStockDefault int64
}

// NewService constructs a checkout service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Tree == nil {
		return nil, errors.New("checkout: tree is required")
	}
	if cfg.Carts == nil {
		return nil, errors.New("checkout: cart service is required")
	}
	if cfg.Hub == nil {
		return nil, errors.New("checkout: snapshot hub is required")
	}
	dueDays := cfg.DefaultDueDays
	if dueDays <= 0 {
		dueDays = 30
	}
	return &Service{
		tree:     cfg.Tree,
		carts:    cfg.Carts,
		hub:      cfg.Hub,
		bus:      cfg.Bus,
		logger:   cfg.Logger,
		dueDays:  dueDays,
		lowStock: cfg.LowStockDefault,
		Now:      time.Now,
	}, nil
}

// Finalize persists the cart as a sale. Stock is decremented line by line
// with conditional writes; on a conflict, already-applied decrements are
// compensated and no sale is recorded.
func (s *Service) Finalize(ctx context.Context, req Request) (Result, error) {
	if req.Discount < 0 {
		return Result{}, fmt.Errorf("checkout: negative discount")
	}
	switch req.PaymentMethod {
	case model.PaymentCash, model.PaymentCard, model.PaymentTransfer, model.PaymentCredit:
	default:
		return Result{}, ErrInvalidPayment
	}

	ledger, err := s.carts.Snapshot(req.CartID)
	if err != nil {
		return Result{}, err
	}
	if ledger.Empty() {
		return Result{}, ErrEmptyCart
	}
	if req.PaymentMethod == model.PaymentCredit && ledger.CustomerID == "" {
		return Result{}, ErrMissingCustomer
	}

	cat := s.hub.Catalog()
	totals := ledger.Totals(cat, req.Discount)
	now := s.Now()
	saleDate := now.UnixMilli()

	if err := s.decrementStock(ctx, cat, ledger.Lines); err != nil {
		s.recordResult(req.PaymentMethod, "stock_conflict")
		return Result{}, err
	}

	sale := model.Sale{
		CustomerID:    ledger.CustomerID,
		CustomerName:  s.customerName(cat, ledger.CustomerID),
		Items:         saleItems(ledger.Lines),
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Discount:      req.Discount,
		Total:         totals.Total,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: model.StatusPaid,
		SaleDate:      saleDate,
		CreatedAt:     saleDate,
		UpdatedAt:     saleDate,
	}
	if req.PaymentMethod == model.PaymentCredit {
		dueDays := req.DueDays
		if dueDays <= 0 {
			dueDays = s.dueDays
		}
		sale.PaymentStatus = model.StatusUnpaid
		sale.DueDate = saleDate + int64(dueDays)*dayMillis
	}

	id, err := s.tree.Push(ctx, model.ColSales, sale)
	if err != nil {
		s.compensateStock(ctx, ledger.Lines)
		s.recordResult(req.PaymentMethod, "error")
		return Result{}, fmt.Errorf("checkout: persist sale: %w", err)
	}
	sale.ID = id

	s.carts.Destroy(req.CartID)
	s.recordResult(req.PaymentMethod, "ok")
	if obs.SaleValue != nil {
		obs.SaleValue.WithLabelValues(req.PaymentMethod).Observe(float64(sale.Total))
	}
	if s.bus != nil {
		s.bus.Publish(ctx, events.TopicSaleCreated, map[string]any{
			"saleId":        id,
			"total":         sale.Total,
			"paymentMethod": sale.PaymentMethod,
			"paymentStatus": sale.PaymentStatus,
		})
	}
	s.logger.Info().
		Str("sale_id", id).
		Int64("total", sale.Total).
		Str("payment_method", sale.PaymentMethod).
		Msg("sale finalized")

	receipt := s.buildReceipt(ctx, sale, now)
	return Result{SaleID: id, Sale: sale, Receipt: receipt}, nil
}

// decrementStock applies conditional decrements in line order. The first
// conflict rolls back earlier lines and aborts.
func (s *Service) decrementStock(ctx context.Context, cat *snapshot.Catalog, lines []cart.Line) error {
	applied := make([]cart.Line, 0, len(lines))
	for _, line := range lines {
		remaining, err := s.tree.AddToField(ctx, model.ColProducts, line.ProductID, "stock", -line.Qty, 0)
		if err != nil {
			s.compensateStock(ctx, applied)
			if errors.Is(err, store.ErrConditionFailed) || errors.Is(err, store.ErrNotFound) {
				if obs.StockConflictTotal != nil {
					obs.StockConflictTotal.Inc()
				}
				return fmt.Errorf("%w: %s", ErrStockConflict, line.ProductID)
			}
			return fmt.Errorf("checkout: decrement stock %s: %w", line.ProductID, err)
		}
		applied = append(applied, line)
		if product, ok := cat.Products[line.ProductID]; ok {
			threshold := product.MinStock
			if threshold == 0 {
				threshold = s.lowStock
			}
			if remaining <= threshold && s.bus != nil {
				s.bus.Publish(ctx, events.TopicProductLowStock, map[string]any{
					"productId": line.ProductID,
					"name":      product.Name,
					"stock":     remaining,
					"minStock":  threshold,
				})
			}
		}
	}
	return nil
}

func (s *Service) compensateStock(ctx context.Context, applied []cart.Line) {
	for _, line := range applied {
		if _, err := s.tree.AddToField(ctx, model.ColProducts, line.ProductID, "stock", line.Qty, 0); err != nil {
			s.logger.Error().Err(err).Str("product_id", line.ProductID).Msg("stock compensation failed")
		}
	}
}

func (s *Service) customerName(cat *snapshot.Catalog, customerID string) string {
	if customerID == "" {
		return "Umum"
	}
	if c, ok := cat.Customers[customerID]; ok {
		return c.Name
	}
	return ""
}

func (s *Service) recordResult(method, result string) {
	if obs.SalesFinalizedTotal != nil {
		obs.SalesFinalizedTotal.WithLabelValues(method, result).Inc()
	}
}

func saleItems(lines []cart.Line) []model.SaleItem {
	items := make([]model.SaleItem, len(lines))
	for i, line := range lines {
		items[i] = model.SaleItem{
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Quantity:    line.Qty,
			Price:       line.UnitPrice,
			Total:       line.Total,
		}
	}
	return items
}
