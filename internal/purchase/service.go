// Package purchase manages purchase orders. Orders move from pending to
// received either directly or via shipped; receiving increments product stock
// by the ordered quantities. Pending and shipped orders may be cancelled;
// received and cancelled orders are terminal.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// ErrInvalidTransition indicates a status change the lifecycle does not allow.
var ErrInvalidTransition = errors.New("purchase: invalid status transition")

// Service implements purchase-order operations against the tree store.
type Service struct {
	tree     store.Tree
	bus      *events.Bus
	logger   zerolog.Logger
	validate *validator.Validate

	// Now is injectable for tests.
	Now func() time.Time
}

// Config wires Service dependencies.
type Config struct {
	Tree   store.Tree
	Bus    *events.Bus
	Logger zerolog.Logger
}

// NewService constructs a purchase service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Tree == nil {
		return nil, errors.New("purchase: tree is required")
	}
	return &Service{tree: cfg.Tree, bus: cfg.Bus, logger: cfg.Logger, validate: validator.New(), Now: time.Now}, nil
}

// List returns purchase orders, newest first. An optional status filters.
func (s *Service) List(ctx context.Context, status string) ([]model.PurchaseOrder, error) {
	raw, err := s.tree.List(ctx, model.ColPurchaseOrders)
	if err != nil {
		return nil, fmt.Errorf("purchase: list: %w", err)
	}
	all := store.DecodeAll(raw, func(po *model.PurchaseOrder, id string) { po.ID = id })
	orders := make([]model.PurchaseOrder, 0, len(all))
	for _, po := range all {
		if status != "" && po.Status != status {
			continue
		}
		orders = append(orders, po)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderDate > orders[j].OrderDate })
	return orders, nil
}

// Get returns a single purchase order.
func (s *Service) Get(ctx context.Context, id string) (model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := s.tree.Get(ctx, model.ColPurchaseOrders, id, &po); err != nil {
		return model.PurchaseOrder{}, err
	}
	po.ID = id
	return po, nil
}

// Create validates and stores a new pending purchase order. Line totals and
// the order total are computed server-side.
func (s *Service) Create(ctx context.Context, po model.PurchaseOrder) (model.PurchaseOrder, error) {
	if err := common.ValidateStruct(s.validate, po); err != nil {
		return model.PurchaseOrder{}, err
	}
	var supplier model.Supplier
	if err := s.tree.Get(ctx, model.ColSuppliers, po.SupplierID, &supplier); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.PurchaseOrder{}, common.NewAppError("BAD_REQUEST", "supplier does not exist", http.StatusBadRequest, nil)
		}
		return model.PurchaseOrder{}, err
	}
	po.SupplierName = supplier.Name
	po.TotalAmount = 0
	for i, item := range po.Items {
		var product model.Product
		if err := s.tree.Get(ctx, model.ColProducts, item.ProductID, &product); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return model.PurchaseOrder{}, common.NewAppError("BAD_REQUEST", "item references unknown product", http.StatusBadRequest, nil)
			}
			return model.PurchaseOrder{}, err
		}
		po.Items[i].ProductName = product.Name
		po.Items[i].Total = item.Quantity * item.Cost
		po.TotalAmount += po.Items[i].Total
	}
	now := s.Now().UnixMilli()
	po.Status = model.POPending
	po.OrderDate = now
	po.ShippedDate = 0
	po.ReceivedDate = 0
	po.CreatedAt = now
	po.UpdatedAt = now
	id, err := s.tree.Push(ctx, model.ColPurchaseOrders, po)
	if err != nil {
		return model.PurchaseOrder{}, fmt.Errorf("purchase: create: %w", err)
	}
	po.ID = id
	s.logger.Info().Str("po_id", id).Str("supplier", supplier.Name).Int64("total", po.TotalAmount).Msg("purchase order created")
	return po, nil
}

// MarkShipped transitions a pending order to shipped.
func (s *Service) MarkShipped(ctx context.Context, id string) (model.PurchaseOrder, error) {
	po, err := s.Get(ctx, id)
	if err != nil {
		return model.PurchaseOrder{}, err
	}
	if po.Status != model.POPending {
		return model.PurchaseOrder{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, po.Status, model.POShipped)
	}
	now := s.Now().UnixMilli()
	if err := s.tree.Update(ctx, model.ColPurchaseOrders, id, map[string]any{
		"status":      model.POShipped,
		"shippedDate": now,
		"updatedAt":   now,
	}); err != nil {
		return model.PurchaseOrder{}, fmt.Errorf("purchase: mark shipped: %w", err)
	}
	po.Status = model.POShipped
	po.ShippedDate = now
	po.UpdatedAt = now
	return po, nil
}

// MarkReceived transitions a pending or shipped order to received and
// increments stock for every line. Goods can arrive without the shipped step
// ever being recorded.
func (s *Service) MarkReceived(ctx context.Context, id string) (model.PurchaseOrder, error) {
	po, err := s.Get(ctx, id)
	if err != nil {
		return model.PurchaseOrder{}, err
	}
	if po.Status != model.POPending && po.Status != model.POShipped {
		return model.PurchaseOrder{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, po.Status, model.POReceived)
	}
	now := s.Now().UnixMilli()
	if err := s.tree.Update(ctx, model.ColPurchaseOrders, id, map[string]any{
		"status":       model.POReceived,
		"receivedDate": now,
		"updatedAt":    now,
	}); err != nil {
		return model.PurchaseOrder{}, fmt.Errorf("purchase: mark received: %w", err)
	}
	for _, item := range po.Items {
		if _, err := s.tree.AddToField(ctx, model.ColProducts, item.ProductID, "stock", item.Quantity, 0); err != nil {
			// The product may have been deleted since ordering.
			s.logger.Error().Err(err).Str("po_id", id).Str("product_id", item.ProductID).Msg("stock increment on receive failed")
		}
	}
	if obs.PurchasesReceivedTotal != nil {
		obs.PurchasesReceivedTotal.Inc()
	}
	if s.bus != nil {
		s.bus.Publish(ctx, events.TopicPurchaseReceived, map[string]any{
			"purchaseOrderId": id,
			"supplierId":      po.SupplierID,
			"totalAmount":     po.TotalAmount,
		})
	}
	po.Status = model.POReceived
	po.ReceivedDate = now
	po.UpdatedAt = now
	return po, nil
}

// Cancel transitions a pending or shipped order to cancelled. Stock is never
// touched on cancellation.
func (s *Service) Cancel(ctx context.Context, id string) (model.PurchaseOrder, error) {
	po, err := s.Get(ctx, id)
	if err != nil {
		return model.PurchaseOrder{}, err
	}
	if po.Status != model.POPending && po.Status != model.POShipped {
		return model.PurchaseOrder{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, po.Status, model.POCancelled)
	}
	now := s.Now().UnixMilli()
	if err := s.tree.Update(ctx, model.ColPurchaseOrders, id, map[string]any{
		"status":    model.POCancelled,
		"updatedAt": now,
	}); err != nil {
		return model.PurchaseOrder{}, fmt.Errorf("purchase: cancel: %w", err)
	}
	po.Status = model.POCancelled
	po.UpdatedAt = now
	return po, nil
}
