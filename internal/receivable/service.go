// Package receivable tracks credit sales awaiting settlement. A receivable is
// a sale with paymentMethod "credit"; settlement flips paymentStatus from
// unpaid to paid exactly once and stamps the payment date.
package receivable

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// ErrNotCredit indicates the sale is not a credit sale.
var ErrNotCredit = errors.New("receivable: sale is not a credit sale")

// Service implements receivable operations against the tree store.
type Service struct {
	tree   store.Tree
	bus    *events.Bus
	logger zerolog.Logger

	// Now is injectable for tests.
	Now func() time.Time
}

// Config wires Service dependencies.
type Config struct {
	Tree   store.Tree
	Bus    *events.Bus
	Logger zerolog.Logger
}

// NewService constructs a receivable service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Tree == nil {
		return nil, errors.New("receivable: tree is required")
	}
	return &Service{tree: cfg.Tree, bus: cfg.Bus, logger: cfg.Logger, Now: time.Now}, nil
}

// ListParams filters receivable listings.
type ListParams struct {
	// Status filters on paymentStatus; empty returns both paid and unpaid.
	Status string
	// CustomerID filters on the owing customer.
	CustomerID string
	// OverdueAt, when positive, keeps only unpaid receivables whose due date
	// has passed at that instant.
	OverdueAt int64
}

// List returns credit sales sorted by due date, soonest first.
func (s *Service) List(ctx context.Context, params ListParams) ([]model.Sale, error) {
	raw, err := s.tree.List(ctx, model.ColSales)
	if err != nil {
		return nil, fmt.Errorf("receivable: list: %w", err)
	}
	all := store.DecodeAll(raw, func(sl *model.Sale, id string) { sl.ID = id })
	receivables := make([]model.Sale, 0)
	for _, sl := range all {
		if sl.PaymentMethod != model.PaymentCredit {
			continue
		}
		if params.Status != "" && sl.PaymentStatus != params.Status {
			continue
		}
		if params.CustomerID != "" && sl.CustomerID != params.CustomerID {
			continue
		}
		if params.OverdueAt > 0 && (sl.PaymentStatus != model.StatusUnpaid || sl.DueDate >= params.OverdueAt) {
			continue
		}
		receivables = append(receivables, sl)
	}
	sort.Slice(receivables, func(i, j int) bool { return receivables[i].DueDate < receivables[j].DueDate })
	return receivables, nil
}

// Summary aggregates outstanding credit.
type Summary struct {
	OutstandingTotal int64 `json:"outstandingTotal"`
	OutstandingCount int   `json:"outstandingCount"`
	OverdueTotal     int64 `json:"overdueTotal"`
	OverdueCount     int   `json:"overdueCount"`
}

// Outstanding summarises unpaid receivables as of now.
func (s *Service) Outstanding(ctx context.Context) (Summary, error) {
	unpaid, err := s.List(ctx, ListParams{Status: model.StatusUnpaid})
	if err != nil {
		return Summary{}, err
	}
	now := s.Now().UnixMilli()
	var summary Summary
	for _, sl := range unpaid {
		summary.OutstandingTotal += sl.Total
		summary.OutstandingCount++
		if sl.DueDate > 0 && sl.DueDate < now {
			summary.OverdueTotal += sl.Total
			summary.OverdueCount++
		}
	}
	return summary, nil
}

// MarkPaid settles a credit sale. Settling an already-paid receivable is a
// no-op returning the stored sale.
func (s *Service) MarkPaid(ctx context.Context, id string) (model.Sale, error) {
	var sl model.Sale
	if err := s.tree.Get(ctx, model.ColSales, id, &sl); err != nil {
		return model.Sale{}, err
	}
	sl.ID = id
	if sl.PaymentMethod != model.PaymentCredit {
		return model.Sale{}, ErrNotCredit
	}
	if sl.PaymentStatus == model.StatusPaid {
		return sl, nil
	}
	now := s.Now().UnixMilli()
	if err := s.tree.Update(ctx, model.ColSales, id, map[string]any{
		"paymentStatus": model.StatusPaid,
		"paidDate":      now,
		"updatedAt":     now,
	}); err != nil {
		return model.Sale{}, fmt.Errorf("receivable: mark paid: %w", err)
	}
	sl.PaymentStatus = model.StatusPaid
	sl.PaidDate = now
	sl.UpdatedAt = now
	if obs.ReceivablesSettledTotal != nil {
		obs.ReceivablesSettledTotal.Inc()
	}
	if s.bus != nil {
		s.bus.Publish(ctx, events.TopicSalePaid, map[string]any{
			"saleId":     id,
			"customerId": sl.CustomerID,
			"total":      sl.Total,
		})
	}
	s.logger.Info().Str("sale_id", id).Int64("total", sl.Total).Msg("receivable settled")
	return sl, nil
}
