package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/pricing"
	"github.com/noah-isme/backend-kasir/internal/snapshot"
)

// ErrCartNotFound indicates the cart session does not exist or has expired.
var ErrCartNotFound = errors.New("cart: session not found")

type session struct {
	ledger  Ledger
	touched time.Time
}

// Service manages cart sessions in memory. Sessions expire after TTL of
// inactivity; a janitor sweeps them out.
type Service struct {
	hub    *snapshot.Hub
	logger zerolog.Logger
	ttl    time.Duration

	mu       sync.Mutex
	sessions map[string]*session

	// Now is injectable for tests.
	Now func() time.Time
}

// NewService constructs a cart service backed by the snapshot hub.
func NewService(hub *snapshot.Hub, logger zerolog.Logger, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Service{
		hub:      hub,
		logger:   logger,
		ttl:      ttl,
		sessions: map[string]*session{},
		Now:      time.Now,
	}
}

// Create opens a new empty cart session and returns its identifier.
func (s *Service) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{touched: s.Now()}
	s.mu.Unlock()
	return id
}

// View is a read-only projection of a cart session.
type View struct {
	ID         string         `json:"id"`
	CustomerID string         `json:"customerId,omitempty"`
	Lines      []Line         `json:"lines"`
	Totals     pricing.Totals `json:"totals"`
}

// Get returns the current state of a session.
func (s *Service) Get(id string, discount pricing.Money) (View, error) {
	return s.withSession(id, func(sess *session, cat *snapshot.Catalog) error { return nil }, discount)
}

// AddItem adds qty of the product to the session's ledger.
func (s *Service) AddItem(id, productID string, qty int64) (View, error) {
	return s.withSession(id, func(sess *session, cat *snapshot.Catalog) error {
		return sess.ledger.AddItem(cat, productID, qty)
	}, 0)
}

// SetQuantity replaces the quantity of an existing line.
func (s *Service) SetQuantity(id, productID string, qty int64) (View, error) {
	return s.withSession(id, func(sess *session, cat *snapshot.Catalog) error {
		return sess.ledger.SetQuantity(cat, productID, qty)
	}, 0)
}

// RemoveItem deletes the product's line from the session's ledger.
func (s *Service) RemoveItem(id, productID string) (View, error) {
	return s.withSession(id, func(sess *session, cat *snapshot.Catalog) error {
		sess.ledger.RemoveItem(productID)
		return nil
	}, 0)
}

// SetCustomer switches the session's customer, re-pricing every line.
func (s *Service) SetCustomer(id, customerID string) (View, error) {
	return s.withSession(id, func(sess *session, cat *snapshot.Catalog) error {
		return sess.ledger.SetCustomer(cat, customerID)
	}, 0)
}

// Snapshot returns a copy of the session's ledger for finalization.
func (s *Service) Snapshot(id string) (Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Ledger{}, ErrCartNotFound
	}
	sess.touched = s.Now()
	copied := Ledger{CustomerID: sess.ledger.CustomerID, Lines: append([]Line(nil), sess.ledger.Lines...)}
	return copied, nil
}

// Destroy removes the session. Destroying an absent session is a no-op.
func (s *Service) Destroy(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Run sweeps expired sessions until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	cutoff := s.Now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.touched.Before(cutoff) {
			delete(s.sessions, id)
			s.logger.Debug().Str("cart_id", id).Msg("cart session expired")
		}
	}
}

func (s *Service) withSession(id string, fn func(*session, *snapshot.Catalog) error, discount pricing.Money) (View, error) {
	cat := s.hub.Catalog()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return View{}, ErrCartNotFound
	}
	if err := fn(sess, cat); err != nil {
		return View{}, err
	}
	sess.touched = s.Now()
	lines := append([]Line(nil), sess.ledger.Lines...)
	if lines == nil {
		lines = []Line{}
	}
	return View{
		ID:         id,
		CustomerID: sess.ledger.CustomerID,
		Lines:      lines,
		Totals:     sess.ledger.Totals(cat, discount),
	}, nil
}
