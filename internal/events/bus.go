// Package events records domain events in the store and fans them out to
// in-process subscribers. Events are an append-only audit trail; failures to
// persist are logged but never fail the originating operation.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// Topics emitted by the application.
const (
	TopicSaleCreated      = "sale.created"
	TopicSalePaid         = "sale.paid"
	TopicPurchaseReceived = "purchase.received"
	TopicProductLowStock  = "product.low_stock"
)

// Event is a single domain occurrence.
type Event struct {
	Topic   string         `json:"topic"`
	At      int64          `json:"at"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Subscriber receives events synchronously on the publishing goroutine.
// Subscribers must be fast and must not block.
type Subscriber func(Event)

// Bus publishes events.
type Bus struct {
	tree   store.Tree
	logger zerolog.Logger

	mu   sync.RWMutex
	subs []Subscriber

	// Now is injectable for tests.
	Now func() time.Time
}

// NewBus constructs a Bus persisting to the given tree.
func NewBus(tree store.Tree, logger zerolog.Logger) *Bus {
	return &Bus{tree: tree, logger: logger, Now: time.Now}
}

// Subscribe registers a subscriber for all topics.
func (b *Bus) Subscribe(sub Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
}

// Publish records the event and notifies subscribers.
func (b *Bus) Publish(ctx context.Context, topic string, payload map[string]any) {
	evt := Event{Topic: topic, At: b.Now().UnixMilli(), Payload: payload}
	if b.tree != nil {
		if _, err := b.tree.Push(ctx, model.ColEvents, evt); err != nil {
			b.logger.Error().Err(err).Str("topic", topic).Msg("persist event failed")
		}
	}
	b.logger.Info().Str("topic", topic).Fields(payload).Msg("event")
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, sub := range subs {
		sub(evt)
	}
}
