// Package redistree adapts a managed Redis instance to the store.Tree
// contract. Each collection is a hash of id to JSON document; writes publish a
// change signal on a shared pub/sub channel so clients can refresh their
// working sets.
package redistree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-kasir/internal/lock"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// Store implements store.Tree on Redis.
type Store struct {
	r      *redis.Client
	prefix string
	locks  lock.Mutex
}

// Options configures the adapter.
type Options struct {
	Prefix      string
	LockBackoff time.Duration
}

// New constructs a Redis tree adapter.
func New(client *redis.Client, opts Options) (*Store, error) {
	if client == nil {
		return nil, errors.New("redistree: client is required")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "kasir"
	}
	return &Store{
		r:      client,
		prefix: prefix,
		locks:  lock.Mutex{R: client, Prefix: prefix + ":lock", RetryBackoff: opts.LockBackoff},
	}, nil
}

func (s *Store) colKey(collection string) string {
	return s.prefix + ":c:" + collection
}

func (s *Store) channel() string {
	return s.prefix + ":changes"
}

// Get implements store.Tree.
func (s *Store) Get(ctx context.Context, collection, id string, dst any) error {
	data, err := s.r.HGet(ctx, s.colKey(collection), id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.ErrNotFound
		}
		return fmt.Errorf("redistree: get %s/%s: %w", collection, id, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("redistree: decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// List implements store.Tree.
func (s *Store) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	raw, err := s.r.HGetAll(ctx, s.colKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("redistree: list %s: %w", collection, err)
	}
	out := make(map[string]json.RawMessage, len(raw))
	for id, data := range raw {
		out[id] = json.RawMessage(data)
	}
	return out, nil
}

// Push implements store.Tree. Keys are UUIDs assigned here, mirroring the
// opaque push ids of the managed store.
func (s *Store) Push(ctx context.Context, collection string, doc any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Set implements store.Tree.
func (s *Store) Set(ctx context.Context, collection, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redistree: encode %s/%s: %w", collection, id, err)
	}
	if err := s.r.HSet(ctx, s.colKey(collection), id, data).Err(); err != nil {
		return fmt.Errorf("redistree: set %s/%s: %w", collection, id, err)
	}
	s.notify(ctx, collection)
	return nil
}

// Update implements store.Tree. The merge runs under a per-document lock so
// concurrent partial updates do not clobber each other.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.locks.WithLock(ctx, collection+"/"+id, 0, func(ctx context.Context) error {
		var doc map[string]any
		if err := s.Get(ctx, collection, id, &doc); err != nil {
			return err
		}
		for k, v := range fields {
			doc[k] = v
		}
		return s.Set(ctx, collection, id, doc)
	})
}

// Delete implements store.Tree.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := s.r.HDel(ctx, s.colKey(collection), id).Err(); err != nil {
		return fmt.Errorf("redistree: delete %s/%s: %w", collection, id, err)
	}
	s.notify(ctx, collection)
	return nil
}

// AddToField implements store.Tree. Redis cannot atomically mutate a number
// inside a JSON hash value, so the read-check-write runs under the document
// lock, which makes the update conditional on the value observed inside the
// critical section.
func (s *Store) AddToField(ctx context.Context, collection, id, field string, delta, min int64) (int64, error) {
	var updated int64
	err := s.locks.WithLock(ctx, collection+"/"+id, 0, func(ctx context.Context) error {
		var doc map[string]any
		if err := s.Get(ctx, collection, id, &doc); err != nil {
			return err
		}
		current, err := numericField(doc, field)
		if err != nil {
			return fmt.Errorf("redistree: %s/%s: %w", collection, id, err)
		}
		next := current + delta
		if next < min {
			return store.ErrConditionFailed
		}
		doc[field] = next
		updated = next
		return s.Set(ctx, collection, id, doc)
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// Watch implements store.Tree using pub/sub on the shared change channel.
func (s *Store) Watch(ctx context.Context, collections ...string) (<-chan store.Change, error) {
	wanted := make(map[string]struct{}, len(collections))
	for _, c := range collections {
		wanted[c] = struct{}{}
	}
	sub := s.r.Subscribe(ctx, s.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redistree: subscribe: %w", err)
	}
	out := make(chan store.Change, 16)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if len(wanted) > 0 {
					if _, ok := wanted[msg.Payload]; !ok {
						continue
					}
				}
				select {
				case out <- store.Change{Collection: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Ping implements store.Tree.
func (s *Store) Ping(ctx context.Context) error {
	return s.r.Ping(ctx).Err()
}

// Close implements store.Tree. The underlying client is shared with other
// subsystems and is closed by the owner.
func (s *Store) Close() error { return nil }

func (s *Store) notify(ctx context.Context, collection string) {
	_ = s.r.Publish(ctx, s.channel(), collection).Err()
}

func numericField(doc map[string]any, field string) (int64, error) {
	v, ok := doc[field]
	if !ok {
		return 0, fmt.Errorf("field %q missing", field)
	}
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", field, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("field %q is not numeric", field)
	}
}
