// Package memtree is an in-memory store.Tree used by tests and local
// development. It mirrors the adapters' semantics including change signals
// and conditional field updates.
package memtree

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-kasir/internal/store"
)

// Store implements store.Tree in process memory.
type Store struct {
	mu       sync.Mutex
	data     map[string]map[string]json.RawMessage
	watchers []*watcher
}

type watcher struct {
	wanted map[string]struct{}
	ch     chan store.Change
}

// New constructs an empty in-memory tree.
func New() *Store {
	return &Store{data: map[string]map[string]json.RawMessage{}}
}

// Get implements store.Tree.
func (s *Store) Get(ctx context.Context, collection, id string, dst any) error {
	s.mu.Lock()
	raw, ok := s.data[collection][id]
	s.mu.Unlock()
	if !ok {
		return store.ErrNotFound
	}
	return json.Unmarshal(raw, dst)
}

// List implements store.Tree.
func (s *Store) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]json.RawMessage, len(s.data[collection]))
	for id, raw := range s.data[collection] {
		out[id] = raw
	}
	return out, nil
}

// Push implements store.Tree.
func (s *Store) Push(ctx context.Context, collection string, doc any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Set implements store.Tree.
func (s *Store) Set(ctx context.Context, collection, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.data[collection] == nil {
		s.data[collection] = map[string]json.RawMessage{}
	}
	s.data[collection][id] = raw
	s.mu.Unlock()
	s.notify(collection)
	return nil
}

// Update implements store.Tree.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	raw, ok := s.data[collection][id]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.mu.Unlock()
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.data[collection][id] = merged
	s.mu.Unlock()
	s.notify(collection)
	return nil
}

// Delete implements store.Tree.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	delete(s.data[collection], id)
	s.mu.Unlock()
	s.notify(collection)
	return nil
}

// AddToField implements store.Tree.
func (s *Store) AddToField(ctx context.Context, collection, id, field string, delta, min int64) (int64, error) {
	s.mu.Lock()
	raw, ok := s.data[collection][id]
	if !ok {
		s.mu.Unlock()
		return 0, store.ErrNotFound
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	current, ok := doc[field].(float64)
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("memtree: field %q is not numeric", field)
	}
	next := int64(current) + delta
	if next < min {
		s.mu.Unlock()
		return 0, store.ErrConditionFailed
	}
	doc[field] = next
	merged, err := json.Marshal(doc)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.data[collection][id] = merged
	s.mu.Unlock()
	s.notify(collection)
	return next, nil
}

// Watch implements store.Tree.
func (s *Store) Watch(ctx context.Context, collections ...string) (<-chan store.Change, error) {
	wanted := make(map[string]struct{}, len(collections))
	for _, c := range collections {
		wanted[c] = struct{}{}
	}
	w := &watcher{wanted: wanted, ch: make(chan store.Change, 16)}
	s.mu.Lock()
	s.watchers = append(s.watchers, w)
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.watchers {
			if existing == w {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		close(w.ch)
	}()
	return w.ch, nil
}

// Ping implements store.Tree.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close implements store.Tree.
func (s *Store) Close() error { return nil }

// notify fans out non-blocking; the mutex also guards against a send racing
// a watcher's close on cancellation.
func (s *Store) notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchers {
		if len(w.wanted) > 0 {
			if _, ok := w.wanted[collection]; !ok {
				continue
			}
		}
		select {
		case w.ch <- store.Change{Collection: collection}:
		default:
		}
	}
}
