// Package store defines the contract with the remote tree-structured document
// store. Collections are top-level paths holding JSON documents keyed by
// opaque string identifiers assigned at creation.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = errors.New("store: document not found")

// ErrConditionFailed indicates a conditional field update was refused because
// the resulting value would fall below the permitted floor.
var ErrConditionFailed = errors.New("store: conditional update failed")

// Change signals that the contents of a collection have changed. Consumers
// treat it as an invalidation and re-read the full collection.
type Change struct {
	Collection string
}

// Tree is the minimal surface the application requires from the store.
type Tree interface {
	// Get unmarshals the document at collection/id into dst.
	Get(ctx context.Context, collection, id string, dst any) error
	// List returns every document in the collection keyed by id.
	List(ctx context.Context, collection string) (map[string]json.RawMessage, error)
	// Push stores doc under a newly assigned key and returns that key.
	Push(ctx context.Context, collection string, doc any) (string, error)
	// Set stores doc at collection/id, replacing any existing document.
	Set(ctx context.Context, collection, id string, doc any) error
	// Update merges the given fields into the document at collection/id.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes the document at collection/id. Deleting an absent
	// document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// AddToField atomically adds delta to an integer field of the document,
	// failing with ErrConditionFailed if the result would drop below min.
	// Returns the new field value.
	AddToField(ctx context.Context, collection, id, field string, delta, min int64) (int64, error)
	// Watch delivers change signals for the named collections until ctx is
	// cancelled. The channel is closed on cancellation.
	Watch(ctx context.Context, collections ...string) (<-chan Change, error)
	// Ping probes connectivity to the backing service.
	Ping(ctx context.Context) error
	// Close releases held resources.
	Close() error
}

// DecodeAll unmarshals every raw document of a List result into a typed map,
// skipping documents that fail to decode.
func DecodeAll[T any](raw map[string]json.RawMessage, setID func(*T, string)) map[string]T {
	out := make(map[string]T, len(raw))
	for id, data := range raw {
		var doc T
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		if setID != nil {
			setID(&doc, id)
		}
		out[id] = doc
	}
	return out
}
