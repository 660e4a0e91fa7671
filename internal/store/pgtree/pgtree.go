// Package pgtree adapts Postgres to the store.Tree contract. Documents live
// in a single JSONB table keyed by (collection, id); change signals ride on
// LISTEN/NOTIFY so clients can refresh their working sets.
package pgtree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-kasir/internal/store"
)

const notifyChannel = "kasir_changes"

// Store implements store.Tree on Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool. Callers run Migrate before first use.
func New(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, errors.New("pgtree: pool is required")
	}
	return &Store{pool: pool}, nil
}

// Get implements store.Tree.
func (s *Store) Get(ctx context.Context, collection, id string, dst any) error {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("pgtree: get %s/%s: %w", collection, id, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("pgtree: decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// List implements store.Tree.
func (s *Store) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection = $1`, collection)
	if err != nil {
		return nil, fmt.Errorf("pgtree: list %s: %w", collection, err)
	}
	defer rows.Close()

	out := map[string]json.RawMessage{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("pgtree: scan %s: %w", collection, err)
		}
		out[id] = json.RawMessage(data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgtree: list %s: %w", collection, err)
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
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("pgtree: encode %s/%s: %w", collection, id, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, id, data)
	if err != nil {
		return fmt.Errorf("pgtree: set %s/%s: %w", collection, id, err)
	}
	s.notify(ctx, collection)
	return nil
}

// Update implements store.Tree via a JSONB merge.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("pgtree: encode patch %s/%s: %w", collection, id, err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2`,
		collection, id, patch)
	if err != nil {
		return fmt.Errorf("pgtree: update %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	s.notify(ctx, collection)
	return nil
}

// Delete implements store.Tree.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("pgtree: delete %s/%s: %w", collection, id, err)
	}
	s.notify(ctx, collection)
	return nil
}

// AddToField implements store.Tree as a single conditional UPDATE, so
// concurrent decrements against the same document cannot oversell.
func (s *Store) AddToField(ctx context.Context, collection, id, field string, delta, min int64) (int64, error) {
	var updated int64
	err := s.pool.QueryRow(ctx,
		`UPDATE documents
		 SET data = jsonb_set(data, ARRAY[$3], to_jsonb((data->>$3)::bigint + $4)),
		     updated_at = now()
		 WHERE collection = $1 AND id = $2 AND (data->>$3)::bigint + $4 >= $5
		 RETURNING (data->>$3)::bigint`,
		collection, id, field, delta, min,
	).Scan(&updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			checkErr := s.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM documents WHERE collection = $1 AND id = $2)`,
				collection, id,
			).Scan(&exists)
			if checkErr != nil {
				return 0, fmt.Errorf("pgtree: add %s/%s: %w", collection, id, checkErr)
			}
			if !exists {
				return 0, store.ErrNotFound
			}
			return 0, store.ErrConditionFailed
		}
		return 0, fmt.Errorf("pgtree: add %s/%s: %w", collection, id, err)
	}
	s.notify(ctx, collection)
	return updated, nil
}

// Watch implements store.Tree on a dedicated LISTEN connection.
func (s *Store) Watch(ctx context.Context, collections ...string) (<-chan store.Change, error) {
	wanted := make(map[string]struct{}, len(collections))
	for _, c := range collections {
		wanted[c] = struct{}{}
	}
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgtree: acquire listen conn: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("pgtree: listen: %w", err)
	}
	out := make(chan store.Change, 16)
	go func() {
		defer close(out)
		defer conn.Release()
		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				return
			}
			if len(wanted) > 0 {
				if _, ok := wanted[notification.Payload]; !ok {
					continue
				}
			}
			select {
			case out <- store.Change{Collection: notification.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Ping implements store.Tree.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements store.Tree. The pool is shared and closed by the owner.
func (s *Store) Close() error { return nil }

func (s *Store) notify(ctx context.Context, collection string) {
	_, _ = s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, collection)
}

// normalizeMigrateURL rewrites a postgres:// URL to the scheme registered by
// the migrate pgx/v5 driver.
func normalizeMigrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}
