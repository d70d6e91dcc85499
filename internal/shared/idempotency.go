package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIdempotencyConflict indicates the key was already consumed by a
// previous call of the same operation.
var ErrIdempotencyConflict = errors.New("shared: idempotency key already used")

// IdempotencyStore guards side-effecting operations against replays.
// Keys are namespaced per operation so the same business key can guard
// different operations independently.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// CheckAndInsert claims the key for the operation. Returns
// ErrIdempotencyConflict when the key was already claimed.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, operation string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, operation, created_at)
		VALUES ($1, $2, now())
	`, key, operation)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return fmt.Errorf("shared: insert idempotency key: %w", err)
	}
	return nil
}

// Delete releases a claimed key. Used to roll back a claim when the
// guarded operation fails after the claim succeeded.
func (s *IdempotencyStore) Delete(ctx context.Context, key, operation string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM idempotency_keys WHERE key = $1 AND operation = $2
	`, key, operation)
	if err != nil {
		return fmt.Errorf("shared: delete idempotency key: %w", err)
	}
	return nil
}

// PurgeOlderThan removes keys claimed before the cutoff. Invoked by the
// maintenance job; completed operations never need their key again once
// the retention window has passed.
func (s *IdempotencyStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM idempotency_keys WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("shared: purge idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
