// Package shared holds cross-module infrastructure: audit logging,
// idempotency keys, distributed locks and pagination helpers.
package shared

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog is a single append-only record of a state-changing action.
type AuditLog struct {
	ID       int64
	ActorID  *int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditStore persists audit records.
type AuditStore struct {
	pool *pgxpool.Pool
}

func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Record appends an audit entry. Failures are returned to the caller;
// services decide whether audit failures abort the operation.
func (s *AuditStore) Record(ctx context.Context, log AuditLog) error {
	meta := log.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("shared: marshal audit meta: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, log.ActorID, log.Action, log.Entity, log.EntityID, payload)
	if err != nil {
		return fmt.Errorf("shared: insert audit log: %w", err)
	}
	return nil
}

// List returns the most recent audit entries for an entity.
func (s *AuditStore) List(ctx context.Context, entity, entityID string, limit int) ([]AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, actor_id, action, entity, entity_id, meta, at
		FROM audit_logs
		WHERE entity = $1 AND entity_id = $2
		ORDER BY at DESC
		LIMIT $3
	`, entity, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("shared: list audit logs: %w", err)
	}
	defer rows.Close()

	var out []AuditLog
	for rows.Next() {
		var (
			log AuditLog
			raw []byte
		)
		if err := rows.Scan(&log.ID, &log.ActorID, &log.Action, &log.Entity, &log.EntityID, &raw, &log.At); err != nil {
			return nil, fmt.Errorf("shared: scan audit log: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &log.Meta); err != nil {
				return nil, fmt.Errorf("shared: unmarshal audit meta: %w", err)
			}
		}
		out = append(out, log)
	}
	return out, rows.Err()
}
