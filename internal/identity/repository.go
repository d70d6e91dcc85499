package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenRecord is a persisted API token. Secret material is stored as a
// bcrypt hash; the plaintext secret exists only in the issued token.
type TokenRecord struct {
	ID         string
	SecretHash []byte
	StaffID    int64
	StaffName  string
	Role       Role
	Revoked    bool
}

// TokenStore looks up API tokens and staff.
type TokenStore interface {
	FindToken(ctx context.Context, tokenID string) (TokenRecord, error)
	FindStaff(ctx context.Context, staffID int64) (Actor, error)
}

// PGTokenStore is the PostgreSQL-backed TokenStore.
type PGTokenStore struct {
	pool *pgxpool.Pool
}

func NewPGTokenStore(pool *pgxpool.Pool) *PGTokenStore {
	return &PGTokenStore{pool: pool}
}

func (s *PGTokenStore) FindToken(ctx context.Context, tokenID string) (TokenRecord, error) {
	var rec TokenRecord
	err := s.pool.QueryRow(ctx, `
		SELECT t.id, t.secret_hash, t.revoked, st.id, st.name, st.role
		FROM api_tokens t
		JOIN staff st ON st.id = t.staff_id
		WHERE t.id = $1
	`, tokenID).Scan(&rec.ID, &rec.SecretHash, &rec.Revoked, &rec.StaffID, &rec.StaffName, &rec.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return TokenRecord{}, ErrTokenInvalid
	}
	if err != nil {
		return TokenRecord{}, fmt.Errorf("identity: find token: %w", err)
	}
	return rec, nil
}

func (s *PGTokenStore) FindStaff(ctx context.Context, staffID int64) (Actor, error) {
	var actor Actor
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, role FROM staff WHERE id = $1
	`, staffID).Scan(&actor.ID, &actor.Name, &actor.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return Actor{}, ErrTokenInvalid
	}
	if err != nil {
		return Actor{}, fmt.Errorf("identity: find staff: %w", err)
	}
	return actor, nil
}
