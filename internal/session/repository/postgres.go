package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vibhanet-auth/backend/internal/db"
	"vibhanet-auth/backend/internal/session/domain"
)

const sessionsPKey = "sessions_pkey"

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the session. Returns ErrDuplicateID if the id is already taken.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.AccountID, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		if db.IsUniqueViolation(err, sessionsPKey) {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetValid returns the session joined with its owning account when it is unrevoked and
// expires after now. It returns nil, nil for missing, revoked or expired sessions.
func (r *PostgresRepository) GetValid(ctx context.Context, id string, now time.Time) (*domain.Principal, error) {
	var p domain.Principal
	err := r.db.QueryRowContext(ctx,
		`SELECT s.id, s.user_id, u.phone_e164, s.expires_at
		 FROM sessions s
		 JOIN users u ON s.user_id = u.id
		 WHERE s.id = $1
		   AND s.expires_at > $2
		   AND s.revoked_at IS NULL`,
		id, now).Scan(&p.SessionID, &p.AccountID, &p.Phone, &p.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &p, nil
}

// Revoke marks the session revoked at the given time if it is not already revoked.
func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return n > 0, nil
}
