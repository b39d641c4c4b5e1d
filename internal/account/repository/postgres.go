package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vibhanet-auth/backend/internal/account/domain"
	"vibhanet-auth/backend/internal/db"
)

const phoneConstraint = "users_phone_e164_key"

const accountColumns = `id, phone_e164, password_hash, failed_login_count, last_failed_login_at, locked_until, created_at, password_updated_at`

const recordLoginFailureSQL = `
UPDATE users
SET failed_login_count = failed_login_count + 1,
    locked_until = CASE
        WHEN failed_login_count + 1 >= $2 THEN $3::timestamptz
        ELSE NULL
    END,
    last_failed_login_at = $4
WHERE id = $1
  AND (locked_until IS NULL OR locked_until <= $4)
RETURNING failed_login_count, locked_until`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an account repository that uses the given db for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByPhone returns the account with the given canonical phone, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM users WHERE phone_e164 = $1`, phone)
	return scanAccount(row)
}

// Create persists the account. The account must have ID set. Returns ErrPhoneTaken when
// the phone is already registered, including when a concurrent signup won the race.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, phone_e164, password_hash, created_at, password_updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Phone, a.PasswordHash, a.CreatedAt, a.PasswordUpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, phoneConstraint) {
			return ErrPhoneTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// RecordLoginFailure increments the failure count and sets locked_until when the
// threshold is reached, in one statement guarded against already-locked rows.
// last_failed_login_at is recorded for audit only.
func (r *PostgresRepository) RecordLoginFailure(ctx context.Context, id string, policy domain.LockoutPolicy, now time.Time) (domain.FailureResult, error) {
	lockUntil := now.Add(policy.Duration)
	var (
		count  int
		locked sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, recordLoginFailureSQL,
		id, policy.Threshold, lockUntil, now,
	).Scan(&count, &locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.FailureResult{}, nil
		}
		return domain.FailureResult{}, fmt.Errorf("record login failure: %w", err)
	}
	return domain.FailureResult{
		FailedLoginCount: count,
		LockedUntil:      nullTimeToPtr(locked),
		Applied:          true,
	}, nil
}

// ResetLoginFailures clears failed_login_count, last_failed_login_at and locked_until.
func (r *PostgresRepository) ResetLoginFailures(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET failed_login_count = 0, last_failed_login_at = NULL, locked_until = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash, used to upgrade hash parameters on login.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, hash []byte) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var (
		a          domain.Account
		lastFailed sql.NullTime
		locked     sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Phone, &a.PasswordHash, &a.FailedLoginCount, &lastFailed, &locked, &a.CreatedAt, &a.PasswordUpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.LastFailedLoginAt = nullTimeToPtr(lastFailed)
	a.LockedUntil = nullTimeToPtr(locked)
	return &a, nil
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
