package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"vibhanet-auth/backend/internal/session/domain"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		conn.Close()
	})
	return NewPostgresRepository(conn), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(14 * 24 * time.Hour)
	mock.ExpectExec(`INSERT INTO sessions \(id, user_id, created_at, expires_at\)`).
		WithArgs("tok", "a1", now, exp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), &domain.Session{ID: "tok", AccountID: "a1", CreatedAt: now, ExpiresAt: exp}); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`INSERT INTO sessions`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "sessions_pkey"})

	err := repo.Create(context.Background(), &domain.Session{ID: "tok", AccountID: "a1"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Create err = %v, want ErrDuplicateID", err)
	}
}

func TestGetValid_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(time.Hour)
	mock.ExpectQuery(`FROM sessions s\s+JOIN users u ON s.user_id = u.id`).
		WithArgs("tok", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "phone_e164", "expires_at"}).
			AddRow("tok", "a1", "+16502530000", exp))

	p, err := repo.GetValid(context.Background(), "tok", now)
	if err != nil {
		t.Fatalf("GetValid: %v", err)
	}
	if p == nil || p.AccountID != "a1" || p.Phone != "+16502530000" || !p.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestGetValid_Absent(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()
	mock.ExpectQuery(`FROM sessions s`).
		WithArgs("tok", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "phone_e164", "expires_at"}))

	p, err := repo.GetValid(context.Background(), "tok", now)
	if err != nil || p != nil {
		t.Fatalf("GetValid = (%+v, %v), want (nil, nil)", p, err)
	}
}

func TestRevoke(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE sessions SET revoked_at = \$2 WHERE id = \$1 AND revoked_at IS NULL`).
		WithArgs("tok", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sessions SET revoked_at`).
		WithArgs("tok", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	revoked, err := repo.Revoke(context.Background(), "tok", at)
	if err != nil || !revoked {
		t.Fatalf("first Revoke = (%v, %v), want (true, nil)", revoked, err)
	}
	revoked, err = repo.Revoke(context.Background(), "tok", at)
	if err != nil || revoked {
		t.Fatalf("second Revoke = (%v, %v), want (false, nil)", revoked, err)
	}
}

func TestRevoke_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`UPDATE sessions`).WillReturnError(errors.New("db down"))
	if _, err := repo.Revoke(context.Background(), "tok", time.Now()); err == nil {
		t.Fatal("Revoke should surface database errors")
	}
}
