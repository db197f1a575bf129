// Package postgres implements the attempt repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/m-a-mahammad/shop-checkout/internal/repository"
	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
)

// DB is the slice of pgxpool.Pool the repository uses. pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AttemptRepository implements repository.AttemptRepository using PostgreSQL.
type AttemptRepository struct {
	db DB
}

// NewAttemptRepository creates a new PostgreSQL-backed attempt repository.
func NewAttemptRepository(db DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create inserts a new payment attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *repository.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (id, user_id, special_reference, amount, currency, method, status, session_kind, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.SpecialReference,
		a.Amount,
		a.Currency,
		a.Method,
		a.Status,
		a.SessionKind,
		a.FailureReason,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("payment attempt %s already recorded", a.SpecialReference))
		}
		return fmt.Errorf("insert payment attempt: %w", err)
	}

	return nil
}

// UpdateStatus records the outcome of an attempt.
func (r *AttemptRepository) UpdateStatus(ctx context.Context, specialReference string, status repository.AttemptStatus, sessionKind, failureReason string) error {
	query := `
		UPDATE payment_attempts
		SET status = $1, session_kind = $2, failure_reason = $3, updated_at = $4
		WHERE special_reference = $5`

	ct, err := r.db.Exec(ctx, query, status, sessionKind, failureReason, time.Now().UTC(), specialReference)
	if err != nil {
		return fmt.Errorf("update payment attempt: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("payment attempt", specialReference)
	}

	return nil
}

// GetBySpecialReference retrieves an attempt by its special reference.
func (r *AttemptRepository) GetBySpecialReference(ctx context.Context, specialReference string) (*repository.PaymentAttempt, error) {
	query := `
		SELECT id, user_id, special_reference, amount, currency, method, status, session_kind, failure_reason, created_at, updated_at
		FROM payment_attempts
		WHERE special_reference = $1`

	var a repository.PaymentAttempt
	err := r.db.QueryRow(ctx, query, specialReference).Scan(
		&a.ID,
		&a.UserID,
		&a.SpecialReference,
		&a.Amount,
		&a.Currency,
		&a.Method,
		&a.Status,
		&a.SessionKind,
		&a.FailureReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("payment attempt", specialReference)
		}
		return nil, fmt.Errorf("get payment attempt: %w", err)
	}

	return &a, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
