// Package repository defines persistence interfaces for payment attempts.
package repository

import (
	"context"
	"time"
)

// AttemptStatus is the lifecycle state of a recorded payment attempt.
type AttemptStatus string

const (
	// AttemptPending is set when the attempt is recorded, before the
	// gateway call.
	AttemptPending AttemptStatus = "pending"
	// AttemptSessionCreated means the gateway issued a usable session.
	AttemptSessionCreated AttemptStatus = "session_created"
	// AttemptRejected means the gateway answered but refused a session.
	AttemptRejected AttemptStatus = "rejected"
	// AttemptFailed means the submission failed in transport; the gateway
	// may or may not have seen it.
	AttemptFailed AttemptStatus = "failed"
)

// PaymentAttempt is the audit record of one payment-session submission. The
// special reference is unique across all attempts, which is what makes an
// accidental duplicate submission visible as a conflict.
type PaymentAttempt struct {
	ID               string
	UserID           string
	SpecialReference string
	Amount           int64
	Currency         string
	Method           string
	Status           AttemptStatus
	SessionKind      string
	FailureReason    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AttemptRepository persists payment attempts.
type AttemptRepository interface {
	// Create inserts a new attempt. A duplicate special reference yields
	// ErrConflict.
	Create(ctx context.Context, attempt *PaymentAttempt) error

	// UpdateStatus records the outcome of an attempt identified by its
	// special reference.
	UpdateStatus(ctx context.Context, specialReference string, status AttemptStatus, sessionKind, failureReason string) error

	// GetBySpecialReference retrieves an attempt by its special reference.
	GetBySpecialReference(ctx context.Context, specialReference string) (*PaymentAttempt, error)
}
