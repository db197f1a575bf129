package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	"github.com/m-a-mahammad/shop-checkout/internal/event"
	"github.com/m-a-mahammad/shop-checkout/internal/pricing"
	"github.com/m-a-mahammad/shop-checkout/internal/repository"
	"github.com/m-a-mahammad/shop-checkout/internal/store"
	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
	"github.com/m-a-mahammad/shop-checkout/pkg/logger"
)

// Gateway is the slice of the payment gateway client the initiator needs.
type Gateway interface {
	CreateIntent(ctx context.Context, intent *domain.PaymentIntentRequest) (domain.PaymentSession, error)
	IframeURL(token, iframeID string) string
	UnifiedCheckoutURL(clientSecret string) string
}

// EventSink publishes payment lifecycle events.
type EventSink interface {
	SessionCreated(ctx context.Context, data event.SessionCreatedData)
	SessionRejected(ctx context.Context, data event.SessionRejectedData)
}

// SessionInput is the user-supplied part of a payment-session request.
type SessionInput struct {
	Method       string
	BillingInfo  domain.BillingInfo
	CustomerInfo domain.CustomerInfo
}

// Navigation tells the caller where the payment flow goes next. For the
// none kind the order needs no electronic payment step at all.
type Navigation struct {
	Kind             domain.SessionKind
	URL              string
	Token            string
	IframeID         string
	SpecialReference string
	Amount           int64
	Currency         string
}

// Config holds the static parameters of intent creation.
type Config struct {
	Currency          string
	ExpirationSeconds int
	RedirectionURL    string
	NotificationURL   string
}

// Initiator runs the payment-session handshake end to end. Submissions are
// guarded per user: while one is in flight a second one is refused, and a
// failed submission is never retried automatically. Every attempt gets a
// fresh special reference and is recorded before the gateway sees it.
type Initiator struct {
	gateway  Gateway
	resolver *MethodResolver
	calc     *pricing.Calculator
	store    *store.Store
	attempts repository.AttemptRepository
	events   EventSink
	inflight *inflightGuard
	cfg      Config
	logger   *slog.Logger
}

// NewInitiator wires up a session initiator.
func NewInitiator(
	gateway Gateway,
	resolver *MethodResolver,
	calc *pricing.Calculator,
	st *store.Store,
	attempts repository.AttemptRepository,
	events EventSink,
	cfg Config,
	log *slog.Logger,
) *Initiator {
	return &Initiator{
		gateway:  gateway,
		resolver: resolver,
		calc:     calc,
		store:    st,
		attempts: attempts,
		events:   events,
		inflight: newInflightGuard(),
		cfg:      cfg,
		logger:   log,
	}
}

// InitiateSession validates the request, prices the cart server-side and
// creates a gateway session for electronic methods.
func (i *Initiator) InitiateSession(ctx context.Context, userID string, input SessionInput) (*Navigation, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required for checkout")
	}
	ctx = logger.WithUserID(ctx, userID)

	method, err := domain.ParsePaymentMethod(input.Method)
	if err != nil {
		return nil, err
	}

	cart, err := i.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	resolution := i.resolver.Resolve(method)
	if !resolution.Electronic {
		i.logger.InfoContext(ctx, "no electronic payment action required",
			slog.String("method", string(method)),
		)
		return &Navigation{Kind: domain.SessionNone, Currency: i.cfg.Currency}, nil
	}

	if !i.inflight.acquire(userID) {
		return nil, apperrors.Conflict("a payment submission is already in flight")
	}
	defer i.inflight.release(userID)

	amount, err := i.calc.ComputeTotal(ctx, userID, cart.Lines)
	if err != nil {
		return nil, err
	}

	// A fresh reference per attempt: a resubmission after failure is a new
	// attempt with its own identity, never a replay of the old one.
	specialReference := "ORD_" + uuid.New().String()

	now := time.Now().UTC()
	attempt := &repository.PaymentAttempt{
		ID:               uuid.New().String(),
		UserID:           userID,
		SpecialReference: specialReference,
		Amount:           amount,
		Currency:         i.cfg.Currency,
		Method:           string(method),
		Status:           repository.AttemptPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := i.attempts.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("record payment attempt: %w", err)
	}

	session, err := i.gateway.CreateIntent(ctx, i.buildIntent(userID, cart, resolution, input, amount, specialReference))
	if err != nil {
		return nil, i.recordFailure(ctx, userID, specialReference, err)
	}

	// The initiating request may be gone by the time the gateway answers;
	// a session nobody can navigate to is recorded and dropped.
	if ctxErr := ctx.Err(); ctxErr != nil {
		i.updateStatus(ctx, specialReference, repository.AttemptFailed, "", "caller went away before session delivery")
		return nil, ctxErr
	}

	i.updateStatus(ctx, specialReference, repository.AttemptSessionCreated, string(session.Kind), "")
	i.events.SessionCreated(ctx, event.SessionCreatedData{
		UserID:           userID,
		SpecialReference: specialReference,
		Amount:           amount,
		Currency:         i.cfg.Currency,
		Method:           string(method),
		SessionKind:      string(session.Kind),
	})
	i.logger.InfoContext(ctx, "payment session created",
		slog.String("special_reference", specialReference),
		slog.String("session_kind", string(session.Kind)),
		slog.Int64("amount", amount),
	)

	return i.navigation(session, specialReference, amount), nil
}

// buildIntent assembles the gateway payload. Item amounts carry the catalog
// display prices for the gateway receipt; the billed amount is the
// server-computed total.
func (i *Initiator) buildIntent(userID string, cart *domain.Cart, resolution Resolution, input SessionInput, amount int64, specialReference string) *domain.PaymentIntentRequest {
	items := make([]domain.IntentItem, len(cart.Lines))
	for idx, line := range cart.Lines {
		items[idx] = domain.IntentItem{
			Name:     line.Name,
			Amount:   line.DisplayPrice,
			Quantity: line.Quantity,
		}
	}

	return &domain.PaymentIntentRequest{
		Amount:            amount,
		Currency:          i.cfg.Currency,
		UserID:            userID,
		IntegrationID:     resolution.IntegrationID,
		Items:             items,
		BillingInfo:       input.BillingInfo,
		CustomerInfo:      input.CustomerInfo,
		CartID:            fmt.Sprintf("%s:%d", cart.UserID, cart.Revision),
		SpecialReference:  specialReference,
		ExpirationSeconds: i.cfg.ExpirationSeconds,
		RedirectionURL:    i.cfg.RedirectionURL,
		NotificationURL:   i.cfg.NotificationURL,
	}
}

// recordFailure marks the attempt according to the gateway outcome and
// passes the original error through. The in-flight slot is released by the
// caller's defer, so the user may resubmit; that resubmission will be a new
// attempt.
func (i *Initiator) recordFailure(ctx context.Context, userID, specialReference string, err error) error {
	if errors.Is(err, apperrors.ErrGatewayRejected) {
		i.updateStatus(ctx, specialReference, repository.AttemptRejected, "", err.Error())
		i.events.SessionRejected(ctx, event.SessionRejectedData{
			UserID:           userID,
			SpecialReference: specialReference,
			Reason:           err.Error(),
		})
		return err
	}

	i.updateStatus(ctx, specialReference, repository.AttemptFailed, "", err.Error())
	i.logger.ErrorContext(ctx, "payment submission failed",
		slog.String("special_reference", specialReference),
		slog.String("error", err.Error()),
	)
	return err
}

// updateStatus is best effort: the attempt log must not break the flow it
// audits. The write runs detached from the caller's context, so an outcome
// is recorded even when the caller is already gone.
func (i *Initiator) updateStatus(ctx context.Context, specialReference string, status repository.AttemptStatus, sessionKind, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := i.attempts.UpdateStatus(ctx, specialReference, status, sessionKind, reason); err != nil {
		i.logger.ErrorContext(ctx, "update payment attempt",
			slog.String("special_reference", specialReference),
			slog.String("error", err.Error()),
		)
	}
}

// navigation translates a gateway session into the caller's next step.
func (i *Initiator) navigation(session domain.PaymentSession, specialReference string, amount int64) *Navigation {
	nav := &Navigation{
		Kind:             session.Kind,
		SpecialReference: specialReference,
		Amount:           amount,
		Currency:         i.cfg.Currency,
	}

	switch session.Kind {
	case domain.SessionIframe:
		nav.Token = session.Token
		nav.IframeID = session.IframeID
		nav.URL = "/payment-frame/" + url.PathEscape(session.Token) + "/" + url.PathEscape(session.IframeID)
	case domain.SessionUnified:
		nav.URL = i.gateway.UnifiedCheckoutURL(session.ClientSecret)
	}

	return nav
}
