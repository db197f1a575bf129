package http

import (
	"log/slog"
	"net/http"

	"github.com/m-a-mahammad/shop-checkout/internal/checkout"
	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
	"github.com/m-a-mahammad/shop-checkout/pkg/httputil"
	"github.com/m-a-mahammad/shop-checkout/pkg/validator"
)

// CheckoutHandler serves payment-session initiation.
type CheckoutHandler struct {
	initiator *checkout.Initiator
	logger    *slog.Logger
}

// NewCheckoutHandler creates a checkout handler.
func NewCheckoutHandler(initiator *checkout.Initiator, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		initiator: initiator,
		logger:    logger,
	}
}

// paymentSessionRequest is the payload for initiating a payment session.
type paymentSessionRequest struct {
	PaymentMethod string              `json:"payment_method" validate:"required"`
	Billing       domain.BillingInfo  `json:"billing" validate:"required"`
	Customer      domain.CustomerInfo `json:"customer" validate:"required"`
}

// paymentSessionResponse tells the client where the payment flow goes next.
type paymentSessionResponse struct {
	Kind             string `json:"kind"`
	URL              string `json:"url,omitempty"`
	Token            string `json:"token,omitempty"`
	IframeID         string `json:"iframe_id,omitempty"`
	SpecialReference string `json:"special_reference,omitempty"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
}

// CreatePaymentSession validates the submission and runs the gateway
// handshake.
func (h *CheckoutHandler) CreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required for checkout"), h.logger)
		return
	}

	var req paymentSessionRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	nav, err := h.initiator.InitiateSession(r.Context(), userID, checkout.SessionInput{
		Method:       req.PaymentMethod,
		BillingInfo:  req.Billing,
		CustomerInfo: req.Customer,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: paymentSessionResponse{
		Kind:             string(nav.Kind),
		URL:              nav.URL,
		Token:            nav.Token,
		IframeID:         nav.IframeID,
		SpecialReference: nav.SpecialReference,
		Amount:           nav.Amount,
		Currency:         nav.Currency,
	}})
}
