package domain

import (
	"fmt"

	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
)

// PaymentMethod identifies how the user wants to pay.
type PaymentMethod string

const (
	MethodCard           PaymentMethod = "card"
	MethodWallet         PaymentMethod = "wallet"
	MethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// ParsePaymentMethod validates a raw method string. Unknown methods are a
// hard validation error, not a silent fallback.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case MethodCard, MethodWallet, MethodCashOnDelivery:
		return PaymentMethod(s), nil
	default:
		return "", apperrors.InvalidInput(fmt.Sprintf("unknown payment method: %q", s))
	}
}

// Electronic reports whether the method requires a gateway session.
func (m PaymentMethod) Electronic() bool {
	return m == MethodCard || m == MethodWallet
}

// BillingInfo is the billing address block forwarded to the payment gateway.
type BillingInfo struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Country     string `json:"country" validate:"required"`
	City        string `json:"city" validate:"required"`
	Street      string `json:"street"`
	Building    string `json:"building"`
	Floor       string `json:"floor"`
	Apartment   string `json:"apartment"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
}

// CustomerInfo is the customer identity block forwarded to the gateway.
type CustomerInfo struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

// IntentItem is a line item attached to a payment intent for the gateway's
// receipt. Amounts here are informational; the billed amount is the intent's
// Amount field.
type IntentItem struct {
	Name        string `json:"name"`
	Amount      int64  `json:"amount"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description,omitempty"`
}

// PaymentIntentRequest is the full payload submitted to the gateway when
// creating a payment session. Amount is the server-computed cart total in
// minor units. SpecialReference is freshly generated per attempt and is the
// idempotency handle for the whole submission.
type PaymentIntentRequest struct {
	Amount            int64
	Currency          string
	UserID            string
	IntegrationID     int64
	Items             []IntentItem
	BillingInfo       BillingInfo
	CustomerInfo      CustomerInfo
	CartID            string
	SpecialReference  string
	ExpirationSeconds int
	RedirectionURL    string
	NotificationURL   string
}

// SessionKind tags the shape of a successfully created gateway session.
type SessionKind string

const (
	// SessionIframe means the gateway issued a legacy iframe payment key.
	SessionIframe SessionKind = "iframe"
	// SessionUnified means the gateway issued a unified checkout client
	// secret.
	SessionUnified SessionKind = "unified_checkout"
	// SessionNone means no electronic session is needed (cash on delivery
	// or no integration configured for the method).
	SessionNone SessionKind = "none"
)

// PaymentSession is the decoded outcome of a create-payment call. Exactly one
// branch is populated according to Kind.
type PaymentSession struct {
	Kind SessionKind

	// Iframe branch.
	Token    string
	IframeID string

	// Unified checkout branch.
	ClientSecret string
}

// IframeSession builds the iframe branch of a payment session.
func IframeSession(token, iframeID string) PaymentSession {
	return PaymentSession{Kind: SessionIframe, Token: token, IframeID: iframeID}
}

// UnifiedSession builds the unified checkout branch of a payment session.
func UnifiedSession(clientSecret string) PaymentSession {
	return PaymentSession{Kind: SessionUnified, ClientSecret: clientSecret}
}
