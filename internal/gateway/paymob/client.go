// Package paymob is the HTTP client for the Paymob payment gateway. A
// created intention carries either legacy iframe payment keys or a unified
// checkout client secret; the decoder picks exactly one branch.
package paymob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
	"github.com/m-a-mahammad/shop-checkout/pkg/httpclient"
)

// Doer executes HTTP requests without retries. Intent creation is not
// idempotent on the gateway side, so only single-attempt transports fit.
type Doer interface {
	DoOnce(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds gateway credentials and endpoints.
type Config struct {
	// BaseURL is the API origin, e.g. https://accept.paymob.com.
	BaseURL string
	// SecretKey authenticates intention creation.
	SecretKey string
	// PublicKey identifies the merchant in hosted checkout URLs.
	PublicKey string
	// HostedBaseURL is the origin serving the hosted payment pages.
	// Usually the same host as BaseURL.
	HostedBaseURL string
}

// Client creates payment intentions against the gateway.
type Client struct {
	http   Doer
	cfg    Config
	logger *slog.Logger
}

// New creates a gateway client.
func New(httpClient Doer, cfg Config, log *slog.Logger) *Client {
	if cfg.HostedBaseURL == "" {
		cfg.HostedBaseURL = cfg.BaseURL
	}
	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: log,
	}
}

const serviceName = "paymob"

type intentionRequest struct {
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	PaymentMethods   []int64         `json:"payment_methods"`
	Items            []intentionItem `json:"items"`
	BillingData      billingData     `json:"billing_data"`
	Customer         customerData    `json:"customer"`
	Extras           intentionExtras `json:"extras"`
	SpecialReference string          `json:"special_reference"`
	Expiration       int             `json:"expiration,omitempty"`
	RedirectionURL   string          `json:"redirection_url,omitempty"`
	NotificationURL  string          `json:"notification_url,omitempty"`
}

type intentionItem struct {
	Name        string `json:"name"`
	Amount      int64  `json:"amount"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description,omitempty"`
}

type billingData struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Country     string `json:"country"`
	City        string `json:"city"`
	Street      string `json:"street,omitempty"`
	Building    string `json:"building,omitempty"`
	Floor       string `json:"floor,omitempty"`
	Apartment   string `json:"apartment,omitempty"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
}

type customerData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type intentionExtras struct {
	CartID string `json:"cart_id,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

type intentionResponse struct {
	PaymentKeys  []paymentKey `json:"payment_keys"`
	ClientSecret string       `json:"client_secret"`
}

type paymentKey struct {
	Key      string      `json:"key"`
	IframeID json.Number `json:"iframe_id"`
}

// CreateIntent submits a payment intention and decodes the resulting
// session. The request goes out exactly once: a transport failure surfaces
// as an error and the caller decides whether the user may resubmit.
func (c *Client) CreateIntent(ctx context.Context, intent *domain.PaymentIntentRequest) (domain.PaymentSession, error) {
	items := make([]intentionItem, len(intent.Items))
	for i, item := range intent.Items {
		items[i] = intentionItem{
			Name:        item.Name,
			Amount:      item.Amount,
			Quantity:    item.Quantity,
			Description: item.Description,
		}
	}

	payload := intentionRequest{
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		PaymentMethods: []int64{intent.IntegrationID},
		Items:          items,
		BillingData: billingData{
			FirstName:   intent.BillingInfo.FirstName,
			LastName:    intent.BillingInfo.LastName,
			Email:       intent.BillingInfo.Email,
			PhoneNumber: intent.BillingInfo.PhoneNumber,
			Country:     intent.BillingInfo.Country,
			City:        intent.BillingInfo.City,
			Street:      intent.BillingInfo.Street,
			Building:    intent.BillingInfo.Building,
			Floor:       intent.BillingInfo.Floor,
			Apartment:   intent.BillingInfo.Apartment,
			State:       intent.BillingInfo.State,
			PostalCode:  intent.BillingInfo.PostalCode,
		},
		Customer: customerData{
			FirstName: intent.CustomerInfo.FirstName,
			LastName:  intent.CustomerInfo.LastName,
			Email:     intent.CustomerInfo.Email,
		},
		Extras: intentionExtras{
			CartID: intent.CartID,
			UserID: intent.UserID,
		},
		SpecialReference: intent.SpecialReference,
		Expiration:       intent.ExpirationSeconds,
		RedirectionURL:   intent.RedirectionURL,
		NotificationURL:  intent.NotificationURL,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("marshal intention payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/intention/", bytes.NewReader(data))
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("create intention request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.cfg.SecretKey)

	resp, err := c.http.DoOnce(ctx, req)
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("create payment intention: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.PaymentSession{}, httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("read intention response: %w", err)
	}

	session, err := decodeSession(body)
	if err != nil {
		c.logger.ErrorContext(ctx, "gateway returned unusable intention response",
			slog.String("special_reference", intent.SpecialReference),
			slog.String("error", err.Error()),
		)
		return domain.PaymentSession{}, err
	}

	return session, nil
}

// decodeSession picks the session branch from an intention response. The
// iframe branch wins when a payment key with both a token and an iframe ID
// is present; otherwise a non-empty client secret selects unified checkout.
// Anything else is a rejection even on HTTP 2xx.
func decodeSession(body []byte) (domain.PaymentSession, error) {
	var decoded intentionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.PaymentSession{}, apperrors.GatewayRejected("gateway response is not valid JSON")
	}

	if len(decoded.PaymentKeys) > 0 {
		first := decoded.PaymentKeys[0]
		if first.Key != "" && first.IframeID.String() != "" {
			return domain.IframeSession(first.Key, first.IframeID.String()), nil
		}
	}

	if decoded.ClientSecret != "" {
		return domain.UnifiedSession(decoded.ClientSecret), nil
	}

	return domain.PaymentSession{}, apperrors.GatewayRejected("gateway returned neither payment keys nor a client secret")
}
