package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-a-mahammad/shop-checkout/internal/cartsync"
	"github.com/m-a-mahammad/shop-checkout/internal/checkout"
	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	"github.com/m-a-mahammad/shop-checkout/internal/event"
	"github.com/m-a-mahammad/shop-checkout/internal/pricing"
	"github.com/m-a-mahammad/shop-checkout/internal/repository"
	"github.com/m-a-mahammad/shop-checkout/internal/store"
	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
	"github.com/m-a-mahammad/shop-checkout/pkg/health"
	"github.com/m-a-mahammad/shop-checkout/pkg/logger"
)

const testSecret = "test-secret"

// stubCartAPI is a controllable upstream cart service.
type stubCartAPI struct {
	lines    []domain.CartLine
	fetchErr error
	addErr   error
}

func (s *stubCartAPI) FetchCart(context.Context, string) ([]domain.CartLine, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.lines, nil
}

func (s *stubCartAPI) AddItem(context.Context, string, string, int) error { return s.addErr }

func (s *stubCartAPI) SetItemQuantity(context.Context, string, string, int) error { return nil }

func (s *stubCartAPI) RemoveItem(context.Context, string, string) error { return nil }

type stubQuoter struct {
	total int64
	err   error
}

func (s *stubQuoter) QuoteTotal(context.Context, string, []domain.CartLine) (int64, error) {
	return s.total, s.err
}

type stubGateway struct {
	session domain.PaymentSession
	err     error
}

func (s *stubGateway) CreateIntent(context.Context, *domain.PaymentIntentRequest) (domain.PaymentSession, error) {
	return s.session, s.err
}

func (s *stubGateway) IframeURL(token, iframeID string) string {
	return "https://accept.example.com/api/acceptance/iframe/" + iframeID + "?payment_token=" + token
}

func (s *stubGateway) UnifiedCheckoutURL(secret string) string {
	return "https://accept.example.com/unifiedcheckout/?clientSecret=" + secret
}

type stubAttempts struct {
	created []*repository.PaymentAttempt
}

func (s *stubAttempts) Create(_ context.Context, a *repository.PaymentAttempt) error {
	s.created = append(s.created, a)
	return nil
}

func (s *stubAttempts) UpdateStatus(context.Context, string, repository.AttemptStatus, string, string) error {
	return nil
}

func (s *stubAttempts) GetBySpecialReference(context.Context, string) (*repository.PaymentAttempt, error) {
	return nil, apperrors.NotFound("payment attempt", "x")
}

type noopEvents struct{}

func (noopEvents) SessionCreated(context.Context, event.SessionCreatedData)   {}
func (noopEvents) SessionRejected(context.Context, event.SessionRejectedData) {}

type serverFixture struct {
	srv      *httptest.Server
	cartAPI  *stubCartAPI
	gateway  *stubGateway
	attempts *stubAttempts
}

func newServer(t *testing.T) *serverFixture {
	t.Helper()

	log := logger.NewWithWriter("test", "debug", io.Discard)

	f := &serverFixture{
		cartAPI:  &stubCartAPI{},
		gateway:  &stubGateway{session: domain.IframeSession("tok", "5")},
		attempts: &stubAttempts{},
	}

	st := store.New(store.NewMemorySnapshotRepository())
	sync := cartsync.New(f.cartAPI, st, log)

	calc := pricing.NewCalculator(&stubQuoter{total: 14900}, "EGP")
	watcher := pricing.NewWatcher(calc, time.Second, log)
	watcher.Attach(st)

	initiator := checkout.NewInitiator(
		f.gateway,
		checkout.NewMethodResolver(5165991, 5166449),
		calc,
		st,
		f.attempts,
		noopEvents{},
		checkout.Config{Currency: "EGP", ExpirationSeconds: 3600},
		log,
	)

	router := NewRouter(RouterConfig{
		Cart:          NewCartHandler(sync, watcher, log),
		Checkout:      NewCheckoutHandler(initiator, log),
		Frame:         NewFrameHandler(f.gateway, log),
		Health:        health.NewHandler(),
		JWTSecret:     testSecret,
		AllowedOrigin: "*",
		RateRPS:       100,
		RateBurst:     100,
		PprofCIDRs:    []string{"127.0.0.0/8"},
	}, log)

	f.srv = httptest.NewServer(router)
	t.Cleanup(f.srv.Close)
	return f
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, auth string, body any) *http.Response {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeData(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

func TestRouter_RequiresAuth(t *testing.T) {
	f := newServer(t)

	resp := doRequest(t, f.srv, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, f.srv, http.MethodGet, "/api/v1/cart", "Bearer garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetCart_RefreshesOnFirstLoad(t *testing.T) {
	f := newServer(t)
	f.cartAPI.lines = []domain.CartLine{{ProductID: "p1", Name: "Mug", DisplayPrice: 2500, Quantity: 2}}

	resp := doRequest(t, f.srv, http.MethodGet, "/api/v1/cart", bearerToken(t, "user-1"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view struct {
		Lines    []domain.CartLine `json:"lines"`
		Revision int64             `json:"revision"`
		Total    domain.TotalState `json:"total"`
	}
	decodeData(t, resp, &view)

	require.Len(t, view.Lines, 1)
	assert.Equal(t, int64(1), view.Revision)
	assert.Equal(t, int64(14900), view.Total.Amount)
}

func TestGetCart_UpstreamFailureIsAnError(t *testing.T) {
	f := newServer(t)
	f.cartAPI.fetchErr = apperrors.Unavailable("cart-service down")

	resp := doRequest(t, f.srv, http.MethodGet, "/api/v1/cart", bearerToken(t, "user-1"), nil)

	// The failure surfaces as an error response, never as an empty cart.
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAddItem(t *testing.T) {
	f := newServer(t)

	resp := doRequest(t, f.srv, http.MethodPost, "/api/v1/cart/items", bearerToken(t, "user-1"), map[string]any{
		"product_id":    "p1",
		"name":          "Mug",
		"display_price": 2500,
		"quantity":      2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view struct {
		Lines []domain.CartLine `json:"lines"`
	}
	decodeData(t, resp, &view)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)
}

func TestAddItem_RejectsZeroQuantity(t *testing.T) {
	f := newServer(t)

	resp := doRequest(t, f.srv, http.MethodPost, "/api/v1/cart/items", bearerToken(t, "user-1"), map[string]any{
		"product_id": "p1",
		"quantity":   0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateAndRemoveItem(t *testing.T) {
	f := newServer(t)
	auth := bearerToken(t, "user-1")

	resp := doRequest(t, f.srv, http.MethodPost, "/api/v1/cart/items", auth, map[string]any{
		"product_id": "p1", "quantity": 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, f.srv, http.MethodPut, "/api/v1/cart/items/p1", auth, map[string]any{"quantity": 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view struct {
		Lines []domain.CartLine `json:"lines"`
	}
	decodeData(t, resp, &view)
	assert.Equal(t, 5, view.Lines[0].Quantity)

	resp = doRequest(t, f.srv, http.MethodDelete, "/api/v1/cart/items/p1", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Removing again still succeeds.
	resp = doRequest(t, f.srv, http.MethodDelete, "/api/v1/cart/items/p1", auth, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func paymentSessionBody(method string) map[string]any {
	return map[string]any{
		"payment_method": method,
		"billing": map[string]any{
			"first_name": "Mona", "last_name": "Aly", "email": "mona@example.com",
			"phone_number": "+201000000000", "country": "EG", "city": "Cairo",
		},
		"customer": map[string]any{
			"first_name": "Mona", "last_name": "Aly", "email": "mona@example.com",
		},
	}
}

func seedCart(t *testing.T, f *serverFixture, auth string) {
	t.Helper()
	resp := doRequest(t, f.srv, http.MethodPost, "/api/v1/cart/items", auth, map[string]any{
		"product_id": "p1", "name": "Mug", "display_price": 2500, "quantity": 2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreatePaymentSession_Iframe(t *testing.T) {
	f := newServer(t)
	auth := bearerToken(t, "user-1")
	seedCart(t, f, auth)

	resp := doRequest(t, f.srv, http.MethodPost, "/api/v1/checkout/payment-session", auth, paymentSessionBody("card"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session struct {
		Kind     string `json:"kind"`
		URL      string `json:"url"`
		Token    string `json:"token"`
		IframeID string `json:"iframe_id"`
		Amount   int64  `json:"amount"`
	}
	decodeData(t, resp, &session)

	assert.Equal(t, "iframe", session.Kind)
	assert.Equal(t, "/payment-frame/tok/5", session.URL)
	assert.Equal(t, int64(14900), session.Amount)
	require.Len(t, f.attempts.created, 1)
}

func TestCreatePaymentSession_CashOnDelivery(t *testing.T) {
	f := newServer(t)
	auth := bearerToken(t, "user-1")
	seedCart(t, f, auth)

	resp := doRequest(t, f.srv, http.MethodPost, "/api/v1/checkout/payment-session", auth, paymentSessionBody("cash_on_delivery"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session struct {
		Kind string `json:"kind"`
		URL  string `json:"url"`
	}
	decodeData(t, resp, &session)
	assert.Equal(t, "none", session.Kind)
	assert.Empty(t, session.URL)
	assert.Empty(t, f.attempts.created)
}

func TestCreatePaymentSession_GatewayRejection(t *testing.T) {
	f := newServer(t)
	f.gateway.session = domain.PaymentSession{}
	f.gateway.err = apperrors.GatewayRejected("no usable session")

	auth := bearerToken(t, "user-1")
	seedCart(t, f, auth)

	resp := doRequest(t, f.srv, http.MethodPost, "/api/v1/checkout/payment-session", auth, paymentSessionBody("card"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCreatePaymentSession_UnknownMethod(t *testing.T) {
	f := newServer(t)
	auth := bearerToken(t, "user-1")
	seedCart(t, f, auth)

	resp := doRequest(t, f.srv, http.MethodPost, "/api/v1/checkout/payment-session", auth, paymentSessionBody("bitcoin"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPaymentFrame_Redirect(t *testing.T) {
	f := newServer(t)

	resp := doRequest(t, f.srv, http.MethodGet, "/payment-frame/tok_123/5165991", "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t,
		"https://accept.example.com/api/acceptance/iframe/5165991?payment_token=tok_123",
		resp.Header.Get("Location"),
	)
}

func TestHealthEndpoints(t *testing.T) {
	f := newServer(t)

	resp := doRequest(t, f.srv, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
