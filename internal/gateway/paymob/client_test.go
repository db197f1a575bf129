package paymob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
	"github.com/m-a-mahammad/shop-checkout/pkg/httpclient"
	"github.com/m-a-mahammad/shop-checkout/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL:   srv.URL,
		SecretKey: "sk_test",
		PublicKey: "pk_test",
	}
	return New(httpclient.New(httpclient.DefaultConfig()), cfg, logger.NewWithWriter("test", "debug", io.Discard))
}

func testIntent() *domain.PaymentIntentRequest {
	return &domain.PaymentIntentRequest{
		Amount:           14900,
		Currency:         "EGP",
		UserID:           "user-1",
		IntegrationID:    5165991,
		SpecialReference: "ORD_abc",
		Items: []domain.IntentItem{
			{Name: "Mug", Amount: 2500, Quantity: 2},
		},
	}
}

func TestClient_CreateIntent_IframeBranch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/intention/", r.URL.Path)
		assert.Equal(t, "Token sk_test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(14900), body["amount"])
		assert.Equal(t, "ORD_abc", body["special_reference"])
		assert.Equal(t, []any{float64(5165991)}, body["payment_methods"])

		_, _ = w.Write([]byte(`{
			"payment_keys":[{"key":"tok_123","iframe_id":5165991}],
			"client_secret":"should_be_ignored"
		}`))
	}))

	session, err := client.CreateIntent(context.Background(), testIntent())
	require.NoError(t, err)
	assert.Equal(t, domain.SessionIframe, session.Kind)
	assert.Equal(t, "tok_123", session.Token)
	assert.Equal(t, "5165991", session.IframeID)
}

func TestClient_CreateIntent_UnifiedBranch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"payment_keys":[],"client_secret":"csk_456"}`))
	}))

	session, err := client.CreateIntent(context.Background(), testIntent())
	require.NoError(t, err)
	assert.Equal(t, domain.SessionUnified, session.Kind)
	assert.Equal(t, "csk_456", session.ClientSecret)
}

func TestClient_CreateIntent_RejectedShape(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":12345,"status":"created"}`))
	}))

	_, err := client.CreateIntent(context.Background(), testIntent())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrGatewayRejected))
}

func TestClient_CreateIntent_GatewayError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"code":"DUPLICATE","message":"duplicate special reference"}}`))
	}))

	_, err := client.CreateIntent(context.Background(), testIntent())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrGatewayRejected))
}

func TestClient_CreateIntent_SingleAttempt(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.CreateIntent(context.Background(), testIntent())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDecodeSession(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind domain.SessionKind
		wantErr  bool
	}{
		{
			name:     "iframe with string iframe id",
			body:     `{"payment_keys":[{"key":"tok","iframe_id":"5"}]}`,
			wantKind: domain.SessionIframe,
		},
		{
			name:     "empty key falls through to client secret",
			body:     `{"payment_keys":[{"key":"","iframe_id":"5"}],"client_secret":"csk"}`,
			wantKind: domain.SessionUnified,
		},
		{
			name:    "empty everything",
			body:    `{"payment_keys":[],"client_secret":""}`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `<html>teapot</html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := decodeSession([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrGatewayRejected))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, session.Kind)
		})
	}
}

func TestClient_IframeURL_Escaping(t *testing.T) {
	client := New(nil, Config{BaseURL: "https://accept.paymob.com", PublicKey: "pk"}, nil)

	got := client.IframeURL("tok&evil=1", "5165991")
	assert.Equal(t, "https://accept.paymob.com/api/acceptance/iframe/5165991?payment_token=tok%26evil%3D1", got)
}

func TestClient_UnifiedCheckoutURL(t *testing.T) {
	client := New(nil, Config{BaseURL: "https://accept.paymob.com", PublicKey: "pk_live"}, nil)

	got := client.UnifiedCheckoutURL("csk 123")
	assert.Equal(t, "https://accept.paymob.com/unifiedcheckout/?clientSecret=csk+123&publicKey=pk_live", got)
}
