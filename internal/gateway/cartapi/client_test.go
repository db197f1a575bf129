package cartapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
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

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	return New(httpclient.New(cfg), srv.URL, logger.NewWithWriter("test", "debug", io.Discard))
}

func TestClient_FetchCart(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/cart", r.URL.Path)
		assert.Equal(t, "user-1", r.Header.Get("X-User-ID"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"items":[
			{"product":{"id":"p1","name":"Mug","price":2500,"slug":"mug","image":{"url":"https://cdn/mug.png"}},"quantity":2},
			{"product":{"id":"p2","name":"Shirt","price":9900,"slug":"shirt"},"quantity":1}
		]}}`))
	}))

	lines, err := client.FetchCart(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, int64(2500), lines[0].DisplayPrice)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "https://cdn/mug.png", lines[0].ImageURL)
	assert.Empty(t, lines[1].ImageURL)
}

func TestClient_FetchCart_UpstreamError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":"SERVICE_UNAVAILABLE","message":"redis down"}}`))
	}))

	_, err := client.FetchCart(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
}

func TestClient_AddItem(t *testing.T) {
	var got mutateItemRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))

	require.NoError(t, client.AddItem(context.Background(), "user-1", "p1", 3))
	assert.Equal(t, "p1", got.ProductID)
	assert.Equal(t, 3, got.Quantity)
}

func TestClient_SetItemQuantity_Invalid(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"INVALID_INPUT","message":"quantity out of range"}}`))
	}))

	err := client.SetItemQuantity(context.Background(), "user-1", "p1", 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestClient_RemoveItem_NotFoundIsSuccess(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/cart/p1", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))

	assert.NoError(t, client.RemoveItem(context.Background(), "user-1", "p1"))
}

func TestClient_QuoteTotal(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cart/total", r.URL.Path)

		var body totalRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Items, 1)
		assert.Equal(t, "p1", body.Items[0].ProductID)

		_, _ = w.Write([]byte(`{"data":{"total":14900}}`))
	}))

	total, err := client.QuoteTotal(context.Background(), "user-1", []domain.CartLine{
		{ProductID: "p1", Quantity: 2, DisplayPrice: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(14900), total)
}
