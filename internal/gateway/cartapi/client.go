// Package cartapi is the HTTP client for the upstream cart service, which
// owns the authoritative cart contents and prices.
package cartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	"github.com/m-a-mahammad/shop-checkout/pkg/httpclient"
	"github.com/m-a-mahammad/shop-checkout/pkg/logger"
)

// Doer executes HTTP requests. Satisfied by httpclient.Client and
// httpclient.CircuitBreakerClient.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client calls the cart service REST API on behalf of a user. The user
// identity travels in the X-User-ID header, the same contract the rest of
// the platform uses behind the gateway.
type Client struct {
	http    Doer
	baseURL string
	logger  *slog.Logger
}

// New creates a cart service client.
func New(httpClient Doer, baseURL string, log *slog.Logger) *Client {
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		logger:  log,
	}
}

const serviceName = "cart-service"

// Wire types for the cart service API. Items arrive with the product record
// nested; FetchCart flattens them into domain lines.
type cartResponse struct {
	Data struct {
		Items []cartItem `json:"items"`
	} `json:"data"`
}

type cartItem struct {
	Product  productRecord `json:"product"`
	Quantity int           `json:"quantity"`
}

type productRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Slug  string `json:"slug"`
	Image *struct {
		URL string `json:"url"`
	} `json:"image"`
}

// FetchCart retrieves the authoritative cart contents for the user.
func (c *Client) FetchCart(ctx context.Context, userID string) ([]domain.CartLine, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/cart", userID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch cart: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var body cartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode cart response: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(body.Data.Items))
	for _, item := range body.Data.Items {
		line := domain.CartLine{
			ProductID:    item.Product.ID,
			Name:         item.Product.Name,
			DisplayPrice: item.Product.Price,
			Quantity:     item.Quantity,
			Slug:         item.Product.Slug,
		}
		if item.Product.Image != nil {
			line.ImageURL = item.Product.Image.URL
		}
		lines = append(lines, line)
	}

	return lines, nil
}

type mutateItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddItem adds quantity units of a product to the user's server-side cart.
func (c *Client) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/cart", userID, mutateItemRequest{
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		return err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}

	return c.drainOK(resp)
}

// SetItemQuantity replaces the quantity of a product in the server-side cart.
func (c *Client) SetItemQuantity(ctx context.Context, userID, productID string, quantity int) error {
	req, err := c.newRequest(ctx, http.MethodPut, "/api/cart", userID, mutateItemRequest{
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		return err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}

	return c.drainOK(resp)
}

// RemoveItem removes a product from the server-side cart. An upstream 404
// means the item is already gone, which is the end state removal asks for,
// so it is reported as success.
func (c *Client) RemoveItem(ctx context.Context, userID, productID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/cart/"+productID, userID, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		c.logger.InfoContext(logger.WithUserID(ctx, userID), "cart item already absent upstream",
			slog.String("product_id", productID),
		)
		return nil
	}

	return c.drainOK(resp)
}

type totalRequest struct {
	Items []totalItem `json:"items"`
}

type totalItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type totalResponse struct {
	Data struct {
		Total int64 `json:"total"`
	} `json:"data"`
}

// QuoteTotal asks the cart service to price the given lines. The returned
// amount is in minor currency units and is the only total trusted for
// billing.
func (c *Client) QuoteTotal(ctx context.Context, userID string, lines []domain.CartLine) (int64, error) {
	items := make([]totalItem, len(lines))
	for i, line := range lines {
		items[i] = totalItem{ProductID: line.ProductID, Quantity: line.Quantity}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/cart/total", userID, totalRequest{Items: items})
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("quote cart total: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var body totalResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode total response: %w", err)
	}

	return body.Data.Total, nil
}

// newRequest builds a request against the cart service with identity and
// content headers set. A nil payload sends no body.
func (c *Client) newRequest(ctx context.Context, method, path, userID string, payload any) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s payload: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	return req, nil
}

// drainOK consumes the response body and maps non-2xx statuses to errors.
func (c *Client) drainOK(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}
