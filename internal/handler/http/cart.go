package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/m-a-mahammad/shop-checkout/internal/cartsync"
	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	"github.com/m-a-mahammad/shop-checkout/internal/pricing"
	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
	"github.com/m-a-mahammad/shop-checkout/pkg/httputil"
	"github.com/m-a-mahammad/shop-checkout/pkg/validator"
)

// CartHandler serves the cart snapshot and mutation endpoints.
type CartHandler struct {
	sync   *cartsync.Synchronizer
	totals *pricing.Watcher
	logger *slog.Logger
}

// NewCartHandler creates a cart handler.
func NewCartHandler(sync *cartsync.Synchronizer, totals *pricing.Watcher, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		sync:   sync,
		totals: totals,
		logger: logger,
	}
}

// cartView is the response shape for all cart endpoints.
type cartView struct {
	UserID   string            `json:"user_id"`
	Lines    []domain.CartLine `json:"lines"`
	Revision int64             `json:"revision"`
	Total    domain.TotalState `json:"total"`
}

func (h *CartHandler) view(r *http.Request, cart *domain.Cart) cartView {
	return cartView{
		UserID:   cart.UserID,
		Lines:    cart.Lines,
		Revision: cart.Revision,
		Total:    h.totals.Resolve(r.Context(), cart),
	}
}

// GetCart returns the current snapshot, pulling the authoritative cart from
// upstream when the local snapshot has never been loaded or when the caller
// asks for a refresh. An upstream failure is an error response, not an
// empty cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	cart, err := h.sync.Snapshot(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if cart.Revision == 0 || r.URL.Query().Get("refresh") == "true" {
		cart, err = h.sync.Refresh(r.Context(), userID)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view(r, cart)})
}

// GetTotal returns the current authoritative total state on its own.
func (h *CartHandler) GetTotal(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	cart, err := h.sync.Snapshot(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.totals.Resolve(r.Context(), cart)})
}

// addItemRequest is the payload for adding a product to the cart.
type addItemRequest struct {
	ProductID    string `json:"product_id" validate:"required"`
	Name         string `json:"name"`
	DisplayPrice int64  `json:"display_price" validate:"gte=0"`
	Quantity     int    `json:"quantity" validate:"required,gte=1"`
	Slug         string `json:"slug"`
	ImageURL     string `json:"image_url"`
}

// AddItem adds (or increments) a product in the cart.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	var req addItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.sync.AddLine(r.Context(), userID, domain.CartLine{
		ProductID:    req.ProductID,
		Name:         req.Name,
		DisplayPrice: req.DisplayPrice,
		Quantity:     req.Quantity,
		Slug:         req.Slug,
		ImageURL:     req.ImageURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view(r, cart)})
}

// updateQuantityRequest is the payload for replacing a line quantity.
type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// UpdateItemQuantity sets the absolute quantity of an existing line.
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	productID := chi.URLParam(r, "productId")

	var req updateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.sync.SetQuantity(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view(r, cart)})
}

// RemoveItem removes a line from the cart. Removing an absent line succeeds.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	productID := chi.URLParam(r, "productId")

	cart, err := h.sync.RemoveLine(r.Context(), userID, productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.view(r, cart)})
}
