package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
	"github.com/m-a-mahammad/shop-checkout/pkg/httputil"
)

// FrameURLBuilder builds the hosted iframe address from route parameters.
type FrameURLBuilder interface {
	IframeURL(token, iframeID string) string
}

// FrameHandler hands the browser off to the hosted payment iframe. The
// token and iframe ID are opaque untrusted strings lifted straight from the
// URL; the builder escapes them into the fixed gateway template.
type FrameHandler struct {
	urls   FrameURLBuilder
	logger *slog.Logger
}

// NewFrameHandler creates a payment-frame handler.
func NewFrameHandler(urls FrameURLBuilder, logger *slog.Logger) *FrameHandler {
	return &FrameHandler{
		urls:   urls,
		logger: logger,
	}
}

// Redirect issues a 302 to the hosted iframe for the session in the URL.
func (h *FrameHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	iframeID := chi.URLParam(r, "iframeId")

	if token == "" || iframeID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("payment token and iframe id are required"), h.logger)
		return
	}

	http.Redirect(w, r, h.urls.IframeURL(token, iframeID), http.StatusFound)
}
