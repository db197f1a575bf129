package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m-a-mahammad/shop-checkout/pkg/health"
	"github.com/m-a-mahammad/shop-checkout/pkg/middleware"
)

// RouterConfig carries the handler dependencies and policy knobs.
type RouterConfig struct {
	Cart          *CartHandler
	Checkout      *CheckoutHandler
	Frame         *FrameHandler
	Health        *health.Handler
	JWTSecret     string
	AllowedOrigin string
	RateRPS       int
	RateBurst     int
	PprofCIDRs    []string
}

// NewRouter creates a chi router with all checkout service routes
// registered.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("checkout"))
	r.Use(middleware.Tracing("checkout"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigin))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	// The payment-frame handoff is navigated by the browser, not fetched
	// with credentials, so it sits outside the authenticated API tree.
	r.Get("/payment-frame/{token}/{iframeId}", cfg.Frame.Redirect)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(JWTAuth(cfg.JWTSecret, logger))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cfg.Cart.GetCart)
			r.Get("/total", cfg.Cart.GetTotal)
			r.Post("/items", cfg.Cart.AddItem)
			r.Put("/items/{productId}", cfg.Cart.UpdateItemQuantity)
			r.Delete("/items/{productId}", cfg.Cart.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(RateLimitPerUser(cfg.RateRPS, cfg.RateBurst, logger))
			r.Post("/payment-session", cfg.Checkout.CreatePaymentSession)
		})
	})

	return r
}
