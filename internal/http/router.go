package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	SecureCookies  bool
	Logger         *slog.Logger
	Metrics        *metrics.Registry
}

type Handlers struct {
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrderHandler
}

func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Metrics(cfg.Metrics))
	r.Use(ProfileMiddleware(cfg.SecureCookies))
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(LimitBody(cfg.MaxBodyBytes))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		redirect(w, r, "/product")
	})

	r.Route("/product", func(r chi.Router) {
		r.Get("/", h.Products.List)
		r.Get("/{id}", h.Products.Get)
		r.Post("/{id}/cart", h.Products.AddToCart)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.Cart.GetCart)
		r.Put("/items/{productId}", h.Cart.UpdateQuantity)
		r.Delete("/items/{productId}", h.Cart.RemoveItem)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Get("/", h.Checkout.Show)
		r.Post("/", h.Checkout.PlaceOrder)
	})

	r.Route("/order-summary/{id}", func(r chi.Router) {
		r.Get("/", h.Orders.Summary)
		r.Get("/copy/{target}", h.Orders.Copy)
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	)
}
