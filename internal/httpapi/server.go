// Package httpapi exposes the storefront over HTTP: catalog browsing, the
// visitor's cart, checkout, order history and the catalog chat.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/safar/storefront/internal/chat"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/media"
	"github.com/safar/storefront/internal/metrics"
	"go.uber.org/zap"
)

// TokenParser returns the user id carried by a bearer token.
type TokenParser interface {
	Parse(token string) (int64, error)
}

// SessionStore hands out and refreshes anonymous session keys.
type SessionStore interface {
	Create(ctx context.Context) (string, error)
	Touch(ctx context.Context, key string) (bool, error)
}

type Deps struct {
	DB       *sql.DB
	Checkout *checkout.Service
	Chat     *chat.Resolver
	Tokens   TokenParser
	Sessions SessionStore
	Media    media.Resolver
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	RequestTimeout time.Duration
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

type Server struct {
	db       *sql.DB
	checkout *checkout.Service
	chat     *chat.Resolver
	tokens   TokenParser
	sessions SessionStore
	media    media.Resolver
	metrics  *metrics.Metrics
	logger   *zap.Logger
	validate *validator.Validate
	upgrader websocket.Upgrader

	timeout       time.Duration
	secureCookies bool
}

func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := deps.Media
	if resolver == nil {
		resolver = media.Static{}
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Server{
		db:       deps.DB,
		checkout: deps.Checkout,
		chat:     deps.Chat,
		tokens:   deps.Tokens,
		sessions: deps.Sessions,
		media:    resolver,
		metrics:  deps.Metrics,
		logger:   logger,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		timeout:       timeout,
		secureCookies: deps.SecureCookies,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.PingContext(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// The websocket outlives the request timeout.
	r.Get("/ws/chat", s.chatSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))
		r.Use(s.identify)

		r.Get("/products", s.listProducts)
		r.Get("/products/{slug}", s.getProduct)
		r.Get("/categories", s.listCategories)
		r.Get("/categories/{slug}", s.getCategory)

		r.HandleFunc("/api/chat", s.chatMessage)

		r.Get("/cart/count", s.cartCount)
		r.Group(func(r chi.Router) {
			r.Use(s.ensureIdentity)

			r.Get("/cart", s.getCart)
			r.Post("/cart/add/{slug}", s.addToCart)
			r.Post("/cart/items/{itemID}", s.updateCartItem)
			r.Delete("/cart/items/{itemID}", s.removeCartItem)
		})

		r.Post("/checkout", s.placeOrder)
		r.Post("/checkout/pay", s.payAndPlaceOrder)
		r.Get("/checkout/success", s.checkoutSuccess)

		r.Get("/orders", s.listOrders)
		r.Get("/orders/{id}", s.getOrder)
	})

	return r
}
