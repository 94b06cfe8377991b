// Package checkout places orders, optionally routing the visitor through a
// hosted payment page first.
package checkout

import (
	"context"
	"database/sql"
	"errors"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/payment"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
)

// Result holds either the placed order or the payment page to redirect to.
type Result struct {
	Order       *models.Order
	RedirectURL string
}

type Service struct {
	db       *sql.DB
	gateway  payment.Gateway
	currency string
	baseURL  string
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

type Options struct {
	Gateway  payment.Gateway
	Currency string
	// BaseURL is the public origin used for payment return links.
	BaseURL string
	Metrics *metrics.Metrics
}

func NewService(db *sql.DB, opts Options, logger *zap.Logger) *Service {
	gateway := opts.Gateway
	if gateway == nil {
		gateway = payment.Disabled{}
	}
	currency := opts.Currency
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		db:       db,
		gateway:  gateway,
		currency: currency,
		baseURL:  opts.BaseURL,
		metrics:  opts.Metrics,
		logger:   logger,
	}
}

// Checkout places the order without payment.
func (s *Service) Checkout(ctx context.Context, req store.CheckoutRequest) (*models.Order, error) {
	order, err := store.Checkout(ctx, s.db, req)
	s.record(err, metrics.CheckoutPlaced)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("user_id", order.UserID),
		zap.String("total", models.FormatMoney(order.Total)))

	return order, nil
}

// PayAndCheckout asks the payment provider for a hosted payment page. When the
// provider is unavailable the order is placed directly.
func (s *Service) PayAndCheckout(ctx context.Context, req store.CheckoutRequest) (*Result, error) {
	if !req.Identity.Authenticated() {
		return nil, database.ErrUnauthorized
	}

	cartID := req.CartID
	if cartID == 0 {
		cart, err := store.ResolveCart(ctx, s.db, req.Identity)
		if err != nil {
			return nil, err
		}
		cartID = cart.ID
	}

	view, err := store.GetCartView(ctx, s.db, cartID)
	if err != nil {
		return nil, err
	}
	if view.Cart.CheckedOut {
		s.metrics.ObserveCheckout(metrics.CheckoutConflict)
		return nil, database.ErrCartCheckedOut
	}
	if len(view.Items) == 0 {
		s.metrics.ObserveCheckout(metrics.CheckoutEmpty)
		return nil, database.ErrEmptyCart
	}

	url, err := s.gateway.CreateSession(ctx, s.lineItems(view.Items),
		s.baseURL+"/checkout/success", s.baseURL+"/cart")
	if err == nil {
		s.metrics.ObserveCheckout(metrics.CheckoutRedirected)
		return &Result{RedirectURL: url}, nil
	}

	s.logger.Warn("payment provider unavailable, placing order without payment",
		zap.Int64("cart_id", cartID),
		zap.Int64("user_id", req.Identity.UserID),
		zap.Error(err))

	req.CartID = cartID
	order, err := store.Checkout(ctx, s.db, req)
	s.record(err, metrics.CheckoutFallback)
	if err != nil {
		return nil, err
	}

	return &Result{Order: order}, nil
}

func (s *Service) lineItems(items []models.CartItem) []payment.LineItem {
	out := make([]payment.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, payment.LineItem{
			Name:            item.Product.Title,
			UnitAmountMinor: item.Product.UnitAmountMinor(),
			Currency:        s.currency,
			Quantity:        int64(item.Quantity),
		})
	}
	return out
}

func (s *Service) record(err error, success string) {
	switch {
	case err == nil:
		s.metrics.ObserveCheckout(success)
	case errors.Is(err, database.ErrEmptyCart):
		s.metrics.ObserveCheckout(metrics.CheckoutEmpty)
	case database.KindOf(err) == database.KindConflict:
		s.metrics.ObserveCheckout(metrics.CheckoutConflict)
	default:
		s.metrics.ObserveCheckout(metrics.CheckoutFailed)
	}
}
