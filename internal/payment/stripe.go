package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/safar/storefront/internal/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"
)

type sessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// Stripe creates Stripe Checkout sessions behind a circuit breaker. Provider
// errors and an open breaker are reported as ErrUnavailable.
type Stripe struct {
	create  sessionCreator
	breaker *gobreaker.CircuitBreaker[string]
	logger  *zap.Logger
}

func NewStripe(cfg config.PaymentConfig, logger *zap.Logger) *Stripe {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	backendConfig := &stripe.BackendConfig{HTTPClient: httpClient}

	api := &client.API{}
	api.Init(cfg.StripeSecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	})

	return newStripe(api.CheckoutSessions.New, logger)
}

func newStripe(create sessionCreator, logger *zap.Logger) *Stripe {
	settings := gobreaker.Settings{
		Name:        "stripe-checkout",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Stripe{
		create:  create,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
		logger:  logger,
	}
}

func (s *Stripe) CreateSession(ctx context.Context, items []LineItem, successURL, cancelURL string) (string, error) {
	if len(items) == 0 {
		return "", errors.New("create payment session: no line items")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx
	for _, item := range items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(item.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitAmountMinor),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	url, err := s.breaker.Execute(func() (string, error) {
		session, err := s.create(params)
		if err != nil {
			return "", err
		}
		if session.URL == "" {
			return "", errors.New("session has no redirect url")
		}
		return session.URL, nil
	})
	if err != nil {
		s.logger.Error("Failed to create Stripe checkout session", zap.Int("items", len(items)), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.logger.Info("Created Stripe checkout session", zap.Int("items", len(items)))
	return url, nil
}
