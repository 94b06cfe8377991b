// Package payment creates hosted payment sessions for a cart.
package payment

import (
	"context"
	"errors"
)

// ErrUnavailable means the provider cannot take payments right now. Callers
// fall back to placing the order without payment.
var ErrUnavailable = errors.New("payment provider unavailable")

type LineItem struct {
	Name            string
	UnitAmountMinor int64
	Currency        string
	Quantity        int64
}

type Gateway interface {
	// CreateSession returns the URL the visitor is redirected to for payment.
	CreateSession(ctx context.Context, items []LineItem, successURL, cancelURL string) (string, error)
}

// Disabled is used when no provider is configured.
type Disabled struct{}

func (Disabled) CreateSession(context.Context, []LineItem, string, string) (string, error) {
	return "", ErrUnavailable
}
