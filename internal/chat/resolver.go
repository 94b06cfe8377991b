// Package chat answers free-text catalog questions with fixed, rule-based
// replies. The same resolver serves the HTTP endpoint and the websocket
// channel.
package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/safar/storefront/internal/models"
	"go.uber.org/zap"
)

const (
	TypeBot    = "bot"
	TypeSystem = "system"
)

// Intents label which rule produced a reply.
const (
	IntentEmpty    = "empty"
	IntentGreeting = "greeting"
	IntentMatches  = "matches"
	IntentCategory = "category"
	IntentFallback = "fallback"
)

const (
	emptyMessage     = "Hi! How can I help you explore products today?"
	greetingMessage  = "Hello! Ask me about products, categories, prices, or availability."
	fallbackMessage  = `I can help with products, categories, prices, and availability. Try: "phones under 500" or "laptop 16GB".`
	connectedMessage = "Connected. Ask about products, categories, prices, or availability."
	matchesPrefix    = "Here are some matches: "
)

// MaxMatches caps the number of products listed in one reply.
const MaxMatches = 5

var greetings = []string{"hello", "hi", "hey"}

type Reply struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Intent  string `json:"-"`
}

// Connected is sent once when a websocket client connects.
func Connected() Reply {
	return Reply{Type: TypeSystem, Message: connectedMessage}
}

// Catalog is the read-only view of the catalog the resolver needs.
type Catalog interface {
	// SearchProducts returns active products whose title or description
	// contains every keyword, newest first. No keywords means all active
	// products.
	SearchProducts(ctx context.Context, keywords []string, limit int) ([]models.Product, error)
	// FindCategory returns the first category whose name contains text with
	// its active product count, or a nil category.
	FindCategory(ctx context.Context, text string) (*models.Category, int, error)
}

type Resolver struct {
	catalog Catalog
	logger  *zap.Logger
}

func NewResolver(catalog Catalog, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{catalog: catalog, logger: logger}
}

// Resolve never fails: catalog errors are logged and answered with the
// fallback message.
func (r *Resolver) Resolve(ctx context.Context, text string) Reply {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return bot(IntentEmpty, emptyMessage)
	}

	for _, g := range greetings {
		if strings.Contains(normalized, g) {
			return bot(IntentGreeting, greetingMessage)
		}
	}

	products, err := r.catalog.SearchProducts(ctx, keywords(normalized), MaxMatches)
	if err != nil {
		r.logger.Error("chat product search failed", zap.String("query", normalized), zap.Error(err))
		return bot(IntentFallback, fallbackMessage)
	}
	if len(products) > 0 {
		lines := make([]string, 0, len(products))
		for _, p := range products {
			lines = append(lines, describe(p))
		}
		return bot(IntentMatches, matchesPrefix+strings.Join(lines, " "))
	}

	category, count, err := r.catalog.FindCategory(ctx, normalized)
	if err != nil {
		r.logger.Error("chat category lookup failed", zap.String("query", normalized), zap.Error(err))
		return bot(IntentFallback, fallbackMessage)
	}
	if category != nil {
		return bot(IntentCategory,
			fmt.Sprintf("We have %d product(s) in %s. Try searching with keywords.", count, category.Name))
	}

	return bot(IntentFallback, fallbackMessage)
}

func bot(intent, message string) Reply {
	return Reply{Type: TypeBot, Message: message, Intent: intent}
}

// keywords keeps whitespace-separated tokens longer than two characters.
func keywords(text string) []string {
	var out []string
	for _, token := range strings.Fields(text) {
		if utf8.RuneCountInString(token) > 2 {
			out = append(out, token)
		}
	}
	return out
}

func describe(p models.Product) string {
	availability := "Out of stock"
	if p.InStock() {
		availability = "In stock"
	}
	return fmt.Sprintf("%s ($%s) - %s in %s.",
		p.Title, models.FormatMoney(p.DiscountedPrice()), availability, p.CategoryName)
}
