package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/safar/storefront/internal/chat"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/identity"
	"github.com/safar/storefront/internal/media"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var cartColumns = []string{"id", "user_id", "session_key", "checked_out", "created_at", "updated_at"}

var productColumns = []string{
	"id", "category_id", "name", "title", "slug", "description", "price",
	"discount_percent", "stock", "thumbnail", "is_active", "created_at", "updated_at",
}

var itemColumns = append([]string{"ci_id", "cart_id", "ci_product_id", "quantity", "added_at"}, productColumns...)

type fakeGateway struct {
	url string
	err error
}

func (g *fakeGateway) CreateSession(context.Context, []payment.LineItem, string, string) (string, error) {
	return g.url, g.err
}

type testEnv struct {
	server   *Server
	handler  http.Handler
	mock     sqlmock.Sqlmock
	redis    *miniredis.Miniredis
	sessions *identity.Sessions
	tokens   *identity.Tokens
	metrics  *metrics.Metrics
	gateway  *fakeGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sessions := identity.NewSessions(client, time.Hour)
	tokens := identity.NewTokens(config.AuthConfig{JWTSecret: "test-secret", Issuer: "storefront"})
	m := metrics.New()
	gateway := &fakeGateway{err: payment.ErrUnavailable}

	catalog := &chat.Snapshot{
		Categories: []models.Category{{ID: 1, Name: "Electronics", IsActive: true}},
		Products: []models.Product{{
			ID: 3, CategoryID: 1, Title: "Nova Phone X", Description: "Flagship handset",
			Price: decimal.RequireFromString("500.00"), DiscountPercent: 10, Stock: 3,
			IsActive: true, CreatedAt: fixedTime,
		}},
	}

	server := New(Deps{
		DB: db,
		Checkout: checkout.NewService(db, checkout.Options{
			Gateway: gateway,
			BaseURL: "https://shop.example.com",
			Metrics: m,
		}, zap.NewNop()),
		Chat:     chat.NewResolver(catalog, zap.NewNop()),
		Tokens:   tokens,
		Sessions: sessions,
		Media:    media.Static{BaseURL: "/media"},
		Metrics:  m,
		Logger:   zap.NewNop(),
	})

	return &testEnv{
		server:   server,
		handler:  server.Routes(),
		mock:     mock,
		redis:    mr,
		sessions: sessions,
		tokens:   tokens,
		metrics:  m,
		gateway:  gateway,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) bearer(t *testing.T, req *http.Request, userID int64) *http.Request {
	t.Helper()
	token, err := e.tokens.Issue(userID, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func expectUserCart(mock sqlmock.Sqlmock, userID, cartID int64) {
	mock.ExpectQuery("ON CONFLICT \\(user_id\\)").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(cartColumns).
			AddRow(cartID, userID, "", false, fixedTime, fixedTime))
}

func expectCartView(mock sqlmock.Sqlmock, cartID, userID int64, items *sqlmock.Rows) {
	mock.ExpectQuery("FROM carts WHERE id").
		WithArgs(cartID).
		WillReturnRows(sqlmock.NewRows(cartColumns).
			AddRow(cartID, userID, "", false, fixedTime, fixedTime))
	mock.ExpectQuery("JOIN cart_items ci").
		WithArgs(cartID).
		WillReturnRows(items)
}

func novaPhoneItem() *sqlmock.Rows {
	return sqlmock.NewRows(itemColumns).
		AddRow(1, 5, 3, 2, fixedTime, 3, 1, "Electronics", "Nova Phone X", "nova-phone-x",
			"Flagship handset", "500.00", 10, 3, "products/nova.jpg", true, fixedTime, fixedTime)
}
