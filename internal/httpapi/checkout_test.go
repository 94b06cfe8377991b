package httpapi

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "email", "name", "created_at", "updated_at", "version"}

func TestCheckoutRequiresSignedInUser(t *testing.T) {
	env := newTestEnv(t)

	key, err := env.sessions.Create(t.Context())
	require.NoError(t, err)

	req := formRequest(http.MethodPost, "/checkout", url.Values{"full_name": {"Ana"}})
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: key})
	rec := env.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCheckoutValidatesShipping(t *testing.T) {
	env := newTestEnv(t)

	req := formRequest(http.MethodPost, "/checkout", url.Values{"email": {"not-an-email"}})
	rec := env.do(env.bearer(t, req, 7))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "validation_failed", body.Code)
	assert.Contains(t, body.Details, "Email")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCheckoutEmptyCartRedirects(t *testing.T) {
	env := newTestEnv(t)

	expectUserCart(env.mock, 7, 5)
	env.mock.ExpectQuery("FROM users").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(7, "ana@example.com", "Ana", fixedTime, fixedTime, 1))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery("FROM carts WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(cartColumns).
			AddRow(5, 7, "", false, fixedTime, fixedTime))
	env.mock.ExpectQuery("JOIN cart_items ci").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(itemColumns))
	env.mock.ExpectRollback()

	rec := env.do(env.bearer(t, formRequest(http.MethodPost, "/checkout", url.Values{}), 7))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cart", rec.Header().Get("Location"))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCheckoutCheckedOutCartConflicts(t *testing.T) {
	env := newTestEnv(t)

	expectUserCart(env.mock, 7, 5)
	env.mock.ExpectQuery("FROM users").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(7, "ana@example.com", "Ana", fixedTime, fixedTime, 1))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery("FROM carts WHERE id = \\$1 FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(cartColumns).
			AddRow(5, 7, "", true, fixedTime, fixedTime))
	env.mock.ExpectRollback()

	rec := env.do(env.bearer(t, jsonRequest(http.MethodPost, "/checkout", `{}`), 7))
	require.Equal(t, http.StatusConflict, rec.Code)

	var body ErrorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "cart already checked out", body.Error)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestPayRedirectsToProvider(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.url = "https://pay.example.com/session/cs_123"
	env.gateway.err = nil

	expectUserCart(env.mock, 7, 5)
	expectCartView(env.mock, 5, 7, novaPhoneItem())

	rec := env.do(env.bearer(t, formRequest(http.MethodPost, "/checkout/pay", url.Values{}), 7))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://pay.example.com/session/cs_123", rec.Header().Get("Location"))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestPayEmptyCartRedirectsToCart(t *testing.T) {
	env := newTestEnv(t)

	expectUserCart(env.mock, 7, 5)
	expectCartView(env.mock, 5, 7, sqlmock.NewRows(itemColumns))

	rec := env.do(env.bearer(t, formRequest(http.MethodPost, "/checkout/pay", url.Values{}), 7))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cart", rec.Header().Get("Location"))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCheckoutSuccess(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/checkout/success", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "success", body["status"])
	assert.Nil(t, body["order"])
}

func TestListOrdersRequiresUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListOrdersRejectsBadCursor(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(env.bearer(t, httptest.NewRequest(http.MethodGet, "/orders?cursor=not-a-cursor!", nil), 7))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestGetOrderRejectsBadID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(env.bearer(t, httptest.NewRequest(http.MethodGet, "/orders/zero", nil), 7))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
