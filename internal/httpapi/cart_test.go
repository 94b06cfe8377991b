package httpapi

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCartStartsAnonymousSession(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("ON CONFLICT \\(session_key\\)").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cartColumns).
			AddRow(5, nil, "generated", false, fixedTime, fixedTime))
	expectCartView(env.mock, 5, 0, sqlmock.NewRows(itemColumns))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, env.redis.Exists("session:"+cookies[0].Value))

	var cart CartDTO
	decodeBody(t, rec, &cart)
	assert.Equal(t, int64(5), cart.ID)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "0.00", cart.Total)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestGetCartReusesLiveSession(t *testing.T) {
	env := newTestEnv(t)

	key, err := env.sessions.Create(t.Context())
	require.NoError(t, err)

	env.mock.ExpectQuery("ON CONFLICT \\(session_key\\)").
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows(cartColumns).
			AddRow(5, nil, key, false, fixedTime, fixedTime))
	expectCartView(env.mock, 5, 0, novaPhoneItem())

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: key})
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())

	var cart CartDTO
	decodeBody(t, rec, &cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "900.00", cart.Items[0].Subtotal)
	assert.Equal(t, "450.00", cart.Items[0].Product.DiscountedPrice)
	assert.Equal(t, "/media/products/nova.jpg", cart.Items[0].Product.Thumbnail)
	assert.Equal(t, "900.00", cart.Total)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCartCountWithoutVisitor(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/cart/count", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCartCountForUser(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("SELECT COUNT\\(ci.id\\)").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rec := env.do(env.bearer(t, httptest.NewRequest(http.MethodGet, "/cart/count", nil), 7))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestAddToCartRejectsBadQuantity(t *testing.T) {
	env := newTestEnv(t)

	req := formRequest(http.MethodPost, "/cart/add/nova-phone-x", url.Values{"quantity": {"two"}})
	rec := env.do(env.bearer(t, req, 7))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestAddToCartUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	expectUserCart(env.mock, 7, 5)
	env.mock.ExpectQuery("SELECT id FROM products WHERE slug").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	req := formRequest(http.MethodPost, "/cart/add/missing", url.Values{"quantity": {"1"}})
	rec := env.do(env.bearer(t, req, 7))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "not_found", body.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestAddToCartRedirectsFormPosts(t *testing.T) {
	env := newTestEnv(t)

	expectUserCart(env.mock, 7, 5)
	env.mock.ExpectQuery("SELECT id FROM products WHERE slug").
		WithArgs("nova-phone-x").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery("FOR SHARE").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"checked_out"}).AddRow(false))
	env.mock.ExpectQuery("SELECT is_active FROM products").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	env.mock.ExpectQuery("INSERT INTO cart_items").
		WithArgs(int64(5), int64(3), 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "product_id", "quantity", "added_at"}).
			AddRow(1, 5, 3, 2, fixedTime))
	env.mock.ExpectExec("UPDATE carts SET updated_at").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	req := formRequest(http.MethodPost, "/cart/add/nova-phone-x", url.Values{"quantity": {"2"}})
	rec := env.do(env.bearer(t, req, 7))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cart", rec.Header().Get("Location"))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestRemoveCartItem(t *testing.T) {
	env := newTestEnv(t)

	expectUserCart(env.mock, 7, 5)
	env.mock.ExpectBegin()
	env.mock.ExpectQuery("FOR SHARE").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"checked_out"}).AddRow(false))
	env.mock.ExpectExec("DELETE FROM cart_items").
		WithArgs(int64(9), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec("UPDATE carts SET updated_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	rec := env.do(env.bearer(t, httptest.NewRequest(http.MethodDelete, "/cart/items/9", nil), 7))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUpdateCartItemOfAnotherCart(t *testing.T) {
	env := newTestEnv(t)

	expectUserCart(env.mock, 7, 5)
	env.mock.ExpectBegin()
	env.mock.ExpectQuery("FOR SHARE").
		WillReturnRows(sqlmock.NewRows([]string{"checked_out"}).AddRow(false))
	env.mock.ExpectExec("UPDATE cart_items SET quantity").
		WithArgs(3, int64(42), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	env.mock.ExpectRollback()

	req := jsonRequest(http.MethodPost, "/cart/items/42", `{"quantity": 3}`)
	rec := env.do(env.bearer(t, req, 7))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUpdateCartItemRejectsBadID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(env.bearer(t, jsonRequest(http.MethodPost, "/cart/items/abc", `{}`), 7))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
