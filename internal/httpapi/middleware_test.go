package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifyRejectsBadBearer(t *testing.T) {
	env := newTestEnv(t)

	for _, header := range []string{"Bearer garbage", "Basic dXNlcjpwYXNz"} {
		req := httptest.NewRequest(http.MethodGet, "/cart/count", nil)
		req.Header.Set("Authorization", header)
		rec := env.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestIdentifyIgnoresExpiredSession(t *testing.T) {
	env := newTestEnv(t)

	var seen models.Identity
	h := env.server.identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = identityFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "never-issued"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.False(t, seen.Valid())
}

func TestIdentifyPrefersBearerOverCookie(t *testing.T) {
	env := newTestEnv(t)

	key, err := env.sessions.Create(t.Context())
	require.NoError(t, err)

	var seen models.Identity
	h := env.server.identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = identityFrom(r.Context())
	}))

	req := env.bearer(t, httptest.NewRequest(http.MethodGet, "/", nil), 7)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: key})
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, models.UserIdentity(7), seen)
}

func TestRespondErrMapsKinds(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{database.ErrProductNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: bad cursor", database.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{database.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{database.ErrCartCheckedOut, http.StatusConflict, "conflict"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		env.server.respondErr(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())

		var body ErrorResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, tt.code, body.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `route="/healthz"`))
}
