package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/safar/storefront/internal/models"
	"go.uber.org/zap"
)

const sessionCookie = "sid"

type contextKey int

const identityKey contextKey = iota

func withIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// identityFrom returns the visitor attached by identify, or the zero Identity.
func identityFrom(ctx context.Context) models.Identity {
	identity, _ := ctx.Value(identityKey).(models.Identity)
	return identity
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// observe records request metrics labelled by route pattern, so path
// parameters do not explode label cardinality.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(r.Method, route, status, time.Since(start))
	})
}

// identify attaches the visitor: a user from a bearer token, otherwise the
// anonymous session named by the session cookie when it is still live. A
// malformed or invalid bearer token is rejected outright.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if header := r.Header.Get("Authorization"); header != "" {
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || s.tokens == nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "bearer token required")
				return
			}
			userID, err := s.tokens.Parse(strings.TrimSpace(token))
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(ctx, models.UserIdentity(userID))))
			return
		}

		if cookie, err := r.Cookie(sessionCookie); err == nil && s.sessions != nil {
			live, err := s.sessions.Touch(ctx, cookie.Value)
			if err != nil {
				s.logger.Warn("touch session", zap.Error(err))
			} else if live {
				ctx = withIdentity(ctx, models.SessionIdentity(cookie.Value))
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensureIdentity starts an anonymous session for visitors that have none, so
// cart routes always act for someone.
func (s *Server) ensureIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if identityFrom(ctx).Valid() {
			next.ServeHTTP(w, r)
			return
		}
		if s.sessions == nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "sessions are unavailable")
			return
		}

		key, err := s.sessions.Create(ctx)
		if err != nil {
			s.logger.Error("create session", zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, "unavailable", "could not start a session")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    key,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		next.ServeHTTP(w, r.WithContext(withIdentity(ctx, models.SessionIdentity(key))))
	})
}
