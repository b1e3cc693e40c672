package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Priya8975/harmony-node/internal/auth"
	"github.com/Priya8975/harmony-node/internal/engine"
)

type contextKey struct{}

// OrganizationID returns the authenticated organization, or 0.
func OrganizationID(ctx context.Context) int64 {
	id, _ := ctx.Value(contextKey{}).(int64)
	return id
}

func withOrganizationID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// requestID assigns a UUID to requests that arrive without an X-Request-Id
// so chi's RequestID middleware and error bodies carry it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(middleware.RequestIDHeader, id)
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// authMiddleware requires a bearer token issued by authority. Websocket
// upgrades may pass it as the access_token query parameter instead, since
// browsers cannot set headers on them.
func authMiddleware(authority *auth.Authority) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string
			if header := r.Header.Get("Authorization"); header != "" {
				parts := strings.SplitN(header, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					respondError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Invalid Authorization header format (expected 'Bearer <token>').")
					return
				}
				tokenStr = parts[1]
			} else if websocket.IsWebSocketUpgrade(r) {
				tokenStr = r.URL.Query().Get("access_token")
			}

			if tokenStr == "" {
				respondError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Missing Authorization header.")
				return
			}
			if authority == nil {
				respondError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Authentication not configured.")
				return
			}

			claims, err := authority.Validate(tokenStr)
			if err != nil {
				respondError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired token.")
				return
			}

			next.ServeHTTP(w, r.WithContext(withOrganizationID(r.Context(), claims.OrganizationID)))
		})
	}
}

// rateLimitMiddleware caps requests per organization. It is a no-op
// without a limiter or with a non-positive limit.
func rateLimitMiddleware(limiter *engine.RateLimiter, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bucket := engine.OrganizationKey(OrganizationID(r.Context()))
			if !limiter.Allow(r.Context(), bucket, limit) {
				respondError(w, r, http.StatusTooManyRequests, CodeTooManyRequests, "Too many events, slow down.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
