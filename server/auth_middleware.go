package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/restevean/go-cognito-backend/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClaims stores the validated token claims
	ContextKeyClaims ContextKey = "claims"
	// ContextKeyRequestID stores the request id assigned by the middleware
	ContextKeyRequestID ContextKey = "request_id"
)

// ClaimsFromContext retrieves the identity bound by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok
}

func bindRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext returns the request id, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(ContextKeyRequestID).(string)
	return requestID
}

// RequireAuth validates the session token and binds the resulting identity
// into the request context. Every failure produces the same unauthenticated
// response; which gate failed is visible only in the debug log.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, err := s.validator.Validate(r.Context(), s.extractToken(r))
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("token validation failed")
				writeJSONError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// extractToken reads the token from the Authorization header (API clients)
// or the session cookie (browser clients). Returns "" when neither is set;
// the validator decides what an empty token means.
func (s *Server) extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	if cookie, err := r.Cookie(s.config.GetSessionCookieName()); err == nil {
		return cookie.Value
	}
	return ""
}
