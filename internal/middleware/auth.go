// Package middleware provides HTTP middlewares for authentication, request
// identification and logging.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fieldops/missiond/internal/auth"
)

type ctxKey string

const (
	userKey      ctxKey = "user"
	usernameKey  ctxKey = "username"
	requestIDKey ctxKey = "request_id"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// JWTAuth is a middleware that requires a valid bearer token.
//
// On success the token subject is stored in the request context as the
// authenticated user ID; it is read back with GetUserIDFromContext.
func JWTAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "authentication required")
				return
			}
			p, err := verifier.Verify(token)
			if err != nil {
				unauthorized(w, "invalid credentials")
				return
			}
			ctx := WithUser(r.Context(), p.UserID, p.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, userID, username string) context.Context {
	ctx = context.WithValue(ctx, userKey, userID)
	return context.WithValue(ctx, usernameKey, username)
}

// GetUserIDFromContext extracts the authenticated user ID from the request
// context. Returns an empty string if not found.
func GetUserIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(userKey).(string); ok {
		return s
	}
	return ""
}

// GetUsernameFromContext extracts the authenticated username, if any.
func GetUsernameFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(usernameKey).(string); ok {
		return s
	}
	return ""
}
