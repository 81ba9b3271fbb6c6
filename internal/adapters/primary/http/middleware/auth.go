package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

const (
	// AuthUserKey is the context key for the authenticated user.
	AuthUserKey contextKey = "auth_user"
	// SessionTokenKey is the context key for the bearer token the
	// authenticated user presented.
	SessionTokenKey contextKey = "session_token"
)

// SessionAuth validates the opaque bearer token from the Authorization
// header against the session store. Expired and revoked tokens both fail
// with the same response so a client cannot tell them apart.
func SessionAuth(validator ports.SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				writeUnauthenticated(w, "Authorization header format must be Bearer {token}")
				return
			}

			user, _, err := validator.ValidateSession(r.Context(), token)
			if err != nil {
				writeUnauthenticated(w, "Invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), AuthUserKey, user)
			ctx = context.WithValue(ctx, SessionTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAuthUser retrieves the authenticated user from the request context.
func GetAuthUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(AuthUserKey).(*domain.User)
	return user, ok
}

// GetSessionToken retrieves the presented bearer token from the request context.
func GetSessionToken(ctx context.Context) string {
	if token, ok := ctx.Value(SessionTokenKey).(string); ok {
		return token
	}
	return ""
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeUnauthenticated(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + message + `","code":"UNAUTHENTICATED"}`))
}
