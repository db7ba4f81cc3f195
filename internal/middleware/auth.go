package middleware

import (
	"context"
	"net/http"
	"strings"
)

type accessTokenVerifier interface {
	Verify(tokenString string) (string, error)
}

type contextKey string

const userIDContextKey contextKey = "auth_user_id"

type AuthMiddleware struct {
	codec accessTokenVerifier
}

func NewAuthMiddleware(codec accessTokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{codec: codec}
}

// RequireAccessToken reads the access token from x-access-token or
// Authorization (an optional "Bearer " prefix is stripped), verifies it
// and stores the subject user id on the request context. A missing,
// malformed or expired token fails fast with 403 before any handler runs.
func (m *AuthMiddleware) RequireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get("x-access-token"))
		if token == "" {
			token = strings.TrimSpace(r.Header.Get("Authorization"))
		}
		if strings.HasPrefix(token, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
		}

		if token == "" {
			writeForbidden(w)
			return
		}

		userID, err := m.codec.Verify(token)
		if err != nil {
			writeForbidden(w)
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}

func writeForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = jsonEncode(w, map[string]string{"message": "invalid or expired token"})
}
