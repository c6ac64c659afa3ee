package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/todd-reagan/nile-collector/pkg/httputil"
)

const UserIDKey = contextKey("user_id")

var errInvalidToken = errors.New("invalid token")

// AuthMiddleware verifies end-user bearer tokens issued by the identity
// provider and threads the subject identifier into the request context.
// A request without a resolvable subject is always rejected, never
// defaulted.
type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "Authentication error: Authorization context missing or invalid.")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteError(w, http.StatusUnauthorized, "Authentication error: Authorization context missing or invalid.")
			return
		}

		userID, err := m.subjectFromToken(parts[1])
		if err != nil {
			slog.Warn("Bearer token validation failed", slog.String("error", err.Error()))
			httputil.WriteError(w, http.StatusUnauthorized, "Authentication error: User identifier not found in token.")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// subjectFromToken validates the JWT and extracts the stable subject
// identifier. An empty sub claim is an auth failure.
func (m *AuthMiddleware) subjectFromToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errInvalidToken
	}
	return sub, nil
}

// GetUserID extracts the authenticated user id from the context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}
