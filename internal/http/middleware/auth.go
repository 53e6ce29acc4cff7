package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	UserIDKey         contextKey = "user_id"
	OrganizationIDKey contextKey = "organization_id"
)

// UserClaims is the payload of the bearer tokens issued by the account service
type UserClaims struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	getSecret func() ([]byte, error)
}

// NewAuthMiddleware reads the HS256 secret through getSecret on every request so a
// rotated secret is picked up without a restart
func NewAuthMiddleware(getSecret func() ([]byte, error)) *AuthConfig {
	return &AuthConfig{getSecret: getSecret}
}

// RequireAuth rejects requests without a valid bearer token and stores the caller's
// user and organization ids in the request context
func (ac *AuthConfig) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, "Authorization header is required")
				return
			}
			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeUnauthorized(w, "Invalid authorization header format")
				return
			}

			secret, err := ac.getSecret()
			if err != nil || len(secret) == 0 {
				writeError(w, "Authentication is not configured", http.StatusInternalServerError)
				return
			}

			claims := &UserClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !parsed.Valid {
				writeUnauthorized(w, "Invalid token")
				return
			}
			if claims.UserID == "" || claims.OrganizationID == "" {
				writeUnauthorized(w, "Token is missing user or organization")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, OrganizationIDKey, claims.OrganizationID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the user ID set by the auth middleware
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}

// OrganizationIDFromContext returns the organization ID set by the auth middleware
func OrganizationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(OrganizationIDKey).(string)
	return id, ok && id != ""
}

// WithOrganization is used by tests and internal callers that bypass RequireAuth
func WithOrganization(ctx context.Context, userID, organizationID string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, OrganizationIDKey, organizationID)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, message, http.StatusUnauthorized)
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"error":%q}`, message)
}
