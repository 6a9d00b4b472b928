package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go-tasklist/internal/model"
)

type authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Principal, error)
}

type contextKey string

const principalContextKey contextKey = "principal"

const bearerPrefix = "Bearer "

type AuthMiddleware struct {
	auth authenticator
}

func NewAuthMiddleware(auth authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate runs on every request. A missing or unusable credential
// degrades to anonymous instead of failing, so public and guarded routes
// share this one interceptor; guarded routes reject anonymous requests
// further down via RequireAuth or the access predicates.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(header, bearerPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(header[len(bearerPrefix):])
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := m.auth.Authenticate(r.Context(), token)
		if err != nil || principal == nil {
			// Invalid, expired, or orphaned token: proceed anonymous.
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests that Authenticate left anonymous. The reason
// the credential was unusable is never echoed back.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			writeDenied(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func PrincipalFromContext(ctx context.Context) (*model.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(*model.Principal)
	return principal, ok && principal != nil
}

// WithPrincipal attaches a principal to ctx. Exported for tests that need a
// pre-authenticated request.
func WithPrincipal(ctx context.Context, principal *model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

func writeDenied(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
