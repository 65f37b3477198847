package auth

import (
	"context"
	"net/http"
	"strings"
)

type claimsKey struct{}

// UserFromContext returns the claims AuthMiddleware stored, or nil on
// public routes.
func UserFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// requiresToken reports whether path is guarded by a bearer header. The
// WebSocket routes check a token query parameter themselves.
func requiresToken(path string) bool {
	if !strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/api/v1/ws/") {
		return false
	}
	switch path {
	case "/api/v1/health", "/api/v1/auth/login", "/api/v1/auth/setup", "/api/v1/auth/setup/status":
		return false
	}
	return true
}

// bearerToken extracts the credentials of an Authorization header. The
// scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthMiddleware admits API requests carrying a valid token for a role
// plangen grants. A 401 carries a WWW-Authenticate challenge.
func AuthMiddleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requiresToken(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="plangen"`)
				writeAuthError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			claims, err := tokens.ValidateAccessToken(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="plangen", error="invalid_token"`)
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired access token")
				return
			}
			if !Role(claims.Role).Valid() {
				writeAuthError(w, http.StatusForbidden, "role not permitted")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin guards account management routes.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := UserFromContext(r.Context()); c == nil || Role(c.Role) != RoleAdmin {
			writeAuthError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
