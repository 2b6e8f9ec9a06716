package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/schoolhub/schoolhub-server/internal/auth"
	"github.com/schoolhub/schoolhub-server/internal/domain"
	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/http/response"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyClaims contextKey = "claims"

// bearerToken extracts the token from an Authorization header.
// Returns empty string if the header is missing or malformed.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}

// requireAuth is middleware that validates access tokens and attaches the
// decoded claims to the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			response.Unauthorized(w, "Missing or malformed authorization header", s.logger)
			return
		}

		claims, err := s.authService.VerifyAccessToken(token)
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token", s.logger)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin is middleware that ensures the authenticated user is an admin.
// Must be used after requireAuth.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := getClaims(r.Context())
		if claims == nil || claims.Role != domain.RoleAdmin {
			response.Forbidden(w, "Admin access required", s.logger)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getClaims extracts the access token claims from request context.
// Returns nil if the request was not authenticated.
func getClaims(ctx context.Context) *auth.AccessClaims {
	if claims, ok := ctx.Value(contextKeyClaims).(*auth.AccessClaims); ok {
		return claims
	}
	return nil
}

// getUserID extracts the authenticated user ID from request context.
// Returns empty string if not authenticated.
func getUserID(ctx context.Context) string {
	if claims := getClaims(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

// identityFromClaims builds the file gate's authorization context from
// token claims. A nil result means "no valid token".
func identityFromClaims(claims *auth.AccessClaims) *files.Identity {
	if claims == nil {
		return nil
	}
	return &files.Identity{
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}
}

// identityFromContext builds the file gate identity for the current request.
func identityFromContext(ctx context.Context) *files.Identity {
	return identityFromClaims(getClaims(ctx))
}
