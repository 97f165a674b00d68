package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/example/ec-checkout/internal/apperr"
	"github.com/example/ec-checkout/internal/auth"
	"github.com/example/ec-checkout/internal/domain/customer"
)

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// ExtractToken extracts JWT token from cookie or Authorization header
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

type contextKey string

const (
	CustomerContextKey contextKey = "customer"
	AccessTokenCookie             = "access_token"
)

// AuthMiddleware validates JWT tokens and adds customer claims to context
func AuthMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ExtractToken(r)
			if tokenString == "" {
				respondError(w, "Authentication required.", http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.ValidateAccessToken(tokenString)
			if err != nil {
				respondError(w, "Invalid or expired token.", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), CustomerContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RoleSource reads a customer's current role from the store.
type RoleSource interface {
	CustomerRole(ctx context.Context, customerID int64) (customer.Role, error)
}

// RequireRole checks if the customer has one of the required roles. With a
// non-nil source the role is re-read on every request, so a demoted admin
// loses access before the token expires.
func RequireRole(source RoleSource, roles ...customer.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetCustomerFromContext(r.Context())
			if !ok {
				respondError(w, "Authentication required.", http.StatusUnauthorized)
				return
			}

			current := claims.Role
			if source != nil {
				role, err := source.CustomerRole(r.Context(), claims.CustomerID)
				switch {
				case apperr.KindOf(err) == apperr.KindNotFound:
					respondError(w, "Authentication required.", http.StatusUnauthorized)
					return
				case err != nil:
					log.Printf("[Auth] Role lookup failed for customer %d: %v", claims.CustomerID, err)
					respondError(w, "Internal server error.", http.StatusInternalServerError)
					return
				}
				current = role
			}

			for _, role := range roles {
				if current == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			respondError(w, "Access denied. Admins only.", http.StatusForbidden)
		})
	}
}

// GetCustomerFromContext retrieves customer claims from the request context
func GetCustomerFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(CustomerContextKey).(*auth.Claims)
	return claims, ok
}

// GetCustomerID returns the authenticated customer's id, or 0
func GetCustomerID(ctx context.Context) int64 {
	claims, ok := GetCustomerFromContext(ctx)
	if !ok {
		return 0
	}
	return claims.CustomerID
}
