package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/subgate/subgate/internal/model"
	"github.com/subgate/subgate/internal/service"
)

type contextKeyAuth string

const (
	productIdentityKey contextKeyAuth = "product_identity"
	adminIdentityKey   contextKeyAuth = "admin_identity"
)

// Client-facing messages. Unknown, inactive, and mismatched credentials
// share one message per gate.
const (
	msgAPIKeyRequired      = "API key required"
	msgInvalidAPIKey       = "Invalid API key"
	msgAuthRequired        = "Authentication required"
	msgUnsupportedScheme   = "Unsupported authentication method"
	msgInvalidCredentials  = "Invalid credentials"
	msgSuperAdminRequired  = "Super admin access required"
	msgInternalServerError = "Internal Server Error"
)

// APIKeyAuth returns a middleware that admits requests carrying a valid
// product API key in X-API-Key and attaches the product identity to the
// request context.
func APIKeyAuth(auth *service.AuthService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := auth.AuthenticateAPIKey(r.Context(), r.Header.Get("X-API-Key"))
			switch {
			case err == nil:
			case errors.Is(err, service.ErrMissingCredential):
				WriteError(w, http.StatusUnauthorized, msgAPIKeyRequired)
				return
			case errors.Is(err, service.ErrMalformedCredential),
				errors.Is(err, service.ErrUnknownIdentity),
				errors.Is(err, service.ErrInvalidCredential):
				WriteError(w, http.StatusUnauthorized, msgInvalidAPIKey)
				return
			default:
				logger.Error("api key authentication failed", "error", err, "request_id", GetRequestID(r.Context()))
				WriteError(w, http.StatusInternalServerError, msgInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), productIdentityKey, *id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminAuth returns a middleware that admits requests carrying valid admin
// Basic credentials and attaches the admin identity to the request context.
func AdminAuth(auth *service.AuthService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := auth.AuthenticateAdmin(r.Context(), r.Header.Get("Authorization"))
			switch {
			case err == nil:
			case errors.Is(err, service.ErrMissingCredential):
				w.Header().Set("WWW-Authenticate", `Basic realm="subgate"`)
				WriteError(w, http.StatusUnauthorized, msgAuthRequired)
				return
			case errors.Is(err, service.ErrUnsupportedScheme):
				WriteError(w, http.StatusUnauthorized, msgUnsupportedScheme)
				return
			case errors.Is(err, service.ErrMalformedCredential),
				errors.Is(err, service.ErrInvalidCredential):
				WriteError(w, http.StatusUnauthorized, msgInvalidCredentials)
				return
			default:
				logger.Error("admin authentication failed", "error", err, "request_id", GetRequestID(r.Context()))
				WriteError(w, http.StatusInternalServerError, msgInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), adminIdentityKey, *id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSuperAdmin returns a middleware that refuses admins without the
// SUPER_ADMIN role. It must run after AdminAuth.
func RequireSuperAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := AdminFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, msgAuthRequired)
				return
			}
			if !id.Role.IsSuper() {
				WriteError(w, http.StatusForbidden, msgSuperAdminRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ProductFromContext returns the product identity attached by APIKeyAuth.
func ProductFromContext(ctx context.Context) (service.ProductIdentity, bool) {
	id, ok := ctx.Value(productIdentityKey).(service.ProductIdentity)
	return id, ok
}

// AdminFromContext returns the admin identity attached by AdminAuth.
func AdminFromContext(ctx context.Context) (service.AdminIdentity, bool) {
	id, ok := ctx.Value(adminIdentityKey).(service.AdminIdentity)
	return id, ok
}

// WithProduct returns a copy of ctx carrying the product identity.
func WithProduct(ctx context.Context, id service.ProductIdentity) context.Context {
	return context.WithValue(ctx, productIdentityKey, id)
}

// WithAdmin returns a copy of ctx carrying the admin identity.
func WithAdmin(ctx context.Context, id service.AdminIdentity) context.Context {
	return context.WithValue(ctx, adminIdentityKey, id)
}

// WriteError writes the {"error": "..."} envelope. Handlers use the same
// shape through the handler package.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: message})
}
