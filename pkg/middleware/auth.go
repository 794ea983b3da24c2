package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/httpapi"
	"github.com/crowd-dev/crowd-api/pkg/token"
)

// Authenticate restores the principal from a bearer token issued by the
// auth service. Requests without a valid token get 401.
func Authenticate(signer *token.Signer) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r)
			if !ok {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authorization token is required", nil)
				return
			}
			var claims token.APIClaims
			if err := signer.Parse(raw, &claims); err != nil {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid or expired token", nil)
				return
			}
			ctx := composables.WithPrincipal(r.Context(), &composables.Principal{
				UserID:      claims.UserID,
				TenantID:    claims.TenantID,
				Roles:       claims.Roles,
				Permissions: claims.Permissions,
			})
			ctx = composables.WithLogger(ctx, composables.UseLogger(ctx).WithField("user-id", claims.UserID.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProvideTenant binds the {tenantId} path variable to the context after
// checking it against the principal's tenant.
func ProvideTenant() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, err := uuid.Parse(mux.Vars(r)["tenantId"])
			if err != nil {
				_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "tenant not found", nil)
				return
			}
			principal, err := composables.UsePrincipal(r.Context())
			if err != nil {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authorization token is required", nil)
				return
			}
			if principal.TenantID != tenantID {
				_ = httpapi.WriteError(w, http.StatusForbidden, "permissionDenied", "tenant mismatch", nil)
				return
			}
			ctx := composables.WithTenantID(r.Context(), tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
