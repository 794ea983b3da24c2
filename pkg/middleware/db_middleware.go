package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crowd-dev/crowd-api/pkg/composables"
)

// ProvidePool puts the connection pool into the request context. Services
// open their own transactions through composables.TxManager.
func ProvidePool(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := composables.WithPool(r.Context(), pool)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProvideHydration sets the default for relation hydration. A request may
// ask for id-only relations with ?populateRelations=false.
func ProvideHydration(populate bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			value := populate
			switch r.URL.Query().Get("populateRelations") {
			case "false":
				value = false
			case "true":
				value = populate
			}
			ctx := composables.WithPopulateRelations(r.Context(), value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
