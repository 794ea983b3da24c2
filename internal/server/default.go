package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/crowd-dev/crowd-api/pkg/application"
	"github.com/crowd-dev/crowd-api/pkg/configuration"
	"github.com/crowd-dev/crowd-api/pkg/httpapi"
	"github.com/crowd-dev/crowd-api/pkg/middleware"
	"github.com/crowd-dev/crowd-api/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
	Bundle        *i18n.Bundle
	// Only needed for RATE_LIMIT_STORAGE=redis.
	Redis *redis.Client
}

// Default registers the shared middleware stack on the application and
// builds the HTTP server. Modules must be loaded before it is called.
func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	middlewares := []mux.MiddlewareFunc{
		// Creates the root span and the request params used below.
		middleware.WithLogger(options.Logger, middleware.LoggerOptions{
			RequestIDHeader: conf.RequestIDHeader,
			RealIPHeader:    conf.RealIPHeader,
		}),
		middleware.WithMetrics(),
	}

	if conf.RateLimit.Enabled {
		var store limiter.Store
		switch conf.RateLimit.Storage {
		case "redis":
			var err error
			if options.Redis != nil {
				store, err = middleware.NewRedisStore(options.Redis)
			}
			if options.Redis == nil || err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}
		middlewares = append(middlewares, middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerPeriod: conf.RateLimit.GlobalRPS,
			Store:             store,
		}))
	}

	middlewares = append(middlewares,
		middleware.ProvidePool(options.Pool),
		middleware.ProvideHydration(conf.Hydration.PopulateRelations()),
		middleware.ProvideLocalizer(options.Bundle),
	)
	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(app, conf.AllowedOrigins(), http.HandlerFunc(notFound)), nil
}

func notFound(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "no route for "+r.Method+" "+r.URL.Path, nil)
}
