package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	internalserver "github.com/crowd-dev/crowd-api/internal/server"
	"github.com/crowd-dev/crowd-api/modules"
	automationservices "github.com/crowd-dev/crowd-api/modules/automation/services"
	"github.com/crowd-dev/crowd-api/pkg/analytics"
	"github.com/crowd-dev/crowd-api/pkg/application"
	"github.com/crowd-dev/crowd-api/pkg/authz"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/configuration"
	"github.com/crowd-dev/crowd-api/pkg/enrichment"
	"github.com/crowd-dev/crowd-api/pkg/featureflags"
	"github.com/crowd-dev/crowd-api/pkg/intl"
	"github.com/crowd-dev/crowd-api/pkg/logging"
	"github.com/crowd-dev/crowd-api/pkg/metrics"
	"github.com/crowd-dev/crowd-api/pkg/oauth"
	"github.com/crowd-dev/crowd-api/pkg/token"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configuration.Use())
		},
	}
}

func serve(ctx context.Context, conf *configuration.Configuration) error {
	defer conf.Unload()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		cleanup := logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
		defer cleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	pool, err := openPool(ctx, conf)
	if err != nil {
		return err
	}
	defer pool.Close()

	bundle, err := intl.LoadBundle()
	if err != nil {
		return errors.Wrap(err, "load locales")
	}

	checker, err := authz.NewService(authz.ConfigFrom(conf))
	if err != nil {
		return err
	}

	sink, closeSink, err := newAnalytics(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	rdb := newRedisClient(conf)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	app := application.New(&application.ApplicationOptions{
		Pool:   pool,
		Logger: logger,
		Bundle: bundle,
		Collaborators: application.Collaborators{
			Authz:             checker,
			Analytics:         sink,
			Flags:             newFlagProvider(conf, rdb),
			Enrichment:        newEnrichment(conf),
			TxManager:         composables.NewTxManager(),
			OAuth:             oauth.NewProviders(&conf.OAuth),
			State:             oauth.NewStateCodec(conf.Security.StateSecret, conf.Security.StateTTL),
			Tokens:            token.NewSigner(conf.Security.TokenSecret),
			FrontendURL:       conf.FrontendURL,
			FlagPollInterval:  conf.FeatureFlag.PollInterval,
			FlagMaxAttempts:   conf.FeatureFlag.MaxAttempts,
			CanDeletePolicy:   conf.CanDeletePolicy,
			PopulateRelations: conf.Hydration.PopulateRelations(),
			PageSize:          conf.PageSize,
			MaxPageSize:       conf.MaxPageSize,
		},
	})
	if err := modules.Load(app); err != nil {
		return errors.Wrap(err, "load modules")
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	srv, err := internalserver.Default(&internalserver.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
		Bundle:        bundle,
		Redis:         rdb,
	})
	if err != nil {
		return err
	}
	logger.WithField("address", conf.SocketAddress).Info("listening")
	err = srv.Start(ctx, conf.SocketAddress)

	// Let in-flight flag waits finish before the pool closes.
	if svc, ok := app.Service(automationservices.AutomationService{}).(*automationservices.AutomationService); ok {
		svc.Wait()
	}
	return err
}

func openPool(ctx context.Context, conf *configuration.Configuration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(conf.Database.Opts)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}
	cfg.MaxConns = conf.Database.MaxConns

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open database pool")
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return pool, nil
}

func newAnalytics(ctx context.Context, conf *configuration.Configuration, logger *logrus.Logger) (analytics.Sink, func(), error) {
	if !conf.Analytics.Enabled {
		return analytics.NopSink{}, func() {}, nil
	}
	tracker, err := analytics.NewTracker(analytics.Options{
		URL:       conf.Analytics.URL,
		WriteKey:  conf.Analytics.WriteKey,
		QueueSize: conf.Analytics.QueueSize,
		Workers:   conf.Analytics.Workers,
		Timeout:   conf.Analytics.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	tracker.Start(context.WithoutCancel(ctx))
	return tracker, tracker.Close, nil
}

// newRedisClient returns nil when no component is configured to use redis.
func newRedisClient(conf *configuration.Configuration) *redis.Client {
	needed := conf.FeatureFlag.Backend == "redis" ||
		(conf.RateLimit.Enabled && conf.RateLimit.Storage == "redis")
	if !needed {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.URL,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func newFlagProvider(conf *configuration.Configuration, rdb *redis.Client) featureflags.Provider {
	if conf.FeatureFlag.Backend != "redis" || rdb == nil {
		return featureflags.NewStaticProvider(conf.FeatureFlag.EnabledFlags()...)
	}
	return featureflags.NewRedisProvider(rdb, conf.FeatureFlag.EnabledFlags()...)
}

func newEnrichment(conf *configuration.Configuration) enrichment.Provider {
	if !conf.Enrichment.Enabled {
		return enrichment.Disabled{}
	}
	return enrichment.NewHTTPProvider(enrichment.HTTPOptions{
		BaseURL: conf.Enrichment.URL,
		APIKey:  conf.Enrichment.APIKey,
		RPS:     conf.Enrichment.RPS,
		Burst:   conf.Enrichment.Burst,
		Timeout: conf.Enrichment.Timeout,
	})
}
