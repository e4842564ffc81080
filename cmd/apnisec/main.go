package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/apnisec/issuetracker/pkg/api"
	"github.com/apnisec/issuetracker/pkg/auth"
	"github.com/apnisec/issuetracker/pkg/config"
	"github.com/apnisec/issuetracker/pkg/issues"
	"github.com/apnisec/issuetracker/pkg/notify"
	"github.com/apnisec/issuetracker/pkg/observability"
	"github.com/apnisec/issuetracker/pkg/ratelimit"
	"github.com/apnisec/issuetracker/pkg/storage"
	"github.com/apnisec/issuetracker/pkg/storage/cache"
	"github.com/apnisec/issuetracker/pkg/storage/memory"
	"github.com/apnisec/issuetracker/pkg/storage/postgres"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "apnisec: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)
	mailLogger := observability.NewLogrus(cfg.Observability.Level(), os.Stdout)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return err
	}

	stores, err := openStores(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}

	var mailer notify.Notifier
	if cfg.Mail.ResendAPIKey != "" {
		mailer = notify.NewResendNotifier(notify.ResendConfig{
			APIKey:  cfg.Mail.ResendAPIKey,
			From:    cfg.Mail.From,
			BaseURL: cfg.Mail.BaseURL,
			Timeout: cfg.Mail.Timeout,
		}, mailLogger)
	} else {
		logger.Warn("No email API key configured, notifications will only be logged")
		mailer = notify.NewLogNotifier(mailLogger)
	}
	notifier := notify.NewAsync(mailer, mailLogger, cfg.Mail.Timeout, notify.WithObserver(func(kind notify.Kind, err error) {
		metrics.RecordNotification(string(kind), err)
	}))

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}
	authService := auth.NewService(
		stores.users,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		tokens,
		notifier,
		logger,
		auth.WithLoginTokenTTL(cfg.Auth.LoginTokenTTL),
	)

	limiter := ratelimit.New(cfg.RateLimit.Limiter())

	apiServer := api.NewServer(api.Options{
		Auth:         authService,
		Issues:       stores.issues,
		Limiter:      limiter,
		Notifier:     notifier,
		Metrics:      metrics,
		Logger:       logger,
		CORSOrigins:  cfg.Server.CORSOrigins,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(apiServer, "apnisec-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(stores.db, stores.redis, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:     healthMux,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, httpServer, healthServer)
	shutdown.RegisterShutdownFunc("notifications", notifier.Wait)
	shutdown.RegisterShutdownFunc("rate limiter", func(context.Context) error {
		limiter.Close()
		return nil
	})
	shutdown.RegisterShutdownFunc("tracing", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	shutdown.RegisterShutdownFunc("storage", stores.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("API server listening on %s", httpServer.Addr)
		return serve(httpServer)
	})
	g.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		return serve(healthServer)
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

func serve(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s: %w", server.Addr, err)
	}
	return nil
}

// backends holds the selected stores and the connections behind them. db and
// redis stay nil when not configured.
type backends struct {
	users  storage.CredentialStore
	issues issues.Store
	db     *sql.DB
	redis  *redis.Client
}

func openStores(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) (*backends, error) {
	b := &backends{}

	switch cfg.Storage.Type {
	case "postgres":
		db, err := postgres.Open(cfg.Storage)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		b.db = db
		b.users = postgres.NewUserStore(db)
		b.issues = postgres.NewIssueStore(db)
		logger.Info("Using PostgreSQL storage")
	default:
		b.users = memory.NewUserStore()
		b.issues = memory.NewIssueStore()
		logger.Warn("Using in-memory storage, data is lost on restart")
	}

	if !cfg.Storage.UserCacheEnabled {
		return b, nil
	}

	var userCache cache.UserCache
	if cfg.Storage.RedisURL != "" {
		client, err := cache.NewRedisClient(cfg.Storage)
		if err != nil {
			b.Close(ctx)
			return nil, err
		}
		b.redis = client
		userCache = cache.NewRedisCache(client, cfg.Storage.UserCacheTTL)
	} else {
		userCache = cache.NewLRUCache(cfg.Storage.UserCacheSize, cfg.Storage.UserCacheTTL)
	}
	b.users = cache.NewCachedStore(b.users, userCache, logger, cache.WithObserver(metrics.RecordCacheLookup))
	logger.Infof("User cache enabled (%s)", userCache.Name())

	return b, nil
}

// Close releases database and cache connections.
func (b *backends) Close(context.Context) error {
	var errs []error
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	if b.db != nil {
		errs = append(errs, b.db.Close())
	}
	return errors.Join(errs...)
}
