// Package app wires the checkout service together and manages its
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/m-a-mahammad/shop-checkout/internal/cartsync"
	"github.com/m-a-mahammad/shop-checkout/internal/checkout"
	"github.com/m-a-mahammad/shop-checkout/internal/config"
	"github.com/m-a-mahammad/shop-checkout/internal/domain"
	"github.com/m-a-mahammad/shop-checkout/internal/event"
	"github.com/m-a-mahammad/shop-checkout/internal/gateway/cartapi"
	"github.com/m-a-mahammad/shop-checkout/internal/gateway/paymob"
	handler "github.com/m-a-mahammad/shop-checkout/internal/handler/http"
	"github.com/m-a-mahammad/shop-checkout/internal/pricing"
	pgrepo "github.com/m-a-mahammad/shop-checkout/internal/repository/postgres"
	"github.com/m-a-mahammad/shop-checkout/internal/store"
	"github.com/m-a-mahammad/shop-checkout/pkg/database"
	"github.com/m-a-mahammad/shop-checkout/pkg/health"
	"github.com/m-a-mahammad/shop-checkout/pkg/httpclient"
	pkgkafka "github.com/m-a-mahammad/shop-checkout/pkg/kafka"
	"github.com/m-a-mahammad/shop-checkout/pkg/tracing"
)

// App wires together all dependencies and runs the checkout service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	rdb             *redis.Client
	pool            *pgxpool.Pool
	producer        *pkgkafka.Producer
	totals          *pricing.Watcher
	detachTotals    func()
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Tracing.
	tracingShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "checkout",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampling,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Redis holds the per-user cart snapshots.
	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))

	// Postgres holds the payment attempt log.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, pgrepo.Migrations, pgrepo.MigrationsDir, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("connected to Postgres", slog.String("host", cfg.PostgresHost))

	// Kafka producer for domain events.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Upstream clients. The cart service sits behind a circuit breaker;
	// the payment gateway call is single-attempt and stays un-retried.
	cartHTTP := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("cart-service"),
		logger,
	)
	cartClient := cartapi.New(cartHTTP, cfg.CartServiceURL, logger)

	gatewayClient := paymob.New(
		httpclient.New(httpclient.DefaultConfig()),
		paymob.Config{
			BaseURL:       cfg.GatewayBaseURL,
			SecretKey:     cfg.GatewaySecretKey,
			PublicKey:     cfg.GatewayPublicKey,
			HostedBaseURL: cfg.GatewayHostedBaseURL,
		},
		logger,
	)

	// Build the dependency graph.
	snapshotTTL := time.Duration(cfg.SnapshotTTL) * time.Hour
	st := store.New(store.NewRedisSnapshotRepository(rdb, snapshotTTL))
	synchronizer := cartsync.New(cartClient, st, logger)

	calc := pricing.NewCalculator(cartClient, cfg.Currency)
	totals := pricing.NewWatcher(calc, 10*time.Second, logger)
	detachTotals := totals.Attach(st)

	events := event.NewProducer(producer, logger)
	st.Subscribe(func(cart *domain.Cart) {
		go events.CartUpdated(context.Background(), cart)
	})

	initiator := checkout.NewInitiator(
		gatewayClient,
		checkout.NewMethodResolver(cfg.CardIntegrationID, cfg.WalletIntegrationID),
		calc,
		st,
		pgrepo.NewAttemptRepository(pool),
		events,
		checkout.Config{
			Currency:          cfg.Currency,
			ExpirationSeconds: cfg.ExpirationSeconds,
			RedirectionURL:    cfg.RedirectionURL,
			NotificationURL:   cfg.NotificationURL,
		},
		logger,
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		Cart:          handler.NewCartHandler(synchronizer, totals, logger),
		Checkout:      handler.NewCheckoutHandler(initiator, logger),
		Frame:         handler.NewFrameHandler(gatewayClient, logger),
		Health:        healthHandler,
		JWTSecret:     cfg.JWTSecret,
		AllowedOrigin: cfg.AllowedOrigin,
		RateRPS:       cfg.RateLimitRPS,
		RateBurst:     cfg.RateLimitBurst,
		PprofCIDRs:    cfg.PprofCIDRs,
	}, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		rdb:             rdb,
		pool:            pool,
		producer:        producer,
		totals:          totals,
		detachTotals:    detachTotals,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	// Let in-flight total recomputations land before closing clients.
	a.detachTotals()
	a.totals.Wait()

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
