package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/orderpush/internal/api"
	"github.com/notifyhub/orderpush/internal/api/handler"
	"github.com/notifyhub/orderpush/internal/config"
	"github.com/notifyhub/orderpush/internal/credential"
	"github.com/notifyhub/orderpush/internal/db"
	"github.com/notifyhub/orderpush/internal/dispatcher"
	"github.com/notifyhub/orderpush/internal/idempotency"
	"github.com/notifyhub/orderpush/internal/kafka"
	"github.com/notifyhub/orderpush/internal/metrics"
	"github.com/notifyhub/orderpush/internal/payload"
	"github.com/notifyhub/orderpush/internal/provider"
	"github.com/notifyhub/orderpush/internal/ratelimiter"
	"github.com/notifyhub/orderpush/internal/repository"
	"github.com/notifyhub/orderpush/internal/resolver"
	"github.com/notifyhub/orderpush/internal/service"
	"github.com/notifyhub/orderpush/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- identity store ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	checks := map[string]handler.Check{
		"identity_store": pool.Ping,
	}

	// ---- batch ledger ----
	var ledger idempotency.Ledger
	if cfg.RedisAddr != "" {
		rdb, err := db.ConnectRedis(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		ledger = idempotency.NewRedisLedger(rdb, cfg.LedgerLease, cfg.LedgerRetention)
		checks["ledger"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		logger.Warn("REDIS_ADDR empty, batch ledger kept in process memory")
		ledger = idempotency.NewMemoryLedger(cfg.LedgerLease, cfg.LedgerRetention)
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hooks := m.Hooks()

	staff := repository.NewPgStaffRepository(pool)
	prov := provider.NewGatewayProvider(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
	limiter := ratelimiter.New(cfg.ProviderRateLimit)

	svc := service.NewDispatchService(cfg.TriggerStatus, service.Dependencies{
		Staff:       staff,
		Ledger:      ledger,
		Resolver:    resolver.New(staff, cfg.RecipientRole, logger.Named("resolver")),
		Builder:     payload.NewBuilder(nil),
		Dispatcher:  dispatcher.New(prov, limiter, logger.Named("dispatcher")),
		Credentials: credential.NewManager(staff, cfg.InvalidationConcurrency, logger.Named("credential"), hooks.OnCleared),
		Provider:    prov,
		Hooks:       hooks,
		Logger:      logger.Named("dispatch"),
	})

	// ---- kafka consumer workers ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var consumers *worker.Pool
	if cfg.KafkaEnabled {
		onRedelivered, onDropped := m.WorkerHooks()
		consumers = worker.NewPool(
			cfg.ConsumerWorkers,
			func() worker.MessageSource {
				return kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
			},
			svc,
			worker.Options{
				Backoff:         cfg.RedeliveryBackoff(),
				MaxRedeliveries: cfg.MaxRedeliveries,
			},
			logger.Named("consumer"),
			worker.MetricHooks{OnRedelivered: onRedelivered, OnDropped: onDropped},
		)
		consumers.Start(workerCtx)
		logger.Info("kafka consumers started",
			zap.Int("workers", cfg.ConsumerWorkers),
			zap.String("topic", cfg.KafkaTopic),
			zap.String("group_id", cfg.KafkaGroupID),
		)
	}

	// ---- HTTP server ----
	router := api.NewRouter(svc, reg, checks, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal the consumers to stop fetching.
	cancelWorkers()

	// 3. Wait for in-flight events to finish and close the readers.
	if consumers != nil {
		consumers.Wait()
	}

	logger.Info("server stopped cleanly")
}
