package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nuggetsync/nuggetauth"
	"github.com/nuggetsync/nuggetauth/internal/config"
	"github.com/nuggetsync/nuggetauth/internal/logging"
	"github.com/nuggetsync/nuggetauth/internal/postgres"
	"github.com/nuggetsync/nuggetauth/internal/server"
	"github.com/nuggetsync/nuggetauth/internal/telemetry"
	otelexport "github.com/nuggetsync/nuggetauth/metrics/export/otel"
	promexport "github.com/nuggetsync/nuggetauth/metrics/export/prometheus"
	"github.com/nuggetsync/nuggetauth/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const janitorInterval = time.Minute

func main() {
	migrateDir := flag.String("migrate", "", "apply database migrations (up or down) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *migrateDir != "" {
		if err := postgres.Migrate(cfg.DatabaseURL, *migrateDir); err != nil {
			logger.Fatal("migrate failed", zap.String("direction", *migrateDir), zap.Error(err))
		}
		logger.Info("migrations applied", zap.String("direction", *migrateDir))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) error {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	builder := nuggetauth.New().
		WithConfig(cfg.EngineConfig()).
		WithUserProvider(postgres.NewUserRepository(pool)).
		WithAuditSink(nuggetauth.NewZapSink(logger.Named("audit"))).
		WithLogger(logger)

	switch cfg.SessionBackend {
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		builder = builder.WithRedis(rdb)
	case config.BackendMemory:
		store := session.NewMemoryStore()
		go store.RunJanitor(ctx, janitorInterval)
		builder = builder.WithSessionStore(store)
		logger.Warn("memory session backend selected; sessions are lost on restart and login throttle is off")
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer engine.Close()

	mp, err := telemetry.NewMeterProvider(ctx, cfg.OTLPEndpoint, cfg.OTelService, cfg.OTLPInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("meter provider shutdown failed", zap.Error(err))
		}
	}()

	otelExp, err := otelexport.NewExporter(mp.Meter("github.com/nuggetsync/nuggetauth"), engine)
	if err != nil {
		return fmt.Errorf("otel exporter: %w", err)
	}
	defer func() { _ = otelExp.Close() }()

	router := server.New(server.Deps{
		Auth:     engine,
		Profiles: postgres.NewProfileRepository(pool),
		DBPing: func(ctx context.Context) error {
			return postgres.Ping(ctx, pool, 2*time.Second)
		},
		Metrics: promexport.NewExporter(engine).Handler(),
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("env", cfg.Env),
			zap.String("session_backend", cfg.SessionBackend),
			zap.String("ip_binding", cfg.IPBinding),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if dropped := engine.AuditDropped(); dropped > 0 {
		logger.Warn("audit events dropped", zap.Uint64("count", dropped))
	}
	logger.Info("server stopped")
	return nil
}
