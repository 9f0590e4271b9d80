package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog/backend/internal/cache"
	"catalog/backend/internal/config"
	"catalog/backend/internal/httpserver"
	"catalog/backend/internal/infrastructure/postgres"
	"catalog/backend/internal/infrastructure/rediscache"
	"catalog/backend/internal/infrastructure/token"
	"catalog/backend/internal/logging"
	"catalog/backend/internal/metrics"
	authusecase "catalog/backend/internal/usecase/auth"
	productusecase "catalog/backend/internal/usecase/product"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()

	db, err := postgres.New(rootCtx, cfg.DatabaseURL, postgres.PoolConfig{MaxConns: int32(cfg.DBMaxConns)})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(rootCtx); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}

	store, closeStore, err := openCache(rootCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	productService := productusecase.NewService(
		postgres.NewProductRepository(db.Pool),
		cache.NewAccessor(store, logger, collector),
		productusecase.WithLogger(logger),
		productusecase.WithTTL(cfg.CacheTTL),
	)

	var authService *authusecase.Service
	if cfg.AuthEnabled() {
		tokenManager := token.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry, cfg.JWTIssuer)
		authService = authusecase.NewService(postgres.NewUserRepository(db.Pool), tokenManager, logger)
		if err := authService.EnsureAdmin(rootCtx, cfg.AdminEmail, cfg.AdminPassword, "Admin"); err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		}
	} else {
		logger.Warn("JWT_SECRET not set; catalog writes are unauthenticated")
	}

	server := httpserver.NewServer(cfg, productService, authService,
		httpserver.WithLogger(logger),
		httpserver.WithMetrics(collector),
		httpserver.WithHealthCheck(db.Ping),
	)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", server.Addr()),
			zap.String("cache", cfg.CacheBackend),
			zap.Bool("auth", authService != nil),
		)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		return err
	case <-rootCtx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("graceful shutdown completed")
	return nil
}

// openCache builds the configured cache backend. A nil store disables caching.
func openCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			// Reads fall through to the database while Redis is down.
			logger.Warn("redis unreachable at startup", zap.Error(err))
		}
		store := rediscache.New(client,
			rediscache.WithPrefix(cfg.CachePrefix),
			rediscache.WithLogger(logger),
		)
		return store, func() { _ = client.Close() }, nil
	case config.CacheMemory:
		return cache.NewMemory(), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
