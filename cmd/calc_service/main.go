package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"calculations-service/internal/auth"
	"calculations-service/internal/config"
	"calculations-service/internal/observability"
	"calculations-service/internal/server"
	"calculations-service/internal/storage"
)

func main() {
	ctx := context.Background()

	if err := observability.InitLogger(); err != nil {
		panic(err)
	}
	defer observability.SyncLogger()
	logger := observability.Logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if cfg.TracingEnabled {
		traceShutdown, err := observability.InitTracing(ctx)
		if err != nil {
			logger.Fatal("failed to init tracing", zap.Error(err))
		}
		defer traceShutdown(ctx)
	}

	db, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}

	blacklist := newBlacklist(cfg, logger)
	tokens := auth.NewManager([]byte(cfg.JWTSecret), cfg.AccessTTL, cfg.RefreshTTL, blacklist)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.NewRouter(db, tokens, logger),
	}

	go func() {
		logger.Info("server started", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	waitForShutdown(srv, logger)
}

// newBlacklist picks the token blacklist backend: Redis when configured,
// in-process otherwise.
func newBlacklist(cfg *config.Config, logger *zap.Logger) auth.Blacklist {
	if cfg.RedisURL == "" {
		return auth.NewMemoryBlacklist()
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("invalid REDIS_URL, falling back to in-memory blacklist", zap.Error(err))
		return auth.NewMemoryBlacklist()
	}
	return auth.NewRedisBlacklist(redis.NewClient(opts), logger)
}

func waitForShutdown(srv *http.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
