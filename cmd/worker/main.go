// The worker runs the reconciler on its own, for deployments where API
// replicas scale out and exactly one process may write durable vote fields.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/samber/do"
	"github.com/serroba/livepoll-go/internal/container"
	"github.com/serroba/livepoll-go/internal/reconcile"
	"go.uber.org/zap"
)

func main() {
	opts := &container.Options{
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		PostgresDSN:             getEnv("POSTGRES_DSN", ""),
		LogFormat:               getEnv("LOG_FORMAT", "console"),
		SyncIntervalSeconds:     getEnvInt("SYNC_INTERVAL_SECONDS", 30),
		SyncInitialDelaySeconds: getEnvInt("SYNC_INITIAL_DELAY_SECONDS", 5),
	}

	injector := do.New()
	do.ProvideValue(injector, opts)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.StorePackage(injector)
	container.VoteCachePackage(injector)
	container.ReconcilePackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)
	reconciler := do.MustInvoke[*reconcile.Reconciler](injector)

	ctx, cancel := context.WithCancel(context.Background())

	if err := reconciler.Start(ctx); err != nil {
		logger.Fatal("failed to start reconciler", zap.Error(err))
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	if err := reconciler.Shutdown(); err != nil {
		logger.Error("reconciler shutdown error", zap.Error(err))
	}

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return defaultValue
}
