package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"negotiation-dashboard/backend-go/internal/config"
	internalhttp "negotiation-dashboard/backend-go/internal/http"
	"negotiation-dashboard/backend-go/internal/logging"
	"negotiation-dashboard/backend-go/internal/services"
)

func main() {
	_ = godotenv.Load(
		".env",
		".env.local",
		"../.env",
		"../.env.local",
		"backend-go/.env",
		"backend-go/.env.local",
	)
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	cache := services.NewCache(cfg, logger)
	backend := services.NewBackendClient(cfg, logger)
	stats := services.NewStatisticsService(cfg, cache, backend, logger)

	warmCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if n, err := stats.Warm(warmCtx); err != nil {
		logger.Warn("statistics warm start failed", zap.Error(err))
	} else {
		logger.Info("statistics warm start", zap.Int("entries", n))
	}
	cancel()

	h := internalhttp.NewRouter(cfg, cache, backend, stats, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("negotiation backend listening",
			zap.String("addr", srv.Addr),
			zap.String("backend", cfg.BackendBaseURL),
			zap.String("cache", services.CacheKind(cache)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
