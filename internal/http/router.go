package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"negotiation-dashboard/backend-go/internal/config"
	"negotiation-dashboard/backend-go/internal/handlers"
	"negotiation-dashboard/backend-go/internal/services"
)

func NewRouter(cfg config.Config, cache services.Cache, backend *services.BackendClient, stats *services.StatisticsService, logger *zap.Logger) http.Handler {
	api := handlers.New(cfg, cache, backend, stats, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", api.Health)
	mux.HandleFunc("POST /api/v1/statistics/normalize", api.NormalizeStatistics)
	mux.Handle("GET /api/v1/vendors/{vendorID}/statistics", requireBearer(api.VendorStatistics))
	mux.Handle("GET /api/v1/statistics", requireBearer(api.ListStatistics))
	mux.Handle("DELETE /api/v1/statistics", requireBearer(api.ClearStatistics))
	mux.Handle("GET /api/v1/comparison", requireBearer(api.Comparison))
	mux.Handle("GET /api/v1/projects/{projectID}/comparison", requireBearer(api.ProjectComparison))
	mux.Handle("POST /api/v1/forecaster/chat", requireBearer(api.ForecasterChat))
	mux.Handle("GET /metrics", promhttp.Handler())

	h := http.Handler(mux)
	h = withRecovery(logger)(h)
	h = withMetrics(h)
	h = withBearerToken(h)
	h = withLogging(logger)(h)
	h = withRateLimit(cfg.RateLimitPerMin)(h)
	h = withCORS(cfg.AllowedOrigin)(h)
	return h
}
