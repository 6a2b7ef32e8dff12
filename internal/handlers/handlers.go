package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"negotiation-dashboard/backend-go/internal/config"
	"negotiation-dashboard/backend-go/internal/services"
)

type API struct {
	cfg     config.Config
	cache   services.Cache
	backend *services.BackendClient
	stats   *services.StatisticsService
	logger  *zap.Logger
}

func New(cfg config.Config, cache services.Cache, backend *services.BackendClient, stats *services.StatisticsService, logger *zap.Logger) *API {
	return &API{
		cfg:     cfg,
		cache:   cache,
		backend: backend,
		stats:   stats,
		logger:  logger,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func timeboxed(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

// parseVendorList splits a comma separated id list, dropping blanks and
// duplicates. ok is false when more than max ids remain.
func parseVendorList(raw string, max int) (ids []string, ok bool) {
	ids = []string{}
	if raw == "" {
		return ids, true
	}
	seen := map[string]bool{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		ids = append(ids, p)
	}
	if max > 0 && len(ids) > max {
		return ids, false
	}
	return ids, true
}

func parseBoolParam(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
