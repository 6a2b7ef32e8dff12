package handlers

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"negotiation-dashboard/backend-go/internal/models"
	"negotiation-dashboard/backend-go/internal/services"
)

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := []string{}
	missing := []string{}
	depsStatus := map[string]models.DepStatus{}
	if err := a.backend.Health(ctx); err != nil {
		missing = appendUniqueString(missing, "backend_unreachable")
		depsStatus["backend"] = models.DepStatus{Ok: false, Error: err.Error()}
	} else {
		deps = appendUniqueString(deps, "backend")
		depsStatus["backend"] = models.DepStatus{Ok: true}
	}

	cacheKind := services.CacheKind(a.cache)
	if rc, ok := a.cache.(*services.RedisCache); ok {
		if err := rc.Ping(ctx); err != nil {
			missing = appendUniqueString(missing, "redis_unreachable")
			depsStatus["redis"] = models.DepStatus{Ok: false, Error: err.Error()}
		} else {
			deps = appendUniqueString(deps, "redis")
			depsStatus["redis"] = models.DepStatus{Ok: true}
		}
	}

	resp := models.HealthResponse{
		Ok:          len(missing) == 0,
		TsISO:       nowISO(),
		Service:     "negotiation-backend-go",
		Version:     a.cfg.ServiceVersion,
		Deps:        deps,
		DepsStatus:  depsStatus,
		DataMissing: missing,
		Cache:       cacheKind,
		Env: map[string]bool{
			"BACKEND_BASE_URL":  os.Getenv("BACKEND_BASE_URL") != "",
			"BACKEND_API_TOKEN": a.cfg.BackendAPIToken != "",
			"REDIS_URL":         os.Getenv("REDIS_URL") != "",
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func appendUniqueString(items []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return items
	}
	for _, it := range items {
		if strings.EqualFold(it, v) {
			return items
		}
	}
	return append(items, v)
}
