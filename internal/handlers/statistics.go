package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"negotiation-dashboard/backend-go/internal/metrics"
	"negotiation-dashboard/backend-go/internal/models"
	"negotiation-dashboard/backend-go/internal/negotiation"
	"negotiation-dashboard/backend-go/internal/services"
)

const maxAnalyticsBody = 1 << 20

func (a *API) VendorStatistics(w http.ResponseWriter, r *http.Request) {
	vendorID := strings.TrimSpace(r.PathValue("vendorID"))
	if vendorID == "" {
		writeError(w, http.StatusBadRequest, "vendor_id_required")
		return
	}

	ctx, cancel := timeboxed(r, a.cfg.StatisticsTimeout)
	defer cancel()

	opts := services.GetOptions{Refresh: parseBoolParam(r.URL.Query().Get("refresh"))}
	data, meta, err := a.stats.Get(ctx, vendorID, opts)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.StatisticsResponse{VendorID: vendorID, Data: data, Meta: meta})
}

func (a *API) ListStatistics(w http.ResponseWriter, r *http.Request) {
	items := a.stats.All(r.Context())
	writeJSON(w, http.StatusOK, models.StatisticsListResponse{Items: items, Count: len(items)})
}

func (a *API) ClearStatistics(w http.ResponseWriter, r *http.Request) {
	if err := a.stats.Clear(r.Context()); err != nil {
		a.logger.Error("clear statistics cache", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cache_clear_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// NormalizeStatistics normalizes an analytics document posted by the
// client without touching the backend or the cache.
func (a *API) NormalizeStatistics(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAnalyticsBody)
	defer r.Body.Close()

	var payload any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	raw, ok := payload.(map[string]any)
	if !ok {
		writeError(w, http.StatusBadRequest, "expected_json_object")
		return
	}

	shape := negotiation.DetectShape(raw)
	metrics.Normalizations.WithLabelValues(string(shape)).Inc()
	w.Header().Set("X-Analytics-Shape", string(shape))
	writeJSON(w, http.StatusOK, negotiation.Normalize(raw))
}
