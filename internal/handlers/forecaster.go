package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"negotiation-dashboard/backend-go/internal/models"
	"negotiation-dashboard/backend-go/internal/services"
)

// ForecasterChat forwards a chat message to the backend forecaster. When the
// client sends no negotiationContext, one is built from the vendor's
// statistics if they can be loaded.
func (a *API) ForecasterChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	defer r.Body.Close()

	var req models.ForecasterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.VendorID = strings.TrimSpace(req.VendorID)
	if req.VendorID == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "vendor_id_and_message_required")
		return
	}

	if req.NegotiationContext == nil {
		if data, ok := a.stats.Cached(r.Context(), req.VendorID); ok {
			req.NegotiationContext = models.NewNegotiationContext(data)
		} else {
			ctx, cancel := timeboxed(r, a.cfg.StatisticsTimeout)
			data, _, err := a.stats.Get(ctx, req.VendorID, services.GetOptions{})
			cancel()
			if err != nil {
				a.logger.Info("forecaster chat without negotiation context",
					zap.String("vendor_id", req.VendorID),
					zap.Error(err),
				)
			} else {
				req.NegotiationContext = models.NewNegotiationContext(data)
			}
		}
	}

	ctx, cancel := timeboxed(r, a.cfg.RequestTimeout)
	defer cancel()
	resp, err := a.backend.SendForecasterMessage(ctx, req)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
