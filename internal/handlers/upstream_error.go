package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"negotiation-dashboard/backend-go/internal/services"
)

func writeUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrCircuitOpen) {
		w.Header().Set("Retry-After", "20")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "backend_unavailable"})
		return
	}

	var upErr *services.UpstreamError
	if errors.As(err, &upErr) {
		body := map[string]any{"error": err.Error(), "upstream_status": upErr.Status}
		if upErr.Code != 0 {
			body["code"] = upErr.Code
		}
		switch {
		case upErr.Status == http.StatusTooManyRequests:
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, body)
		case upErr.Status == http.StatusRequestTimeout || upErr.Status == http.StatusGatewayTimeout:
			writeJSON(w, http.StatusGatewayTimeout, body)
		case upErr.Status == http.StatusNotFound:
			writeJSON(w, http.StatusNotFound, body)
		case upErr.Status >= 400 && upErr.Status < 500:
			writeJSON(w, http.StatusUnprocessableEntity, body)
		default:
			writeJSON(w, http.StatusBadGateway, body)
		}
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, http.StatusGatewayTimeout, map[string]any{"error": "upstream_timeout"})
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		writeJSON(w, http.StatusGatewayTimeout, map[string]any{"error": "upstream_timeout"})
		return
	}
	writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
}
