package handlers

import (
	"net/http"
	"strings"

	"negotiation-dashboard/backend-go/internal/models"
	"negotiation-dashboard/backend-go/internal/negotiation"
)

func (a *API) Comparison(w http.ResponseWriter, r *http.Request) {
	ids, ok := parseVendorList(r.URL.Query().Get("vendors"), a.cfg.MaxCompareVendors)
	if !ok {
		writeError(w, http.StatusBadRequest, "too_many_vendors")
		return
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "vendors_required")
		return
	}
	a.writeComparison(w, r, ids)
}

// ProjectComparison compares every vendor attached to a project.
func (a *API) ProjectComparison(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.PathValue("projectID"))
	if projectID == "" {
		writeError(w, http.StatusBadRequest, "project_id_required")
		return
	}

	ctx, cancel := timeboxed(r, a.cfg.RequestTimeout)
	project, err := a.backend.GetProject(ctx, projectID)
	cancel()
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	ids := make([]string, 0, len(project.Vendors))
	for _, v := range project.Vendors {
		if v.VendorID == "" {
			continue
		}
		ids = append(ids, v.VendorID)
		if a.cfg.MaxCompareVendors > 0 && len(ids) >= a.cfg.MaxCompareVendors {
			break
		}
	}
	a.writeComparison(w, r, ids)
}

func (a *API) writeComparison(w http.ResponseWriter, r *http.Request, ids []string) {
	ctx, cancel := timeboxed(r, a.cfg.StatisticsTimeout)
	defer cancel()

	items, missing := a.stats.GetMultiple(ctx, ids)
	writeJSON(w, http.StatusOK, models.ComparisonResponse{
		Comparison: negotiation.Compare(items),
		Missing:    missing,
	})
}
