package api

import (
	"encoding/json"
	"net/http"

	"travel-insight/report"
)

// ReportQueryHandler runs a report synchronously and returns the rows inline.
// Large or export-bound reports should go through /api/reports/execute.
func ReportQueryHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		var cfg report.QueryConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		res, err := h.Engine.Execute(r.Context(), cfg, caller)
		if err != nil {
			h.ReportLog.WithError(err).WithFields(map[string]any{"user": caller.ID, "report": cfg.ReportType}).Warn("query failed")
			writeError(w, err)
			return
		}
		h.ReportLog.WithFields(map[string]any{"user": caller.ID, "report": cfg.ReportType, "rows": res.Meta.RowCount, "cached": res.Meta.Cached}).Info("query ok")
		writeJSON(w, res)
	}
}
