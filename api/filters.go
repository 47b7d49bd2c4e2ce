package api

import (
	"net/http"

	"travel-insight/report"
)

// FilterValuesHandler returns the distinct values of one column, for filter
// dropdowns. It goes through the engine so role scoping and reserved-column
// checks apply to the value list too.
func FilterValuesHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		reportType := r.URL.Query().Get("report")
		column := r.URL.Query().Get("column")
		if reportType == "" || column == "" {
			http.Error(w, "Missing report or column", http.StatusBadRequest)
			return
		}

		cfg := report.QueryConfig{
			ReportType: reportType,
			Columns:    []string{column},
			GroupBy:    []string{column},
			OrderBy:    []report.OrderBy{{Column: column}},
		}
		res, err := h.Engine.Execute(r.Context(), cfg, caller)
		if err != nil {
			writeError(w, err)
			return
		}

		values := make([]any, 0, len(res.Rows))
		for _, row := range res.Rows {
			if v, okVal := row[column]; okVal && v != nil {
				values = append(values, v)
			}
		}
		writeJSON(w, map[string]any{"report": reportType, "column": column, "values": values})
	}
}
