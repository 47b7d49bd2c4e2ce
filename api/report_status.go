package api

import (
	"net/http"

	"travel-insight/access"
	"travel-insight/worker"
)

func ReportStatusHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Missing id", http.StatusBadRequest)
			return
		}

		v, found := worker.ProcessingJobs().Load(id)
		if !found {
			http.NotFound(w, r)
			return
		}
		res := v.(*worker.Result)
		// A job is visible to its owner and to privileged roles only.
		if res.Owner != caller.ID && !access.Privileged(caller.Role) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		writeJSON(w, map[string]any{
			"id":     id,
			"status": res.Status,
			"rows":   res.Rows,
			"paths":  res.Paths,
			"error":  res.ErrorMsg,
		})
	}
}
