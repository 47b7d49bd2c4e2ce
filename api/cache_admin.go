package api

import (
	"net/http"

	"travel-insight/access"
)

// CacheInvalidateHandler drops cached results, either for one report type
// (?report=booking) or everything. Privileged roles only: stale-on-purpose
// caching is an operator decision, not a user one.
func CacheInvalidateHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		if !access.Privileged(caller.Role) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		reportType := r.URL.Query().Get("report")
		var err error
		if reportType == "" {
			err = h.Engine.InvalidateAll(r.Context())
		} else {
			err = h.Engine.Invalidate(r.Context(), reportType)
		}
		if err != nil {
			http.Error(w, "Cache error", http.StatusInternalServerError)
			return
		}
		h.AccessLog.WithFields(map[string]any{"user": caller.ID, "report": reportType}).Info("cache invalidated")
		writeJSON(w, map[string]string{"status": "ok"})
	}
}
