package api

import (
	"net/http"
	"path/filepath"

	"travel-insight/access"
	"travel-insight/worker"
)

var downloadTypes = map[string]string{
	"csv":  "text/csv",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"doc":  "text/plain; charset=utf-8",
}

// DownloadHandler streams a finished export. Ownership is enforced the same
// way as the status endpoint.
func DownloadHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		id := r.URL.Query().Get("id")
		format := r.URL.Query().Get("format")
		if format == "" {
			format = "csv"
		}
		contentType, okFormat := downloadTypes[format]
		if id == "" || !okFormat {
			http.Error(w, "Missing id or bad format", http.StatusBadRequest)
			return
		}

		v, found := worker.ProcessingJobs().Load(id)
		if !found {
			http.NotFound(w, r)
			return
		}
		res := v.(*worker.Result)
		if res.Owner != caller.ID && !access.Privileged(caller.Role) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if res.Status != worker.StatusComplete {
			http.Error(w, "Report not ready", http.StatusConflict)
			return
		}
		path, okPath := res.Paths[format]
		if !okPath {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(path)+"\"")
		http.ServeFile(w, r, path)
		h.AccessLog.WithFields(map[string]any{"user": caller.ID, "id": id, "format": format}).Info("download")
	}
}
