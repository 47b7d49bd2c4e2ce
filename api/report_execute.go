package api

import (
	"encoding/json"
	"net/http"
	"time"

	"travel-insight/report"
	"travel-insight/utils"
	"travel-insight/worker"
)

// ReportExecuteHandler queues a report for async rendering and returns the
// job ID immediately. Validation happens up front so a bad request fails fast
// instead of dying in the queue.
func ReportExecuteHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		var req struct {
			report.QueryConfig
			Formats []string `json:"formats"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		schema, found := h.Registry.Schema(req.ReportType)
		if !found {
			writeError(w, report.Validationf("unknown report type %q", req.ReportType))
			return
		}
		if err := report.Validate(schema, req.QueryConfig); err != nil {
			writeError(w, err)
			return
		}

		formats := req.Formats
		if len(formats) == 0 {
			formats = []string{"csv"}
		}
		for _, f := range formats {
			if f != "csv" && f != "xlsx" && f != "doc" {
				writeError(w, report.Validationf("unsupported export format %q", f))
				return
			}
		}

		job := &worker.Job{
			ID:        utils.GenerateRequestID(),
			Config:    req.QueryConfig,
			Caller:    caller,
			Formats:   formats,
			Origin:    r.RemoteAddr,
			CreatedAt: time.Now(),
		}
		worker.AddPendingJob(job)
		h.ReportLog.WithFields(map[string]any{"user": caller.ID, "report": req.ReportType, "id": job.ID}).Info("job queued")
		writeJSON(w, map[string]string{"id": job.ID, "status": string(worker.StatusWaiting)})
	}
}
