package api

import (
	"encoding/json"
	"net/http"

	"travel-insight/report"
)

type templateRequest struct {
	ID     string             `json:"id,omitempty"`
	Name   string             `json:"name,omitempty"`
	Config report.QueryConfig `json:"config"`
}

// TemplatesHandler lists the caller's saved templates (GET) or creates a new
// one (POST). The config is validated against the registry before saving so a
// stored template is always runnable.
func TemplatesHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		switch r.Method {
		case "GET":
			writeJSON(w, h.Templates.List(caller))
		case "POST":
			var req templateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid JSON", http.StatusBadRequest)
				return
			}
			if err := validateTemplateConfig(h, req.Config); err != nil {
				writeError(w, err)
				return
			}
			t, err := h.Templates.Create(req.Name, req.Config, caller)
			if err != nil {
				writeError(w, err)
				return
			}
			h.ReportLog.WithFields(map[string]any{"user": caller.ID, "template": t.ID}).Info("template created")
			writeJSON(w, t)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// TemplateUpdateHandler replaces a saved template's name and config.
func TemplateUpdateHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		var req templateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if err := validateTemplateConfig(h, req.Config); err != nil {
			writeError(w, err)
			return
		}
		t, err := h.Templates.Update(req.ID, req.Name, req.Config, caller)
		if err != nil {
			writeError(w, err)
			return
		}
		h.ReportLog.WithFields(map[string]any{"user": caller.ID, "template": t.ID}).Info("template updated")
		writeJSON(w, t)
	}
}

// TemplateDeleteHandler removes a saved template.
func TemplateDeleteHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		var req templateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if err := h.Templates.Delete(req.ID, caller); err != nil {
			writeError(w, err)
			return
		}
		h.ReportLog.WithFields(map[string]any{"user": caller.ID, "template": req.ID}).Info("template deleted")
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

func validateTemplateConfig(h *Handlers, cfg report.QueryConfig) error {
	schema, found := h.Registry.Schema(cfg.ReportType)
	if !found {
		return report.Validationf("unknown report type %q", cfg.ReportType)
	}
	return report.Validate(schema, cfg)
}
