package api

import (
	"encoding/json"
	"net/http"
	"time"

	"travel-insight/period"
	"travel-insight/report"
)

type periodRequest struct {
	Kind    string             `json:"kind"` // day, week, month, quarter, year
	Ref     string             `json:"ref"`  // reference date, YYYY-MM-DD; today if empty
	Other   string             `json:"other"`
	Count   int                `json:"count"`
	Primary string             `json:"primary"`
	Config  report.QueryConfig `json:"config"`
}

func (pr *periodRequest) refTime() (time.Time, error) {
	if pr.Ref == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", pr.Ref)
}

func decodePeriodRequest(w http.ResponseWriter, r *http.Request) (*periodRequest, time.Time, bool) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, time.Time{}, false
	}
	var req periodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return nil, time.Time{}, false
	}
	ref, err := req.refTime()
	if err != nil {
		http.Error(w, "Invalid ref date", http.StatusBadRequest)
		return nil, time.Time{}, false
	}
	return &req, ref, true
}

// PeriodHandler generates one canonical-period report (daily, weekly,
// monthly, quarterly or yearly) with its sub-unit series.
func PeriodHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		req, ref, ok := decodePeriodRequest(w, r)
		if !ok {
			return
		}
		bucket, err := h.Periods.Generate(r.Context(), period.Kind(req.Kind), ref, req.Config, caller)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, bucket)
	}
}

// CompareHandler diffs the ref period against another one (defaulting to the
// immediately preceding period).
func CompareHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		req, ref, ok := decodePeriodRequest(w, r)
		if !ok {
			return
		}
		kind := period.Kind(req.Kind)
		other := period.Previous(kind, ref)
		if req.Other != "" {
			parsed, err := time.Parse("2006-01-02", req.Other)
			if err != nil {
				http.Error(w, "Invalid other date", http.StatusBadRequest)
				return
			}
			other = parsed
		}
		cmp, err := h.Periods.Compare(r.Context(), kind, ref, other, req.Config, caller)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, cmp)
	}
}

// TrendHandler walks count consecutive periods ending at ref and reports
// direction, growth and volatility of the primary aggregate.
func TrendHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		req, ref, ok := decodePeriodRequest(w, r)
		if !ok {
			return
		}
		count := req.Count
		if count == 0 {
			count = 6
		}
		trend, err := h.Periods.Trend(r.Context(), period.Kind(req.Kind), ref, count, req.Config, caller, req.Primary)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, trend)
	}
}
