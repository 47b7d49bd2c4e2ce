package api

import (
	"encoding/json"
	"net/http"
	"time"

	"travel-insight/finance"
)

type financeRequest struct {
	From    string  `json:"from"` // YYYY-MM-DD, inclusive
	To      string  `json:"to"`   // YYYY-MM-DD, inclusive
	Opening float64 `json:"opening"`
}

func (fr *financeRequest) timeRange() (finance.Range, error) {
	from, err := time.Parse("2006-01-02", fr.From)
	if err != nil {
		return finance.Range{}, err
	}
	to, err := time.Parse("2006-01-02", fr.To)
	if err != nil {
		return finance.Range{}, err
	}
	return finance.Range{From: from, To: to}, nil
}

// FinanceHandler dispatches one financial statement per route. All of them
// take the same date-range body, cashflow and dashboard additionally use the
// opening balance.
func FinanceHandler(h *Handlers, statement string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		var req financeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		rng, err := req.timeRange()
		if err != nil {
			http.Error(w, "Invalid date range", http.StatusBadRequest)
			return
		}

		var out any
		switch statement {
		case "credit-debit":
			out, err = h.Finance.CreditDebit(r.Context(), caller, rng)
		case "gst":
			out, err = h.Finance.GST(r.Context(), caller, rng)
		case "revenue":
			out, err = h.Finance.Revenue(r.Context(), caller, rng)
		case "profit-loss":
			out, err = h.Finance.ProfitLoss(r.Context(), caller, rng)
		case "cashflow":
			out, err = h.Finance.CashFlow(r.Context(), caller, rng, req.Opening)
		case "dashboard":
			out, err = h.Finance.Dashboard(r.Context(), caller, rng, req.Opening)
		default:
			http.NotFound(w, r)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, out)
	}
}
