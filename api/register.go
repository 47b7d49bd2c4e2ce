package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"travel-insight/access"
	"travel-insight/audit"
	"travel-insight/auth"
	"travel-insight/cache"
	"travel-insight/config"
	"travel-insight/finance"
	"travel-insight/period"
	"travel-insight/report"
	"travel-insight/template"
)

// Handlers bundles everything the HTTP layer needs; main.go builds one and
// registers the routes.
type Handlers struct {
	Cfg       *auth.Config
	Users     *auth.UsersFile
	Registry  *config.ReportsConfig
	Engine    *report.Engine
	Periods   *period.Generator
	Finance   *finance.Service
	Store     cache.Store
	Templates *template.Store
	Audit     *audit.Recorder

	AccessLog *logrus.Logger
	LoginLog  *logrus.Logger
	ReportLog *logrus.Logger
}

func RegisterHandlers(h *Handlers) {
	http.HandleFunc("/api/login", LoginHandler(h))
	http.HandleFunc("/api/schema", SchemaHandler(h))
	http.HandleFunc("/api/report/query", ReportQueryHandler(h))
	http.HandleFunc("/api/report/period", PeriodHandler(h))
	http.HandleFunc("/api/report/compare", CompareHandler(h))
	http.HandleFunc("/api/report/trend", TrendHandler(h))
	http.HandleFunc("/api/reports/execute", ReportExecuteHandler(h))
	http.HandleFunc("/api/reports/status", ReportStatusHandler(h))
	http.HandleFunc("/api/reports/download", DownloadHandler(h))
	http.HandleFunc("/api/filters/values", FilterValuesHandler(h))
	http.HandleFunc("/api/templates", TemplatesHandler(h))
	http.HandleFunc("/api/templates/update", TemplateUpdateHandler(h))
	http.HandleFunc("/api/templates/delete", TemplateDeleteHandler(h))
	http.HandleFunc("/api/finance/credit-debit", FinanceHandler(h, "credit-debit"))
	http.HandleFunc("/api/finance/gst", FinanceHandler(h, "gst"))
	http.HandleFunc("/api/finance/revenue", FinanceHandler(h, "revenue"))
	http.HandleFunc("/api/finance/profit-loss", FinanceHandler(h, "profit-loss"))
	http.HandleFunc("/api/finance/cashflow", FinanceHandler(h, "cashflow"))
	http.HandleFunc("/api/finance/dashboard", FinanceHandler(h, "dashboard"))
	http.HandleFunc("/api/cache/invalidate", CacheInvalidateHandler(h))
}

func StartServer(listenAddr string) error {
	return http.ListenAndServe(listenAddr, nil)
}

// requireCaller rejects the request when the bearer token is missing or bad.
func requireCaller(w http.ResponseWriter, r *http.Request, h *Handlers) (access.Caller, bool) {
	caller, err := auth.ExtractCaller(r, h.Cfg.JWT.Secret)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return access.Caller{}, false
	}
	return caller, true
}

// writeError maps the engine's error taxonomy onto HTTP statuses. Execution
// details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	status := http.StatusInternalServerError
	switch report.KindOf(err) {
	case report.KindValidation:
		status = http.StatusBadRequest
	case report.KindAccessDenied:
		status = http.StatusForbidden
	case report.KindNotFound:
		status = http.StatusNotFound
	case report.KindExecution, report.KindCache:
		msg = "report execution failed"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
