// Package finance derives financial statements from raw report data: each
// statement is a fixed recipe of query engine calls over a caller-supplied
// date range plus explicit-sign arithmetic.
package finance

import (
	"context"
	"time"

	"travel-insight/access"
	"travel-insight/audit"
	"travel-insight/report"
)

const (
	rangeStartLayout = "2006-01-02 15:04:05.000"
	rangeEndLayout   = "2006-01-02 15:04:05.999"
)

// Querier is the slice of the engine the generators need.
type Querier interface {
	Execute(ctx context.Context, cfg report.QueryConfig, caller access.Caller) (*report.QueryResult, error)
}

// Range is the inclusive reporting window for a statement.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Service runs the statement recipes. Stateless apart from its collaborators.
type Service struct {
	Engine Querier
	Audit  *audit.Recorder
}

func NewService(engine Querier, recorder *audit.Recorder) *Service {
	return &Service{Engine: engine, Audit: recorder}
}

// sum runs an aggregate-only query and returns SUM(column) for the filtered
// row set. An empty row set sums to zero, never a fault.
func (s *Service) sum(ctx context.Context, caller access.Caller, reportType, column string, filters map[string]any) (float64, error) {
	cfg := report.QueryConfig{
		ReportType: reportType,
		Filters:    filters,
		Aggregates: map[string]string{column: "SUM"},
		Limit:      1,
	}
	res, err := s.Engine.Execute(ctx, cfg, caller)
	if err != nil {
		return 0, err
	}
	return res.Aggregates[report.AggregateKey(column, "SUM")], nil
}

// count runs an aggregate-only COUNT over the filtered row set.
func (s *Service) count(ctx context.Context, caller access.Caller, reportType, column string, filters map[string]any) (float64, error) {
	cfg := report.QueryConfig{
		ReportType: reportType,
		Filters:    filters,
		Aggregates: map[string]string{column: "COUNT"},
		Limit:      1,
	}
	res, err := s.Engine.Execute(ctx, cfg, caller)
	if err != nil {
		return 0, err
	}
	return res.Aggregates[report.AggregateKey(column, "COUNT")], nil
}

// rangeFilters merges the window into a filter set on the given date column.
func rangeFilters(dateColumn string, r Range, extra map[string]any) map[string]any {
	out := make(map[string]any, len(extra)+2)
	for k, v := range extra {
		out[k] = v
	}
	out[dateColumn+"From"] = r.From.Format(rangeStartLayout)
	out[dateColumn+"To"] = r.To.Format(rangeEndLayout)
	return out
}

func (s *Service) record(caller access.Caller, name string, r Range, err error) {
	if s.Audit == nil {
		return
	}
	rec := audit.Record{
		Category:    audit.CategoryGeneration,
		Actor:       caller.ID,
		Description: "financial report: " + name,
		Status:      audit.StatusSuccess,
		Details: map[string]any{
			"statement": name,
			"from":      r.From.Format("2006-01-02"),
			"to":        r.To.Format("2006-01-02"),
		},
	}
	if err != nil {
		rec.Category = audit.CategoryError
		rec.Status = audit.StatusError
		rec.Details["error"] = err.Error()
	}
	s.Audit.Record(rec)
}
