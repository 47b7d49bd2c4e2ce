package period

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"travel-insight/access"
	"travel-insight/audit"
	"travel-insight/config"
	"travel-insight/report"
)

// Querier is the slice of the engine the generator needs.
type Querier interface {
	Execute(ctx context.Context, cfg report.QueryConfig, caller access.Caller) (*report.QueryResult, error)
}

// Generator produces time-bounded sub-reports by merging bucket boundaries
// into the filter set and re-bucketing the rows into a sub-unit series.
type Generator struct {
	Registry *config.ReportsConfig
	Engine   Querier
	Audit    *audit.Recorder
}

func NewGenerator(registry *config.ReportsConfig, engine Querier, recorder *audit.Recorder) *Generator {
	return &Generator{Registry: registry, Engine: engine, Audit: recorder}
}

// Bucket is one time-bounded sub-report. Never mutated after creation.
type Bucket struct {
	Kind   Kind                `json:"kind"`
	Start  time.Time           `json:"start"`
	End    time.Time           `json:"end"`
	Result *report.QueryResult `json:"result"`
	Series []Point             `json:"series"`
}

// Point is one entry of the bucket's sub-unit time series.
type Point struct {
	Label      string             `json:"label"`
	Rows       int                `json:"rows"`
	Aggregates map[string]float64 `json:"aggregates,omitempty"`
}

// Generate computes the bucket boundaries for (kind, ref), runs the base
// config restricted to that window, and derives the sub-unit series. The base
// config is cloned, never mutated.
func (g *Generator) Generate(ctx context.Context, kind Kind, ref time.Time, base report.QueryConfig, caller access.Caller) (*Bucket, error) {
	bucket, err := g.generate(ctx, kind, ref, base, caller)
	g.record(kind, base, caller, err)
	return bucket, err
}

func (g *Generator) generate(ctx context.Context, kind Kind, ref time.Time, base report.QueryConfig, caller access.Caller) (*Bucket, error) {
	schema, ok := g.Registry.Schema(base.ReportType)
	if !ok {
		return nil, report.Validationf("unknown report type %q", base.ReportType)
	}
	if schema.DateColumn == "" {
		return nil, report.Validationf("report type %q has no date column for time bucketing", base.ReportType)
	}

	start, end, err := Range(kind, ref)
	if err != nil {
		return nil, report.Validationf("%v", err)
	}

	cfg := base.
		WithFilter(schema.DateColumn+"From", start.Format(startLayout)).
		WithFilter(schema.DateColumn+"To", end.Format(endLayout))

	res, err := g.Engine.Execute(ctx, cfg, caller)
	if err != nil {
		return nil, err
	}

	return &Bucket{
		Kind:   kind,
		Start:  start,
		End:    end,
		Result: res,
		Series: buildSeries(kind, schema.DateColumn, cfg.Aggregates, res),
	}, nil
}

// buildSeries groups result rows by the natural sub-unit of the bucket and
// recomputes the requested aggregates per group.
func buildSeries(kind Kind, dateColumn string, aggregates map[string]string, res *report.QueryResult) []Point {
	groups := map[string][]map[string]any{}
	for _, row := range res.Rows {
		t, ok := parseRowTime(row[dateColumn])
		if !ok {
			continue
		}
		label := subLabel(kind, t)
		groups[label] = append(groups[label], row)
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	series := make([]Point, 0, len(labels))
	for _, label := range labels {
		rows := groups[label]
		series = append(series, Point{
			Label:      label,
			Rows:       len(rows),
			Aggregates: groupAggregates(aggregates, rows),
		})
	}
	return series
}

func groupAggregates(spec map[string]string, rows []map[string]any) map[string]float64 {
	if len(spec) == 0 {
		return nil
	}
	out := make(map[string]float64, len(spec))
	for col, fn := range spec {
		fn = strings.ToUpper(fn)
		key := report.AggregateKey(col, fn)
		switch fn {
		case "COUNT":
			out[key] = float64(len(rows))
		case "SUM", "AVG":
			sum := 0.0
			for _, row := range rows {
				sum += numeric(row[col])
			}
			if fn == "AVG" && len(rows) > 0 {
				sum /= float64(len(rows))
			}
			out[key] = sum
		case "MIN", "MAX":
			if len(rows) == 0 {
				out[key] = 0
				continue
			}
			best := numeric(rows[0][col])
			for _, row := range rows[1:] {
				v := numeric(row[col])
				if (fn == "MIN" && v < best) || (fn == "MAX" && v > best) {
					best = v
				}
			}
			out[key] = best
		}
	}
	return out
}

var rowTimeLayouts = []string{
	"2006-01-02 15:04:05.999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
}

func parseRowTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		for _, layout := range rowTimeLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t, true
			}
		}
	case []byte:
		return parseRowTime(string(val))
	}
	return time.Time{}, false
}

func numeric(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	case []byte:
		return numeric(string(val))
	default:
		return 0
	}
}

func (g *Generator) record(kind Kind, base report.QueryConfig, caller access.Caller, err error) {
	if g.Audit == nil {
		return
	}
	rec := audit.Record{
		Category:    audit.CategoryGeneration,
		Actor:       caller.ID,
		Description: "time period report: " + base.ReportType + " (" + string(kind) + ")",
		Status:      audit.StatusSuccess,
		Details: map[string]any{
			"report_type": base.ReportType,
			"period":      string(kind),
			"filters":     base.Filters,
		},
	}
	if err != nil {
		rec.Category = audit.CategoryError
		rec.Status = audit.StatusError
		rec.Details["error"] = err.Error()
	}
	g.Audit.Record(rec)
}
