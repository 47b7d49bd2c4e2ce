package report

import (
	"context"
	"sort"
	"strconv"

	"travel-insight/access"
	"travel-insight/config"
)

// computeAggregates runs the aggregate-only statement and flattens the single
// result row into a numeric map keyed "column_func". Derived metrics from the
// registry are then evaluated over that map. Returns an empty map without
// querying when no aggregates were requested.
func computeAggregates(ctx context.Context, exec Executor, schema config.ReportSchema, cfg QueryConfig, pred *access.Predicate) (map[string]float64, error) {
	if len(cfg.Aggregates) == 0 {
		return map[string]float64{}, nil
	}
	stmt, args, err := BuildAggregate(schema, cfg, pred)
	if err != nil {
		return nil, err
	}
	row, err := exec.QueryRow(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(row))
	for key, val := range row {
		out[key] = toFloat(val)
	}

	applyDerived(schema, out)
	return out, nil
}

// applyDerived evaluates registry formulas whose inputs are all present.
// Formulas with missing inputs are skipped, not failed: a request that only
// asked for some of the base aggregates still gets a complete answer.
func applyDerived(schema config.ReportSchema, aggs map[string]float64) {
	if len(schema.Derived) == 0 {
		return
	}
	names := make([]string, 0, len(schema.Derived))
	for name := range schema.Derived {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		node, err := ParseFormula(schema.Derived[name].Formula)
		if err != nil {
			continue
		}
		ready := true
		for _, leaf := range CollectLeafFields(node) {
			if _, ok := aggs[leaf]; !ok {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}
		if v, err := EvalFormula(node, aggs); err == nil {
			aggs[name] = v
		}
	}
}

func toFloat(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return val
	case float32:
		return float64(val)
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case []byte:
		f, _ := strconv.ParseFloat(string(val), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
