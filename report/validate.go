package report

import (
	"fmt"
	"regexp"
	"strings"

	"travel-insight/config"
)

const (
	maxFilterValueLen = 255
	maxLimit          = 1000
)

var aggregateFuncs = map[string]bool{
	"SUM": true, "COUNT": true, "AVG": true, "MIN": true, "MAX": true,
}

// aggregateExprRe matches the only aggregate expression shape the builder
// will ever emit: FUNC(column). Anything else is rejected before it can
// become a structural SQL fragment.
var aggregateExprRe = regexp.MustCompile(`^([A-Za-z]+)\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)$`)

// ParseAggregateExpr splits "SUM(total_amount)" into its function and column,
// or reports that the string is not an aggregate expression at all.
func ParseAggregateExpr(expr string) (fn, column string, ok bool) {
	m := aggregateExprRe.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return "", "", false
	}
	fn = strings.ToUpper(m[1])
	if !aggregateFuncs[fn] {
		return "", "", false
	}
	return fn, m[2], true
}

// AggregateKey is the result key for one aggregate, e.g. "total_amount_sum".
func AggregateKey(column, fn string) string {
	return column + "_" + strings.ToLower(fn)
}

// Validate is the sole gate between caller-supplied identifiers and the query
// builder's string concatenation: every column, filter name, group-by and
// order-by target must resolve against the registry's closed vocabulary.
// It is a pure check with no side effects.
func Validate(schema config.ReportSchema, cfg QueryConfig) error {
	for _, col := range cfg.Columns {
		if schema.HasColumn(col) {
			continue
		}
		if fn, aggCol, ok := ParseAggregateExpr(col); ok {
			if !schema.HasColumn(aggCol) {
				return Validationf("unknown column %q in aggregate %s", aggCol, fn)
			}
			continue
		}
		return Validationf("unknown column %q for report type %q", col, cfg.ReportType)
	}

	for name, value := range cfg.Filters {
		if _, ok := FilterColumn(schema, name); !ok {
			return Validationf("unknown filter %q for report type %q", name, cfg.ReportType)
		}
		if err := checkFilterValue(name, value); err != nil {
			return err
		}
	}

	for _, col := range cfg.GroupBy {
		if !schema.HasColumn(col) {
			return Validationf("unknown group-by column %q", col)
		}
	}

	for col, fn := range cfg.Aggregates {
		if !schema.HasColumn(col) {
			return Validationf("unknown aggregate column %q", col)
		}
		if !aggregateFuncs[strings.ToUpper(fn)] {
			return Validationf("unknown aggregate function %q", fn)
		}
	}

	for _, ob := range cfg.OrderBy {
		if schema.HasColumn(ob.Column) {
			continue
		}
		if isAggregateAlias(schema, cfg, ob.Column) {
			continue
		}
		for col, fn := range cfg.Aggregates {
			if ob.Column == AggregateKey(col, fn) {
				fn = strings.ToUpper(fn)
				return Validationf("order-by %q requires %s(%s) in columns", ob.Column, fn, col)
			}
		}
		return Validationf("unknown order-by column %q", ob.Column)
	}

	if cfg.Limit < 0 {
		return Validationf("negative limit")
	}
	if cfg.Offset < 0 {
		return Validationf("negative offset")
	}
	return nil
}

// CheckReserved rejects reserved columns for non-privileged callers. Split
// from Validate because it depends on who is asking, not on the request shape.
func CheckReserved(schema config.ReportSchema, cfg QueryConfig, privileged bool) error {
	if privileged {
		return nil
	}
	check := func(logical string) error {
		if col, ok := schema.Columns[logical]; ok && col.Reserved {
			return Validationf("column %q is reserved", logical)
		}
		return nil
	}
	for _, col := range cfg.Columns {
		name := col
		if _, aggCol, ok := ParseAggregateExpr(col); ok {
			name = aggCol
		}
		if err := check(name); err != nil {
			return err
		}
	}
	for _, col := range cfg.GroupBy {
		if err := check(col); err != nil {
			return err
		}
	}
	for name := range cfg.Filters {
		if logical, ok := FilterColumn(schema, name); ok {
			if err := check(logical); err != nil {
				return err
			}
		}
	}
	for col := range cfg.Aggregates {
		if err := check(col); err != nil {
			return err
		}
	}
	return nil
}

// FilterColumn resolves a filter name to the logical column it targets,
// stripping the range suffixes ("travelDateFrom" -> "travelDate").
func FilterColumn(schema config.ReportSchema, name string) (string, bool) {
	if schema.HasColumn(name) {
		return name, true
	}
	if base, ok := strings.CutSuffix(name, "From"); ok && schema.HasColumn(base) {
		return base, true
	}
	if base, ok := strings.CutSuffix(name, "To"); ok && schema.HasColumn(base) {
		return base, true
	}
	return "", false
}

func checkFilterValue(name string, value any) error {
	tooLong := func(s string) error {
		if len(s) > maxFilterValueLen {
			return Validationf("filter %q value exceeds %d bytes", name, maxFilterValueLen)
		}
		return nil
	}
	switch v := value.(type) {
	case string:
		return tooLong(v)
	case []string:
		for _, s := range v {
			if err := tooLong(s); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if err := tooLong(s); err != nil {
					return err
				}
			}
		}
	case map[string]any:
		return Validationf("filter %q has unsupported nested value", name)
	case nil:
		return Validationf("filter %q has nil value", name)
	default:
		if err := tooLong(fmt.Sprintf("%v", v)); err != nil {
			return err
		}
	}
	return nil
}

// isAggregateAlias reports whether name is the alias of an aggregate
// expression in the select columns. Only those aliases exist in the main
// statement's output, so only those are legal order-by targets; keys from
// cfg.Aggregates live in the separate aggregate statement and do not count.
func isAggregateAlias(schema config.ReportSchema, cfg QueryConfig, name string) bool {
	for _, expr := range cfg.Columns {
		if fn, col, ok := ParseAggregateExpr(expr); ok && name == AggregateKey(col, fn) {
			return true
		}
	}
	return false
}
