package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"travel-insight/access"
	"travel-insight/config"
)

// Build assembles the main parameterized statement for a validated config.
// Identifiers come exclusively from the registry vocabulary (Validate is a
// hard precondition); every caller-supplied value is passed as a bound
// parameter, never concatenated.
func Build(schema config.ReportSchema, cfg QueryConfig, pred *access.Predicate) (string, []any, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT ")
	sb.WriteString(selectList(schema, cfg))
	sb.WriteString(fromClause(schema))

	where, whereArgs := whereClause(schema, cfg, pred)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		args = append(args, whereArgs...)
	}

	if len(cfg.GroupBy) > 0 {
		parts := make([]string, 0, len(cfg.GroupBy))
		for _, col := range cfg.GroupBy {
			phys, ok := schema.ColumnSQL(col)
			if !ok {
				return "", nil, Validationf("unknown group-by column %q", col)
			}
			parts = append(parts, phys)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if len(cfg.OrderBy) > 0 {
		parts := make([]string, 0, len(cfg.OrderBy))
		for _, ob := range cfg.OrderBy {
			target, ok := schema.ColumnSQL(ob.Column)
			if !ok {
				if !isAggregateAlias(schema, cfg, ob.Column) {
					return "", nil, Validationf("unknown order-by column %q", ob.Column)
				}
				target = ob.Column
			}
			if ob.Desc {
				target += " DESC"
			}
			parts = append(parts, target)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	limit := cfg.Limit
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	sb.WriteString(" LIMIT ")
	sb.WriteString(strconv.Itoa(limit))
	if cfg.Offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(cfg.Offset))
	}

	return sb.String(), args, nil
}

// BuildAggregate assembles the aggregate-only statement: FUNC(col) AS
// col_func over the same FROM and WHERE as the main query, no limit.
func BuildAggregate(schema config.ReportSchema, cfg QueryConfig, pred *access.Predicate) (string, []any, error) {
	if len(cfg.Aggregates) == 0 {
		return "", nil, nil
	}
	cols := make([]string, 0, len(cfg.Aggregates))
	for col := range cfg.Aggregates {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	exprs := make([]string, 0, len(cols))
	for _, col := range cols {
		fn := strings.ToUpper(cfg.Aggregates[col])
		phys, ok := schema.ColumnSQL(col)
		if !ok {
			return "", nil, Validationf("unknown aggregate column %q", col)
		}
		exprs = append(exprs, fmt.Sprintf("%s(%s) AS %s", fn, phys, AggregateKey(col, fn)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(exprs, ", "))
	sb.WriteString(fromClause(schema))

	var args []any
	where, whereArgs := whereClause(schema, cfg, pred)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		args = append(args, whereArgs...)
	}
	return sb.String(), args, nil
}

func selectList(schema config.ReportSchema, cfg QueryConfig) string {
	if len(cfg.Columns) == 0 {
		return schema.Alias + ".*"
	}
	parts := make([]string, 0, len(cfg.Columns))
	for _, col := range cfg.Columns {
		if fn, aggCol, ok := ParseAggregateExpr(col); ok {
			phys, _ := schema.ColumnSQL(aggCol)
			parts = append(parts, fmt.Sprintf("%s(%s) AS %s", fn, phys, AggregateKey(aggCol, fn)))
			continue
		}
		phys, ok := schema.ColumnSQL(col)
		if !ok {
			continue
		}
		parts = append(parts, phys+" AS "+col)
	}
	if len(parts) == 0 {
		return schema.Alias + ".*"
	}
	return strings.Join(parts, ", ")
}

func fromClause(schema config.ReportSchema) string {
	var sb strings.Builder
	sb.WriteString(" FROM ")
	sb.WriteString(schema.Table)
	sb.WriteString(" ")
	sb.WriteString(schema.Alias)
	for _, j := range schema.Joins {
		kind := j.Kind
		if kind == "" {
			kind = "LEFT JOIN"
		}
		sb.WriteString(" ")
		sb.WriteString(kind)
		sb.WriteString(" ")
		sb.WriteString(j.Table)
		sb.WriteString(" ")
		sb.WriteString(j.Alias)
		sb.WriteString(" ON ")
		sb.WriteString(j.On)
	}
	return sb.String()
}

// whereClause emits the role predicate first, then one condition per filter
// in sorted name order so identical configs always yield identical SQL.
func whereClause(schema config.ReportSchema, cfg QueryConfig, pred *access.Predicate) (string, []any) {
	var conds []string
	var args []any

	if pred != nil && pred.Expr != "" {
		conds = append(conds, pred.Expr)
		args = append(args, pred.Args...)
	}

	names := make([]string, 0, len(cfg.Filters))
	for name := range cfg.Filters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cond, condArgs := filterCondition(schema, name, cfg.Filters[name])
		if cond == "" {
			continue
		}
		conds = append(conds, cond)
		args = append(args, condArgs...)
	}

	return strings.Join(conds, " AND "), args
}

func filterCondition(schema config.ReportSchema, name string, value any) (string, []any) {
	logical, ok := FilterColumn(schema, name)
	if !ok {
		return "", nil
	}
	phys, _ := schema.ColumnSQL(logical)

	if strings.HasSuffix(name, "From") && !schema.HasColumn(name) {
		return phys + " >= ?", []any{value}
	}
	if strings.HasSuffix(name, "To") && !schema.HasColumn(name) {
		return phys + " <= ?", []any{value}
	}

	switch v := value.(type) {
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return inCondition(phys, items)
	case []any:
		return inCondition(phys, v)
	case string:
		if strings.ContainsAny(v, "%*") {
			return phys + " LIKE ?", []any{strings.ReplaceAll(v, "*", "%")}
		}
		return phys + " = ?", []any{v}
	default:
		return phys + " = ?", []any{value}
	}
}

// inCondition emits set membership. The empty set matches no row, so it
// becomes an always-false condition rather than being dropped.
func inCondition(phys string, items []any) (string, []any) {
	if len(items) == 0 {
		return "1 = 0", nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(items)), ", ")
	return phys + " IN (" + marks + ")", items
}

// Rebind converts the builder's ? placeholders to the $n form postgres
// expects. mysql and sqlite take the statement unchanged.
func Rebind(driver, stmt string) string {
	if driver != "postgres" {
		return stmt
	}
	var sb strings.Builder
	n := 0
	for _, r := range stmt {
		if r == '?' {
			n++
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
