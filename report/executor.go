package report

import (
	"context"
	"database/sql"
	"time"
)

// Executor is the persistence port: a single query surface over any relational
// backend with standard join/group/order/limit semantics.
type Executor interface {
	Query(ctx context.Context, stmt string, args ...any) ([]string, []map[string]any, error)
	QueryRow(ctx context.Context, stmt string, args ...any) (map[string]any, error)
}

// SQLExecutor runs statements through database/sql. Driver is one of
// "mysql", "postgres" or "sqlite3" and controls placeholder rebinding.
type SQLExecutor struct {
	DB     *sql.DB
	Driver string
}

func NewSQLExecutor(db *sql.DB, driver string) *SQLExecutor {
	return &SQLExecutor{DB: db, Driver: driver}
}

func (e *SQLExecutor) Query(ctx context.Context, stmt string, args ...any) ([]string, []map[string]any, error) {
	rows, err := e.DB.QueryContext(ctx, Rebind(e.Driver, stmt), args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func (e *SQLExecutor) QueryRow(ctx context.Context, stmt string, args ...any) (map[string]any, error) {
	cols, rows, err := e.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		row := make(map[string]any, len(cols))
		for _, col := range cols {
			row[col] = nil
		}
		return row, nil
	}
	return rows[0], nil
}

// normalizeValue flattens driver-specific scan types: []byte becomes string,
// timestamps become their canonical text form. Keeps cached and fresh results
// comparable across backends.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		return v
	}
}
