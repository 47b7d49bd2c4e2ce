// Package export renders a query result into a page-oriented document, a
// spreadsheet or delimited text. All three renderers share one data contract
// and emit row-for-row identical data values; only presentation differs.
package export

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"travel-insight/report"
)

// Table is the renderer input: ordered columns, rows in result order, and an
// optional preamble of metadata lines shown before the data.
type Table struct {
	Title      string
	Columns    []string
	Rows       []map[string]any
	Aggregates map[string]float64
	Preamble   []string
}

// FromResult adapts an engine result. Column order follows the statement's
// select list so every renderer sees the same ordered data.
func FromResult(title string, res *report.QueryResult) *Table {
	return &Table{
		Title:      title,
		Columns:    res.Columns,
		Rows:       res.Rows,
		Aggregates: res.Aggregates,
	}
}

// Cell returns the formatted value at (row, column). This single formatting
// path is what guarantees data equivalence across renderers.
func (t *Table) Cell(row int, column string) string {
	return FormatValue(t.Rows[row][column])
}

// AggregateLines renders the aggregate map as sorted "key = value" lines.
func (t *Table) AggregateLines() []string {
	if len(t.Aggregates) == 0 {
		return nil
	}
	keys := make([]string, 0, len(t.Aggregates))
	for k := range t.Aggregates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+" = "+strconv.FormatFloat(t.Aggregates[k], 'f', -1, 64))
	}
	return lines
}

// FormatValue normalizes a raw cell value: NULL renders empty, floats render
// without scientific notation, timestamps render in their canonical form.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", val)
	}
}
