package report

import "time"

// QueryConfig is a declarative report request. It is treated as an immutable
// value: generators needing a variant clone it instead of mutating a shared
// instance.
type QueryConfig struct {
	ReportType string            `json:"report_type"`
	Columns    []string          `json:"columns,omitempty"`
	Filters    map[string]any    `json:"filters,omitempty"`
	GroupBy    []string          `json:"group_by,omitempty"`
	Aggregates map[string]string `json:"aggregates,omitempty"` // column -> SUM|COUNT|AVG|MIN|MAX
	OrderBy    []OrderBy         `json:"order_by,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Offset     int               `json:"offset,omitempty"`
}

type OrderBy struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// Clone returns a deep copy safe to extend with additional filters.
func (c QueryConfig) Clone() QueryConfig {
	out := c
	if c.Columns != nil {
		out.Columns = append([]string(nil), c.Columns...)
	}
	if c.GroupBy != nil {
		out.GroupBy = append([]string(nil), c.GroupBy...)
	}
	if c.OrderBy != nil {
		out.OrderBy = append([]OrderBy(nil), c.OrderBy...)
	}
	if c.Filters != nil {
		out.Filters = make(map[string]any, len(c.Filters))
		for k, v := range c.Filters {
			out.Filters[k] = v
		}
	}
	if c.Aggregates != nil {
		out.Aggregates = make(map[string]string, len(c.Aggregates))
		for k, v := range c.Aggregates {
			out.Aggregates[k] = v
		}
	}
	return out
}

// WithFilter returns a copy carrying one extra filter.
func (c QueryConfig) WithFilter(name string, value any) QueryConfig {
	out := c.Clone()
	if out.Filters == nil {
		out.Filters = map[string]any{}
	}
	out.Filters[name] = value
	return out
}

// QueryResult is the engine output: ordered rows plus metadata and the
// optional aggregate map. Immutable once returned.
type QueryResult struct {
	Columns    []string           `json:"columns"`
	Rows       []map[string]any   `json:"rows"`
	Meta       ResultMeta         `json:"meta"`
	Aggregates map[string]float64 `json:"aggregates,omitempty"`
}

type ResultMeta struct {
	ReportType  string    `json:"report_type"`
	RowCount    int       `json:"row_count"`
	Limit       int       `json:"limit"`
	Offset      int       `json:"offset"`
	Cached      bool      `json:"cached,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}
