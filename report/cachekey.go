package report

import (
	"encoding/json"
	"sort"
	"time"

	"travel-insight/cache"
)

// CacheKey derives the deterministic cache key for a request. The config is
// normalized first — sorted column and group-by copies, canonical date
// strings — so semantically identical requests share an entry while any
// material change (a filter value, a column, a grouping) produces a new key.
// The caller id participates because role scoping changes the visible rows.
func CacheKey(cfg QueryConfig, callerID, role string) string {
	normalized := struct {
		Columns    []string          `json:"c,omitempty"`
		Filters    map[string]any    `json:"f,omitempty"`
		GroupBy    []string          `json:"g,omitempty"`
		Aggregates map[string]string `json:"a,omitempty"`
		OrderBy    []OrderBy         `json:"o,omitempty"`
		Limit      int               `json:"l"`
		Offset     int               `json:"s"`
		Caller     string            `json:"u"`
		Role       string            `json:"r"`
	}{
		Columns:    sortedCopy(cfg.Columns),
		Filters:    canonicalFilters(cfg.Filters),
		GroupBy:    sortedCopy(cfg.GroupBy),
		Aggregates: cfg.Aggregates,
		OrderBy:    cfg.OrderBy,
		Limit:      cfg.Limit,
		Offset:     cfg.Offset,
		Caller:     callerID,
		Role:       role,
	}
	// Map keys marshal in sorted order, so the payload is deterministic.
	payload, _ := json.Marshal(normalized)
	return cache.KeyFor(cfg.ReportType, payload)
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func canonicalFilters(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if t, ok := v.(time.Time); ok {
			out[k] = t.UTC().Format(time.RFC3339Nano)
			continue
		}
		out[k] = v
	}
	return out
}
