package api

import (
	"net/http"
	"sort"

	"travel-insight/access"
)

// SchemaHandler returns the report vocabulary: every report type with the
// logical columns the caller's role is allowed to see. Reserved columns stay
// hidden for non-privileged roles.
func SchemaHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requireCaller(w, r, h)
		if !ok {
			return
		}
		h.AccessLog.WithField("user", caller.ID).Info("schema requested")
		privileged := access.Privileged(caller.Role)

		type colObj struct {
			Name string `json:"name"`
			Type string `json:"type,omitempty"`
		}
		type reportObj struct {
			Columns    []colObj `json:"columns"`
			DateColumn string   `json:"dateColumn,omitempty"`
		}
		schema := map[string]reportObj{}

		for _, name := range h.Registry.Types() {
			rs, _ := h.Registry.Schema(name)
			var cols []colObj
			colNames := rs.ColumnNames()
			sort.Strings(colNames)
			for _, cn := range colNames {
				col := rs.Columns[cn]
				if col.Reserved && !privileged {
					continue
				}
				cols = append(cols, colObj{Name: cn, Type: col.Type})
			}
			schema[name] = reportObj{Columns: cols, DateColumn: rs.DateColumn}
		}
		writeJSON(w, schema)
	}
}
