package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"travel-insight/utils"

	"gopkg.in/yaml.v3"
)

// ReportsConfig is the table registry: one entry per report type, loaded once
// from reports.yaml at startup and read-only afterwards.
type ReportsConfig struct {
	Reports map[string]ReportSchema `yaml:"reports"`
}

// ReportSchema binds a report type to its source table and the closed column
// vocabulary the query builder is allowed to emit.
type ReportSchema struct {
	Table          string                   `yaml:"table"`
	Alias          string                   `yaml:"alias"`
	PrimaryKey     string                   `yaml:"primary_key"`
	DateColumn     string                   `yaml:"date_column,omitempty"`
	AgentColumn    string                   `yaml:"agent_column,omitempty"`
	CustomerColumn string                   `yaml:"customer_column,omitempty"`
	Columns        map[string]ReportColumn  `yaml:"columns"`
	Joins          []JoinSpec               `yaml:"joins,omitempty"`
	Derived        map[string]DerivedMetric `yaml:"derived,omitempty"`
}

type ReportColumn struct {
	SQL      string `yaml:"sql"`
	Type     string `yaml:"type,omitempty"` // "string", "number" or "date"
	Reserved bool   `yaml:"reserved"`
}

// JoinSpec describes an auxiliary table attached to the root table. Joins are
// emitted as outer joins so absent related rows never drop the primary row.
type JoinSpec struct {
	Table string `yaml:"table"`
	Alias string `yaml:"alias"`
	Kind  string `yaml:"kind,omitempty"`
	On    string `yaml:"on"`
}

// DerivedMetric is an arithmetic formula over aggregate keys, computed after
// the aggregate statement has run (e.g. "amount_sum / id_count").
type DerivedMetric struct {
	Formula string `yaml:"formula"`
}

func LoadReportsConfig(file string) (*ReportsConfig, error) {
	var cfg ReportsConfig
	root := utils.GetProjectRoot()
	cfgPath := filepath.Join(root, file)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	for name, rs := range cfg.Reports {
		if err := rs.check(); err != nil {
			return nil, fmt.Errorf("reports.yaml: %s: %w", name, err)
		}
	}
	return &cfg, nil
}

// Schema looks a report type up in the registry.
func (rc *ReportsConfig) Schema(reportType string) (ReportSchema, bool) {
	rs, ok := rc.Reports[reportType]
	return rs, ok
}

// Types returns all registered report type names, sorted.
func (rc *ReportsConfig) Types() []string {
	names := make([]string, 0, len(rc.Reports))
	for name := range rc.Reports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ColumnSQL resolves a logical column to its qualified physical form. Columns
// declared with a dot already name a join alias and pass through unchanged.
func (rs ReportSchema) ColumnSQL(logical string) (string, bool) {
	col, ok := rs.Columns[logical]
	if !ok {
		return "", false
	}
	phys := col.SQL
	if phys == "" {
		phys = logical
	}
	if strings.Contains(phys, ".") {
		return phys, true
	}
	return rs.Alias + "." + phys, true
}

// HasColumn reports whether the logical column belongs to this report type.
func (rs ReportSchema) HasColumn(logical string) bool {
	_, ok := rs.Columns[logical]
	return ok
}

// ColumnNames returns the logical vocabulary, sorted.
func (rs ReportSchema) ColumnNames() []string {
	names := make([]string, 0, len(rs.Columns))
	for name := range rs.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (rs ReportSchema) check() error {
	if rs.Table == "" {
		return fmt.Errorf("missing table")
	}
	if rs.Alias == "" {
		return fmt.Errorf("missing alias")
	}
	if rs.PrimaryKey != "" && !rs.HasColumn(rs.PrimaryKey) {
		return fmt.Errorf("primary_key %q is not a declared column", rs.PrimaryKey)
	}
	if rs.DateColumn != "" && !rs.HasColumn(rs.DateColumn) {
		return fmt.Errorf("date_column %q is not a declared column", rs.DateColumn)
	}
	if rs.AgentColumn != "" && !rs.HasColumn(rs.AgentColumn) {
		return fmt.Errorf("agent_column %q is not a declared column", rs.AgentColumn)
	}
	if rs.CustomerColumn != "" && !rs.HasColumn(rs.CustomerColumn) {
		return fmt.Errorf("customer_column %q is not a declared column", rs.CustomerColumn)
	}
	for _, j := range rs.Joins {
		if j.Table == "" || j.Alias == "" || j.On == "" {
			return fmt.Errorf("join on %q needs table, alias and on", j.Table)
		}
	}
	return nil
}
