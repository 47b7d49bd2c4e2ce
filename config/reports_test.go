package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleReports = `
reports:
  booking:
    table: bookings
    alias: b
    primary_key: id
    date_column: travelDate
    agent_column: agentId
    customer_column: customerId
    columns:
      id:
        sql: id
      travelDate:
        sql: travel_date
        type: date
      totalAmount:
        sql: total_amount
        type: number
      agentId:
        sql: agent_id
      customerId:
        sql: customer_id
      internalCost:
        sql: internal_cost
        type: number
        reserved: true
      customerName:
        sql: c.name
    joins:
      - table: customers
        alias: c
        on: b.customer_id = c.id
    derived:
      avgTicket:
        formula: totalAmount_sum / id_count
  journal:
    table: journal_entries
    alias: j
    columns:
      id:
        sql: id
`

func writeReports(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "reports.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRAVEL_INSIGHT_ROOT", dir)
}

func TestLoadReportsConfig(t *testing.T) {
	writeReports(t, sampleReports)
	cfg, err := LoadReportsConfig("reports.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rs, ok := cfg.Schema("booking")
	if !ok {
		t.Fatal("booking schema missing")
	}
	if rs.Table != "bookings" || rs.Alias != "b" || rs.DateColumn != "travelDate" {
		t.Errorf("schema = %+v", rs)
	}
	if !rs.Columns["internalCost"].Reserved {
		t.Error("internalCost should be reserved")
	}
	if len(rs.Joins) != 1 || rs.Joins[0].Alias != "c" {
		t.Errorf("joins = %+v", rs.Joins)
	}
	if rs.Derived["avgTicket"].Formula == "" {
		t.Error("derived metric missing")
	}

	if _, ok := cfg.Schema("payroll"); ok {
		t.Error("unknown report type should not resolve")
	}
	if got := cfg.Types(); len(got) != 2 || got[0] != "booking" || got[1] != "journal" {
		t.Errorf("Types() = %v, want sorted names", got)
	}
}

func TestLoadReportsConfigRejectsBrokenSchemas(t *testing.T) {
	cases := map[string]string{
		"missing table": `
reports:
  booking:
    alias: b
    columns:
      id: {sql: id}
`,
		"missing alias": `
reports:
  booking:
    table: bookings
    columns:
      id: {sql: id}
`,
		"undeclared date_column": `
reports:
  booking:
    table: bookings
    alias: b
    date_column: travelDate
    columns:
      id: {sql: id}
`,
		"undeclared agent_column": `
reports:
  booking:
    table: bookings
    alias: b
    agent_column: agentId
    columns:
      id: {sql: id}
`,
		"incomplete join": `
reports:
  booking:
    table: bookings
    alias: b
    columns:
      id: {sql: id}
    joins:
      - table: customers
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			writeReports(t, content)
			if _, err := LoadReportsConfig("reports.yaml"); err == nil {
				t.Error("broken schema should fail to load")
			}
		})
	}
}

func TestColumnSQL(t *testing.T) {
	rs := ReportSchema{
		Alias: "b",
		Columns: map[string]ReportColumn{
			"id":           {SQL: "id"},
			"status":       {},
			"customerName": {SQL: "c.name"},
		},
	}

	if got, _ := rs.ColumnSQL("id"); got != "b.id" {
		t.Errorf("id = %q, want alias-qualified", got)
	}
	// empty sql falls back to the logical name
	if got, _ := rs.ColumnSQL("status"); got != "b.status" {
		t.Errorf("status = %q", got)
	}
	// dot-qualified columns already name a join alias
	if got, _ := rs.ColumnSQL("customerName"); got != "c.name" {
		t.Errorf("customerName = %q, want pass-through", got)
	}
	if _, ok := rs.ColumnSQL("nope"); ok {
		t.Error("unknown column should not resolve")
	}
}

func TestColumnNamesSorted(t *testing.T) {
	rs := ReportSchema{Columns: map[string]ReportColumn{
		"zeta": {}, "alpha": {}, "mid": {},
	}}
	got := rs.ColumnNames()
	if strings.Join(got, ",") != "alpha,mid,zeta" {
		t.Errorf("ColumnNames() = %v", got)
	}
}
