package report

import (
	"strings"
	"testing"

	"travel-insight/config"
)

func testSchema() config.ReportSchema {
	return config.ReportSchema{
		Table:          "bookings",
		Alias:          "b",
		PrimaryKey:     "id",
		DateColumn:     "travelDate",
		AgentColumn:    "agentId",
		CustomerColumn: "customerId",
		Columns: map[string]config.ReportColumn{
			"id":           {SQL: "id", Type: "number"},
			"status":       {SQL: "status", Type: "string"},
			"totalAmount":  {SQL: "total_amount", Type: "number"},
			"travelDate":   {SQL: "travel_date", Type: "date"},
			"agentId":      {SQL: "agent_id"},
			"customerId":   {SQL: "customer_id"},
			"internalCost": {SQL: "internal_cost", Type: "number", Reserved: true},
			"customerName": {SQL: "c.name", Type: "string"},
		},
		Joins: []config.JoinSpec{
			{Table: "customers", Alias: "c", On: "c.id = b.customer_id"},
		},
	}
}

func TestValidateAcceptsKnownVocabulary(t *testing.T) {
	cfg := QueryConfig{
		ReportType: "booking",
		Columns:    []string{"id", "status", "SUM(totalAmount)"},
		Filters: map[string]any{
			"status":         "CONFIRMED",
			"travelDateFrom": "2026-01-01 00:00:00.000",
			"travelDateTo":   "2026-01-31 23:59:59.999",
		},
		GroupBy:    []string{"status"},
		Aggregates: map[string]string{"totalAmount": "SUM"},
		OrderBy:    []OrderBy{{Column: "totalAmount_sum", Desc: true}},
		Limit:      50,
	}
	if err := Validate(testSchema(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnknownColumn(t *testing.T) {
	cases := []QueryConfig{
		{ReportType: "booking", Columns: []string{"passwordHash"}},
		{ReportType: "booking", Columns: []string{"SUM(secretCol)"}},
		{ReportType: "booking", Filters: map[string]any{"nope": "x"}},
		{ReportType: "booking", GroupBy: []string{"nope"}},
		{ReportType: "booking", Aggregates: map[string]string{"nope": "SUM"}},
		{ReportType: "booking", Aggregates: map[string]string{"totalAmount": "MEDIAN"}},
		{ReportType: "booking", OrderBy: []OrderBy{{Column: "nope"}}},
	}
	for i, cfg := range cases {
		if err := Validate(testSchema(), cfg); err == nil {
			t.Errorf("case %d: expected validation error, got nil", i)
		} else if KindOf(err) != KindValidation {
			t.Errorf("case %d: kind = %v, want validation", i, KindOf(err))
		}
	}
}

// An order-by alias is only usable when the select columns carry the matching
// aggregate expression; an entry in Aggregates alone feeds the separate
// aggregate statement and leaves the alias undefined in the main one.
func TestValidateOrderByAliasNeedsAggregateColumn(t *testing.T) {
	cfg := QueryConfig{
		ReportType: "booking",
		Aggregates: map[string]string{"totalAmount": "SUM"},
		OrderBy:    []OrderBy{{Column: "totalAmount_sum", Desc: true}},
	}
	err := Validate(testSchema(), cfg)
	if err == nil {
		t.Fatal("order-by alias without the aggregate in columns must not validate")
	}
	if KindOf(err) != KindValidation {
		t.Fatalf("kind = %v, want validation", KindOf(err))
	}
	if !strings.Contains(err.Error(), "SUM(totalAmount)") {
		t.Errorf("err = %q, want a hint naming the missing aggregate expression", err)
	}

	cfg.Columns = []string{"status", "SUM(totalAmount)"}
	cfg.GroupBy = []string{"status"}
	if err := Validate(testSchema(), cfg); err != nil {
		t.Errorf("alias backed by a select aggregate should validate, got %v", err)
	}
}

func TestValidateRejectsInjectionShapedInput(t *testing.T) {
	cfg := QueryConfig{
		ReportType: "booking",
		Columns:    []string{"status; DROP TABLE bookings--"},
	}
	if err := Validate(testSchema(), cfg); err == nil {
		t.Fatal("structural SQL in a column name must not validate")
	}
}

func TestValidateFilterValueLimits(t *testing.T) {
	long := strings.Repeat("x", maxFilterValueLen+1)
	cfg := QueryConfig{ReportType: "booking", Filters: map[string]any{"status": long}}
	if err := Validate(testSchema(), cfg); err == nil {
		t.Error("overlong filter value must not validate")
	}

	cfg = QueryConfig{ReportType: "booking", Filters: map[string]any{"status": []string{"OK", long}}}
	if err := Validate(testSchema(), cfg); err == nil {
		t.Error("overlong slice element must not validate")
	}

	cfg = QueryConfig{ReportType: "booking", Filters: map[string]any{"status": nil}}
	if err := Validate(testSchema(), cfg); err == nil {
		t.Error("nil filter value must not validate")
	}

	cfg = QueryConfig{ReportType: "booking", Filters: map[string]any{"status": map[string]any{"a": 1}}}
	if err := Validate(testSchema(), cfg); err == nil {
		t.Error("nested filter value must not validate")
	}
}

func TestValidateNegativeBounds(t *testing.T) {
	if err := Validate(testSchema(), QueryConfig{ReportType: "booking", Limit: -1}); err == nil {
		t.Error("negative limit must not validate")
	}
	if err := Validate(testSchema(), QueryConfig{ReportType: "booking", Offset: -5}); err == nil {
		t.Error("negative offset must not validate")
	}
}

func TestCheckReserved(t *testing.T) {
	schema := testSchema()
	cases := []QueryConfig{
		{Columns: []string{"internalCost"}},
		{Columns: []string{"SUM(internalCost)"}},
		{GroupBy: []string{"internalCost"}},
		{Filters: map[string]any{"internalCost": 10}},
		{Aggregates: map[string]string{"internalCost": "SUM"}},
	}
	for i, cfg := range cases {
		if err := CheckReserved(schema, cfg, false); err == nil {
			t.Errorf("case %d: reserved column must be rejected for restricted roles", i)
		}
		if err := CheckReserved(schema, cfg, true); err != nil {
			t.Errorf("case %d: privileged caller should pass, got %v", i, err)
		}
	}
}

func TestFilterColumnRangeSuffixes(t *testing.T) {
	schema := testSchema()
	for name, want := range map[string]string{
		"travelDate":     "travelDate",
		"travelDateFrom": "travelDate",
		"travelDateTo":   "travelDate",
		"status":         "status",
	} {
		got, ok := FilterColumn(schema, name)
		if !ok || got != want {
			t.Errorf("FilterColumn(%q) = %q, %v; want %q", name, got, ok, want)
		}
	}
	if _, ok := FilterColumn(schema, "bogusFrom"); ok {
		t.Error("suffix on an unknown base column must not resolve")
	}
}

func TestParseAggregateExpr(t *testing.T) {
	fn, col, ok := ParseAggregateExpr("SUM(totalAmount)")
	if !ok || fn != "SUM" || col != "totalAmount" {
		t.Errorf("got %q %q %v", fn, col, ok)
	}
	fn, _, ok = ParseAggregateExpr("avg( amount )")
	if !ok || fn != "AVG" {
		t.Errorf("lowercase func should parse, got %q %v", fn, ok)
	}
	for _, bad := range []string{"SUM(a,b)", "MEDIAN(x)", "SUM(tbl.col)", "totalAmount", "SUM()"} {
		if _, _, ok := ParseAggregateExpr(bad); ok {
			t.Errorf("%q should not parse as an aggregate", bad)
		}
	}
}

func TestAggregateKey(t *testing.T) {
	if got := AggregateKey("totalAmount", "SUM"); got != "totalAmount_sum" {
		t.Errorf("got %q", got)
	}
}
