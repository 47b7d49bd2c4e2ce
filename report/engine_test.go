package report

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"travel-insight/access"
	"travel-insight/cache"
	"travel-insight/config"
)

func testRegistry() *config.ReportsConfig {
	return &config.ReportsConfig{Reports: map[string]config.ReportSchema{
		"booking": testSchema(),
	}}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE bookings (
			id INTEGER PRIMARY KEY,
			status TEXT,
			total_amount REAL,
			travel_date TEXT,
			agent_id TEXT,
			customer_id TEXT,
			internal_cost REAL
		)`,
		`CREATE TABLE customers (id TEXT PRIMARY KEY, name TEXT)`,
		`INSERT INTO customers VALUES ('c1', 'Asha'), ('c2', 'Ravi')`,
		`INSERT INTO bookings VALUES
			(1, 'CONFIRMED', 1200, '2026-03-10 08:00:00', 'a1', 'c1', 900),
			(2, 'CONFIRMED', 800,  '2026-03-11 09:30:00', 'a1', 'c2', 600),
			(3, 'PENDING',   450,  '2026-03-12 10:00:00', 'a2', 'c1', 300),
			(4, 'CANCELLED', 300,  '2026-04-01 12:00:00', 'a2', 'c2', 200)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return db
}

type countingExecutor struct {
	inner Executor
	calls int
}

func (c *countingExecutor) Query(ctx context.Context, stmt string, args ...any) ([]string, []map[string]any, error) {
	c.calls++
	return c.inner.Query(ctx, stmt, args...)
}

func (c *countingExecutor) QueryRow(ctx context.Context, stmt string, args ...any) (map[string]any, error) {
	c.calls++
	return c.inner.QueryRow(ctx, stmt, args...)
}

func newTestEngine(t *testing.T, store cache.Store) (*Engine, *countingExecutor) {
	t.Helper()
	db := openTestDB(t)
	exec := &countingExecutor{inner: NewSQLExecutor(db, "sqlite3")}
	return NewEngine(testRegistry(), exec, store, time.Minute, nil, nil), exec
}

func TestEngineExecuteAdmin(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	admin := access.Caller{ID: "root", Role: access.RoleAdmin}

	res, err := engine.Execute(context.Background(), QueryConfig{
		ReportType: "booking",
		Columns:    []string{"id", "status", "totalAmount", "customerName"},
		Filters:    map[string]any{"status": "CONFIRMED"},
		Aggregates: map[string]string{"totalAmount": "SUM", "id": "COUNT"},
		OrderBy:    []OrderBy{{Column: "id"}},
	}, admin)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Meta.RowCount != 2 || len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", res.Meta.RowCount)
	}
	if res.Rows[0]["customerName"] != "Asha" {
		t.Errorf("join column = %v, want Asha", res.Rows[0]["customerName"])
	}
	if got := res.Aggregates["totalAmount_sum"]; got != 2000 {
		t.Errorf("totalAmount_sum = %v, want 2000", got)
	}
	if got := res.Aggregates["id_count"]; got != 2 {
		t.Errorf("id_count = %v, want 2", got)
	}
	if res.Meta.Cached {
		t.Error("first execution must not be marked cached")
	}
}

// An order-by over an aggregate alias must either run (alias defined in the
// select list) or be turned away up front with a validation error, never
// reach the datastore as an unresolvable column.
func TestEngineOrderByAggregateAlias(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	admin := access.Caller{ID: "root", Role: access.RoleAdmin}

	res, err := engine.Execute(context.Background(), QueryConfig{
		ReportType: "booking",
		Columns:    []string{"status", "SUM(totalAmount)"},
		GroupBy:    []string{"status"},
		OrderBy:    []OrderBy{{Column: "totalAmount_sum", Desc: true}},
	}, admin)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("rows = %d, want one per status", len(res.Rows))
	}
	if res.Rows[0]["status"] != "CONFIRMED" {
		t.Errorf("first row = %v, want the largest sum (CONFIRMED) first", res.Rows[0]["status"])
	}

	_, err = engine.Execute(context.Background(), QueryConfig{
		ReportType: "booking",
		Columns:    []string{"id", "status"},
		Aggregates: map[string]string{"totalAmount": "SUM"},
		OrderBy:    []OrderBy{{Column: "totalAmount_sum", Desc: true}},
	}, admin)
	if err == nil {
		t.Fatal("order-by alias without the select aggregate must be rejected")
	}
	if KindOf(err) != KindValidation {
		t.Errorf("kind = %v, want validation rather than an execution failure", KindOf(err))
	}
}

func TestEngineEmptySetFilterReturnsNoRows(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	res, err := engine.Execute(context.Background(), QueryConfig{
		ReportType: "booking",
		Columns:    []string{"id", "status"},
		Filters:    map[string]any{"status": []string{}},
	}, access.Caller{ID: "root", Role: access.RoleAdmin})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(res.Rows) != 0 {
		t.Errorf("rows = %d, want membership in the empty set to match nothing", len(res.Rows))
	}
}

func TestEngineCustomerSeesOnlyOwnRows(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	customer := access.Caller{ID: "c1", Role: access.RoleCustomer}

	res, err := engine.Execute(context.Background(), QueryConfig{
		ReportType: "booking",
		Columns:    []string{"id", "customerId"},
	}, customer)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want only c1's 2 bookings", len(res.Rows))
	}
	for _, row := range res.Rows {
		if row["customerId"] != "c1" {
			t.Errorf("leaked row for customer %v", row["customerId"])
		}
	}
}

func TestEngineCustomerScopingUnderVariedFilters(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	customer := access.Caller{ID: "c2", Role: access.RoleCustomer}

	filterSets := []map[string]any{
		nil,
		{"status": "CONFIRMED"},
		{"status": []string{"CONFIRMED", "PENDING", "CANCELLED"}},
		{"travelDateFrom": "2026-01-01 00:00:00", "travelDateTo": "2026-12-31 23:59:59"},
		{"status": "C*"},
		{"customerId": "c1"}, // trying to read someone else's rows
	}
	for i, filters := range filterSets {
		res, err := engine.Execute(context.Background(), QueryConfig{
			ReportType: "booking",
			Columns:    []string{"id", "customerId"},
			Filters:    filters,
		}, customer)
		if err != nil {
			t.Fatalf("set %d: execute: %v", i, err)
		}
		for _, row := range res.Rows {
			if row["customerId"] != "c2" {
				t.Errorf("set %d: row visible for %v, scoping bypassed", i, row["customerId"])
			}
		}
	}
}

func TestEngineAgentSeesAssignedOrOwned(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	agent := access.Caller{ID: "a1", Role: access.RoleAgent}

	res, err := engine.Execute(context.Background(), QueryConfig{
		ReportType: "booking",
		Columns:    []string{"id", "agentId"},
	}, agent)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want agent a1's 2 bookings", len(res.Rows))
	}
}

func TestEngineReservedColumnDenied(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	_, err := engine.Execute(context.Background(), QueryConfig{
		ReportType: "booking",
		Columns:    []string{"internalCost"},
	}, access.Caller{ID: "c1", Role: access.RoleCustomer})
	if err == nil {
		t.Fatal("reserved column must be rejected for a customer")
	}
	if KindOf(err) != KindValidation {
		t.Errorf("kind = %v, want validation", KindOf(err))
	}

	if _, err := engine.Execute(context.Background(), QueryConfig{
		ReportType: "booking",
		Columns:    []string{"internalCost"},
	}, access.Caller{ID: "root", Role: access.RoleAdmin}); err != nil {
		t.Errorf("admin should read reserved columns, got %v", err)
	}
}

func TestEngineUnknownReportType(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	_, err := engine.Execute(context.Background(), QueryConfig{ReportType: "payroll"},
		access.Caller{ID: "root", Role: access.RoleAdmin})
	if err == nil || KindOf(err) != KindValidation {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestEngineUnknownRoleDenied(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	_, err := engine.Execute(context.Background(), QueryConfig{
		ReportType: "booking",
		Columns:    []string{"id"},
	}, access.Caller{ID: "x", Role: "WIZARD"})
	if err == nil || KindOf(err) != KindAccessDenied {
		t.Errorf("err = %v, want access denied", err)
	}
}

func TestEngineCacheRoundTrip(t *testing.T) {
	engine, exec := newTestEngine(t, cache.NewMemoryStore())
	admin := access.Caller{ID: "root", Role: access.RoleAdmin}
	cfg := QueryConfig{
		ReportType: "booking",
		Columns:    []string{"id", "status"},
		Filters:    map[string]any{"status": "CONFIRMED"},
		Aggregates: map[string]string{"totalAmount": "SUM"},
	}

	first, err := engine.Execute(context.Background(), cfg, admin)
	if err != nil {
		t.Fatalf("first execute: %v", err)
	}
	callsAfterFirst := exec.calls
	if callsAfterFirst == 0 {
		t.Fatal("first execution should hit the database")
	}

	second, err := engine.Execute(context.Background(), cfg, admin)
	if err != nil {
		t.Fatalf("second execute: %v", err)
	}
	if exec.calls != callsAfterFirst {
		t.Errorf("cached execution still queried the database (%d -> %d calls)", callsAfterFirst, exec.calls)
	}
	if !second.Meta.Cached {
		t.Error("second result should be marked cached")
	}
	if first.Meta.RowCount != second.Meta.RowCount {
		t.Error("cached result diverged from fresh result")
	}
	if first.Aggregates["totalAmount_sum"] != second.Aggregates["totalAmount_sum"] {
		t.Error("cached aggregates diverged")
	}
}

func TestEngineInvalidateForcesRecompute(t *testing.T) {
	engine, exec := newTestEngine(t, cache.NewMemoryStore())
	admin := access.Caller{ID: "root", Role: access.RoleAdmin}
	cfg := QueryConfig{ReportType: "booking", Columns: []string{"id"}}

	if _, err := engine.Execute(context.Background(), cfg, admin); err != nil {
		t.Fatalf("execute: %v", err)
	}
	calls := exec.calls

	if err := engine.Invalidate(context.Background(), "booking"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := engine.Execute(context.Background(), cfg, admin); err != nil {
		t.Fatalf("execute after invalidate: %v", err)
	}
	if exec.calls == calls {
		t.Error("invalidation should force a database round trip")
	}
}

func TestEngineDifferentCallersDoNotShareCache(t *testing.T) {
	engine, _ := newTestEngine(t, cache.NewMemoryStore())
	cfg := QueryConfig{ReportType: "booking", Columns: []string{"id", "customerId"}}

	if _, err := engine.Execute(context.Background(), cfg, access.Caller{ID: "c1", Role: access.RoleCustomer}); err != nil {
		t.Fatalf("c1 execute: %v", err)
	}
	res, err := engine.Execute(context.Background(), cfg, access.Caller{ID: "c2", Role: access.RoleCustomer})
	if err != nil {
		t.Fatalf("c2 execute: %v", err)
	}
	if res.Meta.Cached {
		t.Fatal("c2 must not be served c1's cached rows")
	}
	for _, row := range res.Rows {
		if row["customerId"] != "c2" {
			t.Errorf("c2 received row for %v", row["customerId"])
		}
	}
}

func TestEngineExecutionErrorsAreOpaque(t *testing.T) {
	registry := testRegistry()
	schema := registry.Reports["booking"]
	schema.Table = "missing_table"
	registry.Reports["booking"] = schema

	db := openTestDB(t)
	engine := NewEngine(registry, NewSQLExecutor(db, "sqlite3"), nil, time.Minute, nil, nil)

	_, err := engine.Execute(context.Background(), QueryConfig{
		ReportType: "booking",
		Columns:    []string{"id"},
	}, access.Caller{ID: "root", Role: access.RoleAdmin})
	if err == nil {
		t.Fatal("querying a missing table should fail")
	}
	if KindOf(err) != KindExecution {
		t.Errorf("kind = %v, want execution", KindOf(err))
	}
	if msg := err.Error(); strings.Contains(msg, "missing_table") || strings.Contains(msg, "SELECT") {
		t.Errorf("error message leaks SQL internals: %q", msg)
	}
}
