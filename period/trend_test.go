package period

import (
	"context"
	"math"
	"testing"
	"time"

	"travel-insight/access"
	"travel-insight/report"
)

func trendStub(sums ...float64) *stubQuerier {
	results := make([]*report.QueryResult, len(sums))
	for i, s := range sums {
		results[i] = &report.QueryResult{
			Rows:       []map[string]any{},
			Aggregates: map[string]float64{"totalAmount_sum": s},
		}
	}
	return &stubQuerier{results: results}
}

func TestCompareDeltas(t *testing.T) {
	stub := trendStub(100, 150)
	gen := NewGenerator(periodRegistry(), stub, nil)
	caller := access.Caller{ID: "u", Role: access.RoleAdmin}
	ref := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	cmp, err := gen.Compare(context.Background(), Month, ref, Previous(Month, ref),
		report.QueryConfig{ReportType: "booking", Aggregates: map[string]string{"totalAmount": "SUM"}}, caller)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	d, ok := cmp.Deltas["totalAmount_sum"]
	if !ok {
		t.Fatalf("no delta for totalAmount_sum: %v", cmp.Deltas)
	}
	if d.From != 100 || d.To != 150 || d.Abs != 50 {
		t.Errorf("delta = %+v", d)
	}
	if math.Abs(d.Pct-50) > 1e-9 {
		t.Errorf("pct = %v, want 50", d.Pct)
	}
}

func TestPctChangeZeroBaseline(t *testing.T) {
	if got := pctChange(0, 0); got != 0 {
		t.Errorf("pctChange(0,0) = %v, want 0", got)
	}
	if got := pctChange(0, 42); got != 100 {
		t.Errorf("pctChange(0,42) = %v, want 100", got)
	}
	if got := pctChange(200, 100); got != -50 {
		t.Errorf("pctChange(200,100) = %v, want -50", got)
	}
}

func TestTrendDirection(t *testing.T) {
	caller := access.Caller{ID: "u", Role: access.RoleAdmin}
	ref := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	cfg := report.QueryConfig{ReportType: "booking", Aggregates: map[string]string{"totalAmount": "SUM"}}

	cases := []struct {
		sums      []float64
		direction string
	}{
		{[]float64{100, 120, 160}, "positive"},
		{[]float64{160, 120, 100}, "negative"},
		{[]float64{100, 98, 103}, "stable"}, // within the 5% threshold
	}
	for _, c := range cases {
		gen := NewGenerator(periodRegistry(), trendStub(c.sums...), nil)
		tr, err := gen.Trend(context.Background(), Month, ref, len(c.sums), cfg, caller, "totalAmount_sum")
		if err != nil {
			t.Fatalf("trend: %v", err)
		}
		if tr.Direction != c.direction {
			t.Errorf("sums %v: direction = %q, want %q", c.sums, tr.Direction, c.direction)
		}
		if len(tr.Buckets) != len(c.sums) {
			t.Errorf("buckets = %d, want %d", len(tr.Buckets), len(c.sums))
		}
	}
}

func TestTrendBucketsAreConsecutiveOldestFirst(t *testing.T) {
	gen := NewGenerator(periodRegistry(), trendStub(1, 2, 3), nil)
	ref := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tr, err := gen.Trend(context.Background(), Month, ref, 3,
		report.QueryConfig{ReportType: "booking"},
		access.Caller{ID: "u", Role: access.RoleAdmin}, "totalAmount_sum")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	wantStarts := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, b := range tr.Buckets {
		if !b.Start.Equal(wantStarts[i]) {
			t.Errorf("bucket %d starts %v, want %v", i, b.Start, wantStarts[i])
		}
	}
}

func TestTrendPeakAndLowest(t *testing.T) {
	gen := NewGenerator(periodRegistry(), trendStub(50, 200, 80), nil)
	ref := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tr, err := gen.Trend(context.Background(), Month, ref, 3,
		report.QueryConfig{ReportType: "booking"},
		access.Caller{ID: "u", Role: access.RoleAdmin}, "totalAmount_sum")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if tr.Peak != "2026-02-01" {
		t.Errorf("peak = %q, want 2026-02-01", tr.Peak)
	}
	if tr.Lowest != "2026-01-01" {
		t.Errorf("lowest = %q, want 2026-01-01", tr.Lowest)
	}
}

func TestTrendVolatility(t *testing.T) {
	gen := NewGenerator(periodRegistry(), trendStub(10, 10, 10), nil)
	ref := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tr, err := gen.Trend(context.Background(), Month, ref, 3,
		report.QueryConfig{ReportType: "booking"},
		access.Caller{ID: "u", Role: access.RoleAdmin}, "totalAmount_sum")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if tr.Volatility != 0 {
		t.Errorf("flat series volatility = %v, want 0", tr.Volatility)
	}

	// population stddev of {2, 4} is 1
	if got := stddev([]float64{2, 4}); math.Abs(got-1) > 1e-9 {
		t.Errorf("stddev = %v, want 1", got)
	}
}

func TestTrendRejectsTooFewPeriods(t *testing.T) {
	gen := NewGenerator(periodRegistry(), trendStub(1), nil)
	_, err := gen.Trend(context.Background(), Month, time.Now(), 1,
		report.QueryConfig{ReportType: "booking"},
		access.Caller{ID: "u", Role: access.RoleAdmin}, "totalAmount_sum")
	if err == nil || report.KindOf(err) != report.KindValidation {
		t.Errorf("err = %v, want validation error", err)
	}
}
