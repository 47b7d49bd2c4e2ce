package period

import (
	"context"
	"math"
	"time"

	"travel-insight/access"
	"travel-insight/report"
)

// growthThreshold is the percentage beyond which a trend counts as moving
// rather than stable.
const growthThreshold = 5.0

// Delta is the change of one aggregate between two buckets.
type Delta struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
	Abs  float64 `json:"abs"`
	Pct  float64 `json:"pct"`
}

// Comparison holds two independently generated buckets and per-aggregate
// changes from Base to Other.
type Comparison struct {
	Base   *Bucket          `json:"base"`
	Other  *Bucket          `json:"other"`
	Deltas map[string]Delta `json:"deltas"`
}

// Compare runs two bucket generations and computes absolute and percentage
// change for every aggregate key present in either result.
func (g *Generator) Compare(ctx context.Context, kind Kind, baseRef, otherRef time.Time, cfg report.QueryConfig, caller access.Caller) (*Comparison, error) {
	base, err := g.Generate(ctx, kind, baseRef, cfg, caller)
	if err != nil {
		return nil, err
	}
	other, err := g.Generate(ctx, kind, otherRef, cfg, caller)
	if err != nil {
		return nil, err
	}

	keys := map[string]bool{}
	for k := range base.Result.Aggregates {
		keys[k] = true
	}
	for k := range other.Result.Aggregates {
		keys[k] = true
	}

	deltas := make(map[string]Delta, len(keys))
	for k := range keys {
		from := base.Result.Aggregates[k]
		to := other.Result.Aggregates[k]
		deltas[k] = Delta{From: from, To: to, Abs: to - from, Pct: pctChange(from, to)}
	}
	return &Comparison{Base: base, Other: other, Deltas: deltas}, nil
}

// TrendReport summarizes N consecutive buckets walking backward from a
// reference date.
type TrendReport struct {
	Kind       Kind      `json:"kind"`
	Primary    string    `json:"primary"`
	Buckets    []*Bucket `json:"buckets"`
	Direction  string    `json:"direction"` // "positive", "negative" or "stable"
	GrowthPct  float64   `json:"growth_pct"`
	Volatility float64   `json:"volatility"`
	Peak       string    `json:"peak"`
	Lowest     string    `json:"lowest"`
}

// Trend generates n buckets ending at ref (oldest first) and derives overall
// direction, volatility (standard deviation of the primary aggregate) and the
// peak/lowest buckets by that same aggregate.
func (g *Generator) Trend(ctx context.Context, kind Kind, ref time.Time, n int, cfg report.QueryConfig, caller access.Caller, primary string) (*TrendReport, error) {
	if n < 2 {
		return nil, report.Validationf("trend needs at least 2 periods")
	}

	refs := make([]time.Time, n)
	refs[n-1] = ref
	for i := n - 2; i >= 0; i-- {
		refs[i] = Previous(kind, refs[i+1])
	}

	buckets := make([]*Bucket, 0, n)
	for _, r := range refs {
		b, err := g.Generate(ctx, kind, r, cfg, caller)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}

	values := make([]float64, len(buckets))
	for i, b := range buckets {
		values[i] = b.Result.Aggregates[primary]
	}

	growth := pctChange(values[0], values[len(values)-1])
	direction := "stable"
	if growth > growthThreshold {
		direction = "positive"
	} else if growth < -growthThreshold {
		direction = "negative"
	}

	peakIdx, lowIdx := 0, 0
	for i, v := range values {
		if v > values[peakIdx] {
			peakIdx = i
		}
		if v < values[lowIdx] {
			lowIdx = i
		}
	}

	return &TrendReport{
		Kind:       kind,
		Primary:    primary,
		Buckets:    buckets,
		Direction:  direction,
		GrowthPct:  growth,
		Volatility: stddev(values),
		Peak:       bucketLabel(buckets[peakIdx]),
		Lowest:     bucketLabel(buckets[lowIdx]),
	}, nil
}

// pctChange treats a zero baseline as 0% when nothing changed and 100% when
// anything appeared, avoiding a division fault.
func pctChange(from, to float64) float64 {
	if from == 0 {
		if to == 0 {
			return 0
		}
		return 100
	}
	return (to - from) / from * 100
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func bucketLabel(b *Bucket) string {
	return b.Start.Format("2006-01-02")
}
