package report

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"travel-insight/access"
	"travel-insight/audit"
	"travel-insight/cache"
	"travel-insight/config"
)

// DefaultTTL bounds result staleness when the config does not override it.
const DefaultTTL = 10 * time.Minute

// Engine turns a declarative report request into a safely parameterized query,
// enforces role-based row visibility, computes aggregates and caches results.
type Engine struct {
	Registry *config.ReportsConfig
	Exec     Executor
	Cache    cache.Store
	Flights  *cache.Flights
	TTL      time.Duration
	Audit    *audit.Recorder
	Log      *logrus.Logger
}

func NewEngine(registry *config.ReportsConfig, exec Executor, store cache.Store, ttl time.Duration, recorder *audit.Recorder, log *logrus.Logger) *Engine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		Registry: registry,
		Exec:     exec,
		Cache:    store,
		Flights:  cache.NewFlights(),
		TTL:      ttl,
		Audit:    recorder,
		Log:      log,
	}
}

// Execute validates the request, attaches the caller's role predicate, and
// serves the result from cache or a fresh query pair (main + aggregate).
// Exactly one audit record is emitted whether the call succeeds or fails.
func (e *Engine) Execute(ctx context.Context, cfg QueryConfig, caller access.Caller) (*QueryResult, error) {
	res, err := e.execute(ctx, cfg, caller)
	e.recordAudit(cfg, caller, res, err)
	return res, err
}

func (e *Engine) execute(ctx context.Context, cfg QueryConfig, caller access.Caller) (*QueryResult, error) {
	schema, ok := e.Registry.Schema(cfg.ReportType)
	if !ok {
		return nil, Validationf("unknown report type %q", cfg.ReportType)
	}
	if err := Validate(schema, cfg); err != nil {
		return nil, err
	}
	if err := CheckReserved(schema, cfg, access.Privileged(caller.Role)); err != nil {
		return nil, err
	}

	pred, err := access.PredicateFor(caller, schema)
	if err != nil {
		if errors.Is(err, access.ErrDenied) {
			return nil, AccessDenied(err)
		}
		return nil, ExecutionFailure(err)
	}

	key := CacheKey(cfg, caller.ID, caller.Role)
	payload, hit, err := e.Flights.GetOrCompute(ctx, e.Cache, key, e.TTL, func(ctx context.Context) ([]byte, error) {
		res, err := e.run(ctx, schema, cfg, pred)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	})
	if err != nil {
		var re *Error
		if errors.As(err, &re) {
			return nil, re
		}
		return nil, ExecutionFailure(err)
	}

	var res QueryResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, ExecutionFailure(err)
	}
	res.Meta.Cached = hit
	if hit {
		e.Log.WithFields(logrus.Fields{"report": cfg.ReportType, "key": key}).Debug("report served from cache")
	}
	return &res, nil
}

// run executes the main and aggregate statements against the datastore.
func (e *Engine) run(ctx context.Context, schema config.ReportSchema, cfg QueryConfig, pred *access.Predicate) (*QueryResult, error) {
	stmt, args, err := Build(schema, cfg, pred)
	if err != nil {
		return nil, err
	}
	cols, rows, err := e.Exec.Query(ctx, stmt, args...)
	if err != nil {
		e.Log.WithError(err).WithField("report", cfg.ReportType).Error("report query failed")
		return nil, ExecutionFailure(err)
	}

	aggs, err := computeAggregates(ctx, e.Exec, schema, cfg, pred)
	if err != nil {
		e.Log.WithError(err).WithField("report", cfg.ReportType).Error("aggregate query failed")
		return nil, ExecutionFailure(err)
	}

	limit := cfg.Limit
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return &QueryResult{
		Columns: cols,
		Rows:    rows,
		Meta: ResultMeta{
			ReportType:  cfg.ReportType,
			RowCount:    len(rows),
			Limit:       limit,
			Offset:      cfg.Offset,
			GeneratedAt: time.Now().UTC(),
		},
		Aggregates: aggs,
	}, nil
}

// Invalidate drops every cached entry for one report type.
func (e *Engine) Invalidate(ctx context.Context, reportType string) error {
	if e.Cache == nil {
		return nil
	}
	return e.Cache.InvalidateType(ctx, reportType)
}

// InvalidateAll clears the whole cache.
func (e *Engine) InvalidateAll(ctx context.Context) error {
	if e.Cache == nil {
		return nil
	}
	return e.Cache.InvalidateAll(ctx)
}

func (e *Engine) recordAudit(cfg QueryConfig, caller access.Caller, res *QueryResult, err error) {
	if e.Audit == nil {
		return
	}
	rec := audit.Record{
		Category:    audit.CategoryGeneration,
		Actor:       caller.ID,
		Description: "report query: " + cfg.ReportType,
		Status:      audit.StatusSuccess,
		Details: audit.Redact(map[string]any{
			"report_type": cfg.ReportType,
			"filters":     cfg.Filters,
			"columns":     cfg.Columns,
			"group_by":    cfg.GroupBy,
		}),
	}
	if err != nil {
		rec.Category = audit.CategoryError
		rec.Status = audit.StatusError
		var re *Error
		if errors.As(err, &re) {
			rec.Details["error"] = re.Detail()
		} else {
			rec.Details["error"] = err.Error()
		}
	} else if res != nil {
		rec.Details["rows"] = res.Meta.RowCount
		rec.Details["cached"] = res.Meta.Cached
	}
	e.Audit.Record(rec)
}
