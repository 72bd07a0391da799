package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/metric"
	"github.com/roach88/cfrstat/internal/querysql"
)

// Default batch sizes for ingestion and metric computation.
const (
	DefaultIngestBatchSize  = 1000
	DefaultComputeBatchSize = 10000
)

// Store is the storage contract the engine consumes. *store.Store
// implements it.
type Store interface {
	SectionIDs(ctx context.Context, title int, date time.Time) (map[string]struct{}, error)
	InsertSections(ctx context.Context, texts []cfr.Section, dims []cfr.Dimension) error
	ClearTitleDate(ctx context.Context, title int, date time.Time) (int, error)

	IssueDates(ctx context.Context, title int, start, end time.Time) ([]time.Time, error)
	ReadSections(ctx context.Context, title int, date time.Time) ([]cfr.Section, error)
	MetricKeys(ctx context.Context, title int, date time.Time) (map[cfr.MetricKey]struct{}, error)
	InsertMetrics(ctx context.Context, records []cfr.MetricRecord) error

	AgencySlugsByChapter(ctx context.Context, title int) (map[string]string, error)
	AgencySlugsByShortName(ctx context.Context) (map[string]string, error)
	Rollup(ctx context.Context, q querysql.RollupQuery) ([]cfr.RollupRow, error)

	WriteRun(ctx context.Context, run cfr.Run) error
}

// Engine runs ingestion, metric computation and roll-ups against a Store.
//
// The store handle is passed in explicitly; there is no package-level
// connection. An Engine holds no per-run state and may be shared, but callers
// must not run two writes for the same (title, date) at once.
type Engine struct {
	store   Store
	catalog *metric.Catalog
	logger  *zap.Logger
	runIDs  RunIDGenerator
	now     func() time.Time

	ingestBatchSize  int
	computeBatchSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCatalog sets the metric catalog. Default: metric.Default().
func WithCatalog(c *metric.Catalog) Option {
	return func(e *Engine) {
		if c != nil {
			e.catalog = c
		}
	}
}

// WithBatchSizes sets the ingestion and computation flush sizes.
// Non-positive values keep the defaults.
func WithBatchSizes(ingest, compute int) Option {
	return func(e *Engine) {
		if ingest > 0 {
			e.ingestBatchSize = ingest
		}
		if compute > 0 {
			e.computeBatchSize = compute
		}
	}
}

// WithRunIDs sets the run id generator. Default: UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.runIDs = g
		}
	}
}

// WithNow sets the wall clock used for run timestamps.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine over s.
func New(s Store, opts ...Option) *Engine {
	e := &Engine{
		store:            s,
		catalog:          metric.Default(),
		logger:           zap.NewNop(),
		runIDs:           UUIDv7Generator{},
		now:              time.Now,
		ingestBatchSize:  DefaultIngestBatchSize,
		computeBatchSize: DefaultComputeBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the engine's metric catalog.
func (e *Engine) Catalog() *metric.Catalog {
	return e.catalog
}

// recordRun persists run history. Failure to record is logged, not returned:
// the work itself has already been committed.
func (e *Engine) recordRun(ctx context.Context, run cfr.Run) string {
	run.ID = e.runIDs.Generate()
	run.FinishedAt = e.now().UTC()
	if err := e.store.WriteRun(ctx, run); err != nil {
		e.logger.Warn("failed to record run",
			zap.String("run_id", run.ID),
			zap.String("kind", string(run.Kind)),
			zap.Error(err))
	}
	return run.ID
}
