package harness

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/document"
	"github.com/roach88/cfrstat/internal/engine"
	"github.com/roach88/cfrstat/internal/store"
	"github.com/roach88/cfrstat/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and run ids.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	scenario *Scenario
	docs     map[string]*document.Node
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
//  1. Create fresh in-memory database
//  2. Load agencies and parse documents
//  3. Execute flow steps with expect validation
//  4. Evaluate final-state assertions
//
// An error is returned only when the scenario cannot be executed at all;
// failed expectations are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, zap.NewNop())
}

// RunWithLogger is Run with engine logging sent to logger.
func RunWithLogger(scenario *Scenario, logger *zap.Logger) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewDeterministicClock(testutil.DefaultEpoch)
	eng := engine.New(st,
		engine.WithLogger(logger),
		engine.WithRunIDs(testutil.NewSequentialRunIDs("run")),
		engine.WithNow(clock.Now),
	)

	h := &Harness{
		store:    st,
		engine:   eng,
		scenario: scenario,
		docs:     make(map[string]*document.Node, len(scenario.Documents)),
	}

	ctx := context.Background()
	if err := h.setup(ctx); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute flow: %w", err)
		}
	}

	counts, err := st.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	result.Counts = counts

	actx := &AssertionContext{Store: st, Ctx: ctx, Catalog: eng.Catalog(), Counts: counts}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// setup loads agencies and parses every document.
func (h *Harness) setup(ctx context.Context) error {
	if len(h.scenario.Agencies) > 0 {
		agencies := make([]cfr.Agency, len(h.scenario.Agencies))
		for i, a := range h.scenario.Agencies {
			agencies[i] = a.Agency()
		}
		if _, err := h.store.ReplaceAgencies(ctx, agencies); err != nil {
			return fmt.Errorf("load agencies: %w", err)
		}
	}

	for name, xml := range h.scenario.Documents {
		root, err := document.ParseString(xml)
		if err != nil {
			// Malformed documents are kept as nil so a flow step can
			// expect MALFORMED_DOCUMENT.
			h.docs[name] = nil
			continue
		}
		h.docs[name] = root
	}
	return nil
}

// executeStep runs one flow step, records it in the trace and checks its
// expect clause. Input errors are outcomes; any other error aborts the run.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	var (
		trace StepTrace
		err   error
	)

	switch {
	case step.Ingest != nil:
		trace, err = h.ingest(ctx, step.Ingest)
	case step.Compute != nil:
		trace, err = h.compute(ctx, step.Compute)
	case step.Rollup != nil:
		trace, err = h.rollup(ctx, step.Rollup)
	}

	if err != nil {
		code, ok := engine.InputErrorCodeOf(err)
		if !ok {
			return fmt.Errorf("flow[%d] %s: %w", i, trace.Op, err)
		}
		trace = StepTrace{Op: trace.Op, Error: string(code)}
	}
	result.AddStep(trace)

	for _, msg := range checkExpect(i, step.Expect, trace) {
		result.AddError(msg)
	}
	return nil
}

func (h *Harness) ingest(ctx context.Context, s *IngestStep) (StepTrace, error) {
	op := "ingest"
	if s.Reload {
		op = "reload"
	}
	trace := StepTrace{Op: op}

	date, err := cfr.ParseDate(s.Date)
	if err != nil {
		return trace, fmt.Errorf("date: %w", err)
	}

	root := h.docs[s.Document]
	var stats engine.IngestStats
	if s.Reload {
		stats, err = h.engine.Reload(ctx, s.Title, date, root)
	} else {
		stats, err = h.engine.IngestDocument(ctx, s.Title, date, root)
	}
	if err != nil {
		return trace, err
	}
	trace.Ingest = &stats
	return trace, nil
}

func (h *Harness) compute(ctx context.Context, s *ComputeStep) (StepTrace, error) {
	trace := StepTrace{Op: "compute"}
	start, end, err := parseRange(s.Start, s.End)
	if err != nil {
		return trace, err
	}

	stats, err := h.engine.ComputeMetrics(ctx, s.Title, start, end)
	if err != nil {
		return trace, err
	}
	trace.Compute = &stats
	return trace, nil
}

func (h *Harness) rollup(ctx context.Context, s *RollupStep) (StepTrace, error) {
	trace := StepTrace{Op: "rollup"}
	start, end, err := parseRange(s.Start, s.End)
	if err != nil {
		return trace, err
	}

	rows, err := h.engine.Rollup(ctx, engine.RollupRequest{
		Metric:   s.Metric,
		Agencies: s.Agencies,
		Level:    s.Level,
		Start:    start,
		End:      end,
	})
	if err != nil {
		return trace, err
	}
	trace.Rows = rows
	return trace, nil
}
