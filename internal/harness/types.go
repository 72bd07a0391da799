package harness

import (
	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/engine"
	"github.com/roach88/cfrstat/internal/store"
)

// StepTrace records what one flow step did. Exactly one of Ingest, Compute,
// Rows and Error is meaningful, depending on Op and outcome.
type StepTrace struct {
	Op      string               `json:"op"` // "ingest", "reload", "compute" or "rollup"
	Ingest  *engine.IngestStats  `json:"ingest,omitempty"`
	Compute *engine.ComputeStats `json:"compute,omitempty"`
	Rows    []cfr.RollupRow      `json:"rows,omitempty"`
	Error   string               `json:"error,omitempty"` // input error code
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains one entry per flow step, in order.
	Trace []StepTrace `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Counts are the table row counts after the flow.
	Counts store.Counts `json:"counts"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step to the trace.
func (r *Result) AddStep(step StepTrace) {
	r.Trace = append(r.Trace, step)
}
