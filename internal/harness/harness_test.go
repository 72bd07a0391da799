package harness

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/cfrstat/internal/testutil"
)

func sampleScenario() *Scenario {
	return &Scenario{
		Name:        "sample",
		Description: "Ingest, compute and roll up the sample title",
		Agencies: []AgencyFixture{
			{
				Slug:       testutil.SampleSlug,
				ShortName:  testutil.SampleShortName,
				References: []ReferenceFixture{{Title: testutil.SampleTitle, Chapter: "I"}},
			},
		},
		Documents: map[string]string{"sample": testutil.SampleXML},
		Flow: []Step{
			{
				Ingest: &IngestStep{Title: 1, Date: "2024-01-01", Document: "sample"},
				Expect: &ExpectClause{Stats: map[string]int{"accepted": 2, "written": 2}},
			},
			{
				Compute: &ComputeStep{Title: 1, Start: "2024-01-01", End: "2024-01-01"},
				Expect:  &ExpectClause{Stats: map[string]int{"computed": 10}},
			},
			{
				Rollup: &RollupStep{
					Metric:   "word_count",
					Level:    "chapter",
					Agencies: []string{testutil.SampleShortName},
					Start:    "2024-01-01",
					End:      "2024-01-01",
				},
				Expect: &ExpectClause{Rows: []ExpectedRow{
					{Agency: testutil.SampleSlug, Title: 1, Level: "Chapter I", Date: "2024-01-01", Value: 5},
				}},
			},
		},
		Assertions: []Assertion{
			{Type: AssertCounts, Counts: map[string]int{"sections": 2, "metrics": 10, "runs": 2}},
		},
	}
}

func TestRun_SampleScenario(t *testing.T) {
	result, err := Run(sampleScenario())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, "ingest", result.Trace[0].Op)
	require.NotNil(t, result.Trace[0].Ingest)
	assert.Equal(t, "run-0001", result.Trace[0].Ingest.RunID)
	assert.Equal(t, "compute", result.Trace[1].Op)
	require.NotNil(t, result.Trace[1].Compute)
	assert.Equal(t, "run-0002", result.Trace[1].Compute.RunID)
	assert.Equal(t, "rollup", result.Trace[2].Op)
	assert.Len(t, result.Trace[2].Rows, 1)

	assert.Equal(t, 2, result.Counts.Sections)
	assert.Equal(t, 1, result.Counts.Agencies)
}

func TestRun_Deterministic(t *testing.T) {
	first, err := Run(sampleScenario())
	require.NoError(t, err)
	second, err := Run(sampleScenario())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated run differs (-first +second):\n%s", diff)
	}
}

func TestRun_StatsMismatchFails(t *testing.T) {
	s := sampleScenario()
	s.Flow[0].Expect = &ExpectClause{Stats: map[string]int{"written": 3}}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: expect at flow[0] ingest")
	assert.Contains(t, result.Errors[0], "Expected: written=3")
	assert.Contains(t, result.Errors[0], "Actual: written=2")
}

func TestRun_RowsMismatchFails(t *testing.T) {
	s := sampleScenario()
	s.Flow[2].Expect.Rows[0].Value = 6

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "flow[2] rollup")
	assert.Contains(t, result.Errors[0], "row 0 differs")
}

func TestRun_UnexpectedInputError(t *testing.T) {
	s := sampleScenario()
	s.Flow[2].Rollup.Agencies = []string{"ZZ"}

	result, err := Run(s)
	require.NoError(t, err, "input errors are outcomes, not run failures")

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Expected: success")
	assert.Contains(t, result.Errors[0], "Actual: input error UNKNOWN_AGENCY")
	assert.Equal(t, "UNKNOWN_AGENCY", result.Trace[2].Error)
	assert.Nil(t, result.Trace[2].Rows)
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	s := sampleScenario()
	s.Flow[1].Expect = &ExpectClause{Error: "INVALID_RANGE"}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Expected: input error INVALID_RANGE")
	assert.Contains(t, result.Errors[0], "Actual: success")
}

func TestRun_MalformedDocument(t *testing.T) {
	s := &Scenario{
		Name:        "malformed",
		Description: "An unclosed document cannot be ingested",
		Documents:   map[string]string{"broken": "<ECFR><DIV1 N=\"1\" TYPE=\"TITLE\">"},
		Flow: []Step{
			{
				Ingest: &IngestStep{Title: 1, Date: "2024-01-01", Document: "broken"},
				Expect: &ExpectClause{Error: "MALFORMED_DOCUMENT"},
			},
		},
		Assertions: []Assertion{
			{Type: AssertCounts, Counts: map[string]int{"sections": 0, "runs": 0}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "MALFORMED_DOCUMENT", result.Trace[0].Error)
}

func TestRun_InvalidStepDateAborts(t *testing.T) {
	s := sampleScenario()
	s.Flow[0].Ingest.Date = "January 1st"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute flow")
	assert.Contains(t, err.Error(), "flow[0] ingest")
}

func TestRunWithLogger_LogsEngineActivity(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	result, err := RunWithLogger(sampleScenario(), zap.New(core))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	assert.NotZero(t, logs.FilterMessage("compute finished").Len())
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
