package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestConformanceScenarios runs every scenario under testdata/scenarios and
// compares its trace with testdata/golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -run TestConformanceScenarios -update
func TestConformanceScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestConformanceScenarios_Replay(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			first, err := Run(s)
			require.NoError(t, err)
			second, err := Run(s)
			require.NoError(t, err)

			a, err := marshalSnapshot(TraceSnapshot{ScenarioName: s.Name, Trace: first.Trace, Counts: first.Counts})
			require.NoError(t, err)
			b, err := marshalSnapshot(TraceSnapshot{ScenarioName: s.Name, Trace: second.Trace, Counts: second.Counts})
			require.NoError(t, err)
			require.Equal(t, string(a), string(b))
		})
	}
}
