package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/querysql"
)

func seedRollup(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	for _, date := range []string{"2024-01-01", "2024-02-01"} {
		d := day(date)
		a, aDim := testSection(d, "1.1", "x")
		b, bDim := testSection(d, "1.2", "y")
		other, otherDim := testSection(d, "9.1", "z")
		otherDim.AgencySlug = "agency-b"
		otherDim.PartLabel = nil

		require.NoError(t, s.InsertSections(ctx,
			[]cfr.Section{a, b, other},
			[]cfr.Dimension{aDim, bDim, otherDim}))
		require.NoError(t, s.InsertMetrics(ctx, []cfr.MetricRecord{
			{Title: 1, Date: d, SectionID: "1.1", MetricID: 0, Value: 3},
			{Title: 1, Date: d, SectionID: "1.2", MetricID: 0, Value: 2},
			{Title: 1, Date: d, SectionID: "9.1", MetricID: 0, Value: 7},
			{Title: 1, Date: d, SectionID: "1.1", MetricID: 1, Value: 100},
		}))
	}
}

func TestRollup_SumsPerGroup(t *testing.T) {
	s := createTestStore(t)
	seedRollup(t, s)

	rows, err := s.Rollup(context.Background(), querysql.RollupQuery{
		MetricID:    0,
		AgencySlugs: []string{"agency-a"},
		Level:       cfr.LevelPart,
		Start:       day("2024-01-01"),
		End:         day("2024-01-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, []cfr.RollupRow{
		{AgencySlug: "agency-a", Title: 1, LevelName: "Part", LevelValue: "Part I", Date: day("2024-01-01"), Value: 5},
	}, rows)
}

func TestRollup_OrderingAndMissingLabel(t *testing.T) {
	s := createTestStore(t)
	seedRollup(t, s)

	rows, err := s.Rollup(context.Background(), querysql.RollupQuery{
		MetricID:    0,
		AgencySlugs: []string{"agency-b", "agency-a"},
		Level:       cfr.LevelPart,
		Start:       day("2024-01-01"),
		End:         day("2024-12-31"),
	})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "agency-a", rows[0].AgencySlug)
	assert.Equal(t, day("2024-01-01"), rows[0].Date)
	assert.Equal(t, "agency-a", rows[1].AgencySlug)
	assert.Equal(t, day("2024-02-01"), rows[1].Date)
	assert.Equal(t, "agency-b", rows[2].AgencySlug)
	assert.Equal(t, "", rows[2].LevelValue, "missing label groups under the empty value")
	assert.Equal(t, 7.0, rows[2].Value)
}

func TestRollup_DateRangeFilters(t *testing.T) {
	s := createTestStore(t)
	seedRollup(t, s)

	rows, err := s.Rollup(context.Background(), querysql.RollupQuery{
		MetricID:    0,
		AgencySlugs: []string{"agency-a"},
		Level:       cfr.LevelTitle,
		Start:       day("2024-01-15"),
		End:         day("2024-12-31"),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, day("2024-02-01"), rows[0].Date)
	assert.Equal(t, "General Provisions", rows[0].LevelValue)
	assert.Equal(t, "Title", rows[0].LevelName)
}

func TestRollup_NoMatches(t *testing.T) {
	s := createTestStore(t)
	seedRollup(t, s)

	rows, err := s.Rollup(context.Background(), querysql.RollupQuery{
		MetricID:    4,
		AgencySlugs: []string{"agency-a"},
		Level:       cfr.LevelPart,
		Start:       day("2024-01-01"),
		End:         day("2024-12-31"),
	})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestRollup_InvalidQuery(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Rollup(context.Background(), querysql.RollupQuery{
		Level: cfr.LevelPart,
		Start: day("2024-01-01"),
		End:   day("2024-01-01"),
	})
	assert.Error(t, err)
}
