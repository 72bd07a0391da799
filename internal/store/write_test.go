package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cfrstat/internal/cfr"
)

func TestInsertSections_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	d := day("2024-01-01")

	sec, dim := testSection(d, "1.1", "The rule applies.")
	require.NoError(t, s.InsertSections(ctx, []cfr.Section{sec}, []cfr.Dimension{dim}))

	sections, err := s.ReadSections(ctx, 1, d)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, sec, sections[0])

	dims, err := s.ReadDimensions(ctx, 1, d)
	require.NoError(t, err)
	require.Len(t, dims, 1)
	assert.Equal(t, dim, dims[0])
	assert.Nil(t, dims[0].SubchapterLabel, "absent level stays NULL")
	assert.Equal(t, "", dims[0].SubchapterID)
}

func TestInsertSections_DuplicateRollsBackBatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	d := day("2024-01-01")

	first, firstDim := testSection(d, "1.1", "first")
	require.NoError(t, s.InsertSections(ctx, []cfr.Section{first}, []cfr.Dimension{firstDim}))

	fresh, freshDim := testSection(d, "1.2", "fresh")
	dup, dupDim := testSection(d, "1.1", "again")
	err := s.InsertSections(ctx,
		[]cfr.Section{fresh, dup},
		[]cfr.Dimension{freshDim, dupDim})
	require.Error(t, err)

	ids, err := s.SectionIDs(ctx, 1, d)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"1.1": {}}, ids, "1.2 must not survive the failed batch")

	dims, err := s.ReadDimensions(ctx, 1, d)
	require.NoError(t, err)
	assert.Len(t, dims, 1)
}

func TestInsertSections_MismatchedLengths(t *testing.T) {
	s := createTestStore(t)
	sec, _ := testSection(day("2024-01-01"), "1.1", "x")

	err := s.InsertSections(context.Background(), []cfr.Section{sec}, nil)
	assert.Error(t, err)
}

func TestInsertSections_Empty(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.InsertSections(context.Background(), nil, nil))
}

func TestInsertMetrics_DuplicateRollsBackBatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	d := day("2024-01-01")

	rec := cfr.MetricRecord{Title: 1, Date: d, SectionID: "1.1", MetricID: 0, Value: 3}
	require.NoError(t, s.InsertMetrics(ctx, []cfr.MetricRecord{rec}))

	other := cfr.MetricRecord{Title: 1, Date: d, SectionID: "1.1", MetricID: 1, Value: 1}
	err := s.InsertMetrics(ctx, []cfr.MetricRecord{other, rec})
	require.Error(t, err)

	records, err := s.ReadMetrics(ctx, 1, d)
	require.NoError(t, err)
	assert.Equal(t, []cfr.MetricRecord{rec}, records)
}

func TestClearTitleDate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	d1 := day("2024-01-01")
	d2 := day("2024-02-01")

	for _, d := range []time.Time{d1, d2} {
		sec, dim := testSection(d, "1.1", "text")
		require.NoError(t, s.InsertSections(ctx, []cfr.Section{sec}, []cfr.Dimension{dim}))
		require.NoError(t, s.InsertMetrics(ctx, []cfr.MetricRecord{
			{Title: 1, Date: d, SectionID: "1.1", MetricID: 0, Value: 1},
		}))
	}

	n, err := s.ClearTitleDate(ctx, 1, d1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := s.SectionIDs(ctx, 1, d1)
	require.NoError(t, err)
	assert.Empty(t, ids)

	keys, err := s.MetricKeys(ctx, 1, d1)
	require.NoError(t, err)
	assert.Empty(t, keys)

	// Other dates are untouched.
	ids, err = s.SectionIDs(ctx, 1, d2)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestReplaceAgencies_FlattensChildren(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	agencies := []cfr.Agency{
		{
			Slug:      "agriculture-department",
			Name:      "Department of Agriculture",
			ShortName: "USDA",
			References: []cfr.CFRReference{
				{Title: 2, Chapter: "IV"},
				{Title: 7, Subtitle: "A"},
			},
			Children: []cfr.Agency{
				{
					Slug:       "forest-service",
					Name:       "Forest Service",
					References: []cfr.CFRReference{{Title: 36, Chapter: "II"}},
				},
			},
		},
	}

	n, err := s.ReplaceAgencies(ctx, agencies)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.ReadAgencies(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "agriculture-department", got[0].Slug)
	assert.Len(t, got[0].References, 2)
	assert.Equal(t, "forest-service", got[1].Slug)
	assert.Equal(t, "agriculture-department", got[1].ParentSlug)
	assert.Equal(t, []cfr.CFRReference{{AgencySlug: "forest-service", Title: 36, Chapter: "II"}}, got[1].References)
}

func TestReplaceAgencies_ReplacesPrevious(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceAgencies(ctx, []cfr.Agency{{Slug: "old", References: []cfr.CFRReference{{Title: 1, Chapter: "I"}}}})
	require.NoError(t, err)
	_, err = s.ReplaceAgencies(ctx, []cfr.Agency{{Slug: "new"}})
	require.NoError(t, err)

	got, err := s.ReadAgencies(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Slug)

	chapters, err := s.AgencySlugsByChapter(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, chapters, "references cascade with their agency")
}

func TestReplaceAgencies_DuplicateSlugFirstWins(t *testing.T) {
	s := createTestStore(t)

	n, err := s.ReplaceAgencies(context.Background(), []cfr.Agency{
		{Slug: "a", Name: "first"},
		{Slug: "a", Name: "second"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.ReadAgencies(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Name)
}

func TestReplaceAgencies_MissingSlug(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReplaceAgencies(context.Background(), []cfr.Agency{{Name: "nameless"}})
	assert.Error(t, err)
}

func TestReplaceTitles(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceTitles(ctx, []cfr.Title{
		{Number: 35, Name: "Panama Canal", Reserved: true},
		{Number: 1, Name: "General Provisions", LatestIssueDate: "2024-05-17"},
	}))

	got, err := s.ReadTitles(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Number)
	assert.Equal(t, "2024-05-17", got[0].LatestIssueDate)
	assert.True(t, got[1].Reserved)
}

func TestWriteRun_RoundTripAndOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	older := cfr.Run{
		ID: "run-1", Kind: cfr.RunKindIngest, Title: 1,
		Start: day("2024-01-01"), End: day("2024-01-01"),
		Accepted: 3, Skipped: 1, Written: 3,
		FinishedAt: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	}
	newer := cfr.Run{
		ID: "run-2", Kind: cfr.RunKindCompute, Title: 1,
		Start: day("2024-01-01"), End: day("2024-03-01"),
		Written: 15, Discarded: 5,
		FinishedAt: time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.WriteRun(ctx, older))
	require.NoError(t, s.WriteRun(ctx, newer))
	require.NoError(t, s.WriteRun(ctx, newer), "rewriting a run is a no-op")

	runs, err := s.ReadRuns(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []cfr.Run{newer, older}, runs)

	runs, err = s.ReadRuns(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []cfr.Run{newer}, runs)
}
