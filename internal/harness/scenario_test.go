package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "One ingest"
documents:
  doc: "<ECFR/>"
flow:
  - ingest: { title: 1, date: 2024-01-01, document: doc }
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	content := `
name: test_scenario
description: "Test scenario for validation"
agencies:
  - slug: agency-a
    short_name: AA
    references:
      - { title: 1, chapter: I }
    children:
      - slug: agency-a-office
        short_name: AAO
documents:
  sample: "<ECFR/>"
flow:
  - ingest: { title: 1, date: 2024-01-01, document: sample }
    expect:
      stats: { accepted: 0 }
  - compute: { title: 1, start: 2024-01-01, end: 2024-01-31 }
  - rollup:
      metric: word_count
      level: part
      agencies: [AA]
      start: 2024-01-01
      end: 2024-01-31
    expect:
      rows: []
assertions:
  - type: counts
    expect: { sections: 0 }
  - type: dimension
    title: 1
    date: 2024-01-01
    section: "101"
    agency: ""
`
	path := writeScenario(t, dir, "test.yaml", content)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	require.Len(t, scenario.Agencies, 1)
	assert.Len(t, scenario.Agencies[0].Children, 1)
	assert.Len(t, scenario.Flow, 3)
	assert.Len(t, scenario.Assertions, 2)

	require.NotNil(t, scenario.Flow[0].Ingest)
	assert.Equal(t, "sample", scenario.Flow[0].Ingest.Document)
	assert.Equal(t, map[string]int{"accepted": 0}, scenario.Flow[0].Expect.Stats)

	require.NotNil(t, scenario.Flow[2].Rollup)
	assert.Equal(t, []string{"AA"}, scenario.Flow[2].Rollup.Agencies)
	assert.NotNil(t, scenario.Flow[2].Expect.Rows, "an empty rows list is kept distinct from an absent one")
	assert.Empty(t, scenario.Flow[2].Expect.Rows)

	require.NotNil(t, scenario.Assertions[1].Agency)
	assert.Equal(t, "", *scenario.Assertions[1].Agency)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario + "assertion:\n  - type: counts\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing name",
			content: "description: d\nflow:\n  - compute: { title: 1, start: 2024-01-01, end: 2024-01-02 }\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nflow:\n  - compute: { title: 1, start: 2024-01-01, end: 2024-01-02 }\n",
			want:    "description is required",
		},
		{
			name:    "empty flow",
			content: "name: n\ndescription: d\nflow: []\n",
			want:    "flow list is required",
		},
		{
			name: "agency without slug",
			content: `
name: n
description: d
agencies:
  - short_name: AA
flow:
  - compute: { title: 1, start: 2024-01-01, end: 2024-01-02 }
`,
			want: "agencies[0]: slug is required",
		},
		{
			name: "two operations in one step",
			content: `
name: n
description: d
flow:
  - compute: { title: 1, start: 2024-01-01, end: 2024-01-02 }
    rollup: { metric: m, level: part, agencies: [AA], start: 2024-01-01, end: 2024-01-02 }
`,
			want: "exactly one of ingest, compute, rollup",
		},
		{
			name: "unknown document",
			content: `
name: n
description: d
flow:
  - ingest: { title: 1, date: 2024-01-01, document: missing }
`,
			want: `unknown document "missing"`,
		},
		{
			name: "compute without range",
			content: `
name: n
description: d
flow:
  - compute: { title: 1, start: 2024-01-01 }
`,
			want: "start and end are required",
		},
		{
			name: "rollup without metric",
			content: `
name: n
description: d
flow:
  - rollup: { level: part, agencies: [AA], start: 2024-01-01, end: 2024-01-02 }
`,
			want: "metric and level are required",
		},
		{
			name: "rows on compute",
			content: `
name: n
description: d
flow:
  - compute: { title: 1, start: 2024-01-01, end: 2024-01-02 }
    expect:
      rows: []
`,
			want: "rows only apply to rollup steps",
		},
		{
			name: "stats on rollup",
			content: `
name: n
description: d
flow:
  - rollup: { metric: m, level: part, agencies: [AA], start: 2024-01-01, end: 2024-01-02 }
    expect:
      stats: { written: 1 }
`,
			want: "stats do not apply to rollup steps",
		},
		{
			name:    "assertion without type",
			content: minimalScenario + "assertions:\n  - title: 1\n",
			want:    "assertions[0]: type is required",
		},
		{
			name:    "unknown assertion type",
			content: minimalScenario + "assertions:\n  - type: trace_contains\n",
			want:    `unknown assertion type "trace_contains"`,
		},
		{
			name:    "counts without expect",
			content: minimalScenario + "assertions:\n  - type: counts\n",
			want:    "expect is required for counts",
		},
		{
			name:    "metric_value without metric",
			content: minimalScenario + "assertions:\n  - { type: metric_value, title: 1, date: 2024-01-01, section: \"101\" }\n",
			want:    "section, date and metric are required",
		},
		{
			name:    "dimension without checks",
			content: minimalScenario + "assertions:\n  - { type: dimension, title: 1, date: 2024-01-01, section: \"101\" }\n",
			want:    "agency or labels is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarios_SortedByFileName(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "02_second.yaml", `
name: second
description: d
flow:
  - compute: { title: 1, start: 2024-01-01, end: 2024-01-02 }
`)
	writeScenario(t, dir, "01_first.yaml", `
name: first
description: d
flow:
  - compute: { title: 1, start: 2024-01-01, end: 2024-01-02 }
`)
	writeScenario(t, dir, "notes.txt", "not a scenario")

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "first", scenarios[0].Name)
	assert.Equal(t, "second", scenarios[1].Name)
}

func TestLoadScenarios_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", minimalScenario)
	writeScenario(t, dir, "b.yaml", minimalScenario)

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "minimal" already used by a.yaml`)
}

func TestLoadScenarios_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bad.yaml", "name: bad\n")

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestAgencyFixture_Agency(t *testing.T) {
	fixture := AgencyFixture{
		Slug:      "agency-b",
		Name:      "Agency B",
		ShortName: "BB",
		References: []ReferenceFixture{
			{Title: 5, Chapter: "II", Part: "10"},
		},
		Children: []AgencyFixture{
			{Slug: "agency-b-office", ShortName: "BBO"},
		},
	}

	agency := fixture.Agency()
	assert.Equal(t, "agency-b", agency.Slug)
	assert.Equal(t, "Agency B", agency.DisplayName)
	require.Len(t, agency.References, 1)
	assert.Equal(t, 5, agency.References[0].Title)
	assert.Equal(t, "II", agency.References[0].Chapter)
	assert.Equal(t, "10", agency.References[0].Part)
	require.Len(t, agency.Children, 1)
	assert.Equal(t, "BBO", agency.Children[0].ShortName)
}
