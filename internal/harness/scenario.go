package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cfrstat/internal/cfr"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Agencies are loaded with ReplaceAgencies before the flow.
	Agencies []AgencyFixture `yaml:"agencies,omitempty"`

	// Documents maps a document name to its XML.
	Documents map[string]string `yaml:"documents,omitempty"`

	// Flow is executed in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state of the store.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// AgencyFixture is agency reference data written in a scenario.
type AgencyFixture struct {
	Slug       string             `yaml:"slug"`
	Name       string             `yaml:"name,omitempty"`
	ShortName  string             `yaml:"short_name,omitempty"`
	References []ReferenceFixture `yaml:"references,omitempty"`
	Children   []AgencyFixture    `yaml:"children,omitempty"`
}

// ReferenceFixture attributes part of a title to an agency.
type ReferenceFixture struct {
	Title      int    `yaml:"title"`
	Subtitle   string `yaml:"subtitle,omitempty"`
	Chapter    string `yaml:"chapter,omitempty"`
	Subchapter string `yaml:"subchapter,omitempty"`
	Part       string `yaml:"part,omitempty"`
}

// Agency converts the fixture to reference data.
func (a AgencyFixture) Agency() cfr.Agency {
	out := cfr.Agency{
		Slug:        a.Slug,
		Name:        a.Name,
		ShortName:   a.ShortName,
		DisplayName: a.Name,
	}
	for _, r := range a.References {
		out.References = append(out.References, cfr.CFRReference{
			Title:      r.Title,
			Subtitle:   r.Subtitle,
			Chapter:    r.Chapter,
			Subchapter: r.Subchapter,
			Part:       r.Part,
		})
	}
	for _, c := range a.Children {
		out.Children = append(out.Children, c.Agency())
	}
	return out
}

// Step is one engine operation. Exactly one of Ingest, Compute and Rollup is
// set.
type Step struct {
	Ingest  *IngestStep  `yaml:"ingest,omitempty"`
	Compute *ComputeStep `yaml:"compute,omitempty"`
	Rollup  *RollupStep  `yaml:"rollup,omitempty"`

	// Expect validates the step's outcome. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// IngestStep ingests a named document, or reloads it.
type IngestStep struct {
	Title    int    `yaml:"title"`
	Date     string `yaml:"date"`
	Document string `yaml:"document"`
	Reload   bool   `yaml:"reload,omitempty"`
}

// ComputeStep computes metrics over a date range.
type ComputeStep struct {
	Title int    `yaml:"title"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// RollupStep runs a roll-up query.
type RollupStep struct {
	Metric   string   `yaml:"metric"`
	Level    string   `yaml:"level"`
	Agencies []string `yaml:"agencies"`
	Start    string   `yaml:"start"`
	End      string   `yaml:"end"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected input error code, e.g. "UNKNOWN_AGENCY".
	Error string `yaml:"error,omitempty"`

	// Stats is a subset match on ingest or compute statistics, keyed by
	// their JSON names ("accepted", "written", "computed", ...).
	Stats map[string]int `yaml:"stats,omitempty"`

	// Rows is the exact, ordered roll-up result. Nil skips the check; an
	// empty list requires no rows.
	Rows []ExpectedRow `yaml:"rows"`
}

// ExpectedRow is one expected roll-up row.
type ExpectedRow struct {
	Agency string  `yaml:"agency"`
	Title  int     `yaml:"title"`
	Level  string  `yaml:"level"`
	Date   string  `yaml:"date"`
	Value  float64 `yaml:"value"`
}

// Assertion validates the final state of the store.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Counts lists expected row counts by table (used by counts).
	Counts map[string]int `yaml:"expect,omitempty"`

	// Title, Date and Section locate a section (metric_value, dimension).
	Title   int    `yaml:"title,omitempty"`
	Date    string `yaml:"date,omitempty"`
	Section string `yaml:"section,omitempty"`

	// Metric and Value are the expected metric value (metric_value).
	Metric string  `yaml:"metric,omitempty"`
	Value  float64 `yaml:"value,omitempty"`

	// Agency and Labels are the expected dimension (dimension). Labels maps
	// level names to labels; only listed levels are checked.
	Agency *string           `yaml:"agency,omitempty"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// Assertion type constants.
const (
	AssertCounts      = "counts"
	AssertMetricValue = "metric_value"
	AssertDimension   = "dimension"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML held in memory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
// Scenario names must be unique because they name golden files.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	names := make(map[string]string)
	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if prev, dup := names[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", filepath.Base(path), s.Name, prev)
		}
		names[s.Name] = filepath.Base(path)
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, a := range s.Agencies {
		if a.Slug == "" {
			return fmt.Errorf("agencies[%d]: slug is required", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(s, i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(s *Scenario, i int, step *Step) error {
	set := 0
	for _, ok := range []bool{step.Ingest != nil, step.Compute != nil, step.Rollup != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("flow[%d]: exactly one of ingest, compute, rollup is required", i)
	}

	switch {
	case step.Ingest != nil:
		if step.Ingest.Date == "" {
			return fmt.Errorf("flow[%d].ingest: date is required", i)
		}
		if _, ok := s.Documents[step.Ingest.Document]; !ok {
			return fmt.Errorf("flow[%d].ingest: unknown document %q", i, step.Ingest.Document)
		}
	case step.Compute != nil:
		if step.Compute.Start == "" || step.Compute.End == "" {
			return fmt.Errorf("flow[%d].compute: start and end are required", i)
		}
	case step.Rollup != nil:
		if step.Rollup.Metric == "" || step.Rollup.Level == "" {
			return fmt.Errorf("flow[%d].rollup: metric and level are required", i)
		}
		if step.Rollup.Start == "" || step.Rollup.End == "" {
			return fmt.Errorf("flow[%d].rollup: start and end are required", i)
		}
	}

	if step.Expect != nil && step.Expect.Rows != nil && step.Rollup == nil {
		return fmt.Errorf("flow[%d].expect: rows only apply to rollup steps", i)
	}
	if step.Expect != nil && step.Expect.Stats != nil && step.Rollup != nil {
		return fmt.Errorf("flow[%d].expect: stats do not apply to rollup steps", i)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCounts:
		if len(a.Counts) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for counts", index)
		}
	case AssertMetricValue:
		if a.Section == "" || a.Date == "" || a.Metric == "" {
			return fmt.Errorf("assertions[%d]: section, date and metric are required for metric_value", index)
		}
	case AssertDimension:
		if a.Section == "" || a.Date == "" {
			return fmt.Errorf("assertions[%d]: section and date are required for dimension", index)
		}
		if a.Agency == nil && len(a.Labels) == 0 {
			return fmt.Errorf("assertions[%d]: agency or labels is required for dimension", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
