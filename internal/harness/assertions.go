package harness

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/metric"
	"github.com/roach88/cfrstat/internal/store"
)

// valueTolerance bounds the difference accepted between expected and actual
// metric values.
const valueTolerance = 1e-9

// AssertionError is returned when an assertion or expect clause fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type, or "expect" for flow steps
	Where    string // Step or assertion index
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s at %s\n", e.Type, e.Where)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	return buf.String()
}

// AssertionContext provides what final-state assertions read.
type AssertionContext struct {
	Store   *store.Store
	Ctx     context.Context
	Catalog *metric.Catalog
	Counts  store.Counts
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertCounts:
			err = assertCounts(i, a, actx.Counts)
		case AssertMetricValue:
			err = assertMetricValue(i, a, actx)
		case AssertDimension:
			err = assertDimension(i, a, actx)
		default:
			err = fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func countsByTable(c store.Counts) map[string]int {
	return map[string]int{
		"sections":   c.Sections,
		"dimensions": c.Dimensions,
		"metrics":    c.Metrics,
		"agencies":   c.Agencies,
		"titles":     c.Titles,
		"runs":       c.Runs,
	}
}

// assertCounts compares the listed tables' row counts.
func assertCounts(i int, a Assertion, counts store.Counts) error {
	actual := countsByTable(counts)
	var mismatches []string
	for _, table := range sortedKeys(a.Counts) {
		got, ok := actual[table]
		if !ok {
			return fmt.Errorf("assertions[%d]: unknown table %q", i, table)
		}
		if got != a.Counts[table] {
			mismatches = append(mismatches, fmt.Sprintf("%s=%d (want %d)", table, got, a.Counts[table]))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertCounts,
			Where:    fmt.Sprintf("assertions[%d]", i),
			Expected: formatIntMap(a.Counts),
			Actual:   strings.Join(mismatches, ", "),
		}
	}
	return nil
}

// assertMetricValue checks one stored metric value.
func assertMetricValue(i int, a Assertion, actx *AssertionContext) error {
	where := fmt.Sprintf("assertions[%d]", i)
	m, ok := actx.Catalog.Resolve(a.Metric)
	if !ok {
		return fmt.Errorf("%s: unknown metric %q", where, a.Metric)
	}
	date, err := cfr.ParseDate(a.Date)
	if err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}

	records, err := actx.Store.ReadMetrics(actx.Ctx, a.Title, date)
	if err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	for _, r := range records {
		if r.SectionID != a.Section || r.MetricID != m.ID {
			continue
		}
		if math.Abs(r.Value-a.Value) > valueTolerance {
			return &AssertionError{
				Type:     AssertMetricValue,
				Where:    where,
				Expected: fmt.Sprintf("%s of section %s = %g", m.Name, a.Section, a.Value),
				Actual:   fmt.Sprintf("%g", r.Value),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertMetricValue,
		Where:    where,
		Expected: fmt.Sprintf("%s of section %s = %g", m.Name, a.Section, a.Value),
		Actual:   "no stored value",
	}
}

// assertDimension checks the agency and labels stored for one section.
func assertDimension(i int, a Assertion, actx *AssertionContext) error {
	where := fmt.Sprintf("assertions[%d]", i)
	date, err := cfr.ParseDate(a.Date)
	if err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}

	dims, err := actx.Store.ReadDimensions(actx.Ctx, a.Title, date)
	if err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	for _, d := range dims {
		if d.SectionID != a.Section {
			continue
		}
		var mismatches []string
		if a.Agency != nil && d.AgencySlug != *a.Agency {
			mismatches = append(mismatches, fmt.Sprintf("agency=%q (want %q)", d.AgencySlug, *a.Agency))
		}
		labels := dimensionLabels(d)
		for _, level := range sortedKeys(a.Labels) {
			want := a.Labels[level]
			got, ok := labels[level]
			if !ok {
				return fmt.Errorf("%s: unknown level %q", where, level)
			}
			if got == nil {
				mismatches = append(mismatches, fmt.Sprintf("%s=<none> (want %q)", level, want))
			} else if *got != want {
				mismatches = append(mismatches, fmt.Sprintf("%s=%q (want %q)", level, *got, want))
			}
		}
		if len(mismatches) > 0 {
			return &AssertionError{
				Type:     AssertDimension,
				Where:    where,
				Expected: fmt.Sprintf("dimension of section %s", a.Section),
				Actual:   strings.Join(mismatches, ", "),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertDimension,
		Where:    where,
		Expected: fmt.Sprintf("dimension of section %s", a.Section),
		Actual:   "not stored",
	}
}

func dimensionLabels(d cfr.Dimension) map[string]*string {
	return map[string]*string{
		cfr.LevelTitle.String():      d.TitleLabel,
		cfr.LevelChapter.String():    d.ChapterLabel,
		cfr.LevelSubchapter.String(): d.SubchapterLabel,
		cfr.LevelPart.String():       d.PartLabel,
		cfr.LevelSubpart.String():    d.SubpartLabel,
		cfr.LevelSection.String():    d.SectionLabel,
	}
}

// checkExpect validates one step's outcome against its expect clause.
func checkExpect(i int, expect *ExpectClause, trace StepTrace) []string {
	where := fmt.Sprintf("flow[%d] %s", i, trace.Op)
	fail := func(expected, actual string) []string {
		return []string{(&AssertionError{Type: "expect", Where: where, Expected: expected, Actual: actual}).Error()}
	}

	wantErr := ""
	if expect != nil {
		wantErr = expect.Error
	}
	if trace.Error != wantErr {
		switch {
		case wantErr == "":
			return fail("success", "input error "+trace.Error)
		case trace.Error == "":
			return fail("input error "+wantErr, "success")
		default:
			return fail("input error "+wantErr, "input error "+trace.Error)
		}
	}
	if expect == nil || wantErr != "" {
		return nil
	}

	var errs []string
	if len(expect.Stats) > 0 {
		actual := stepStats(trace)
		for _, key := range sortedKeys(expect.Stats) {
			got, ok := actual[key]
			if !ok {
				errs = append(errs, fmt.Sprintf("%s: unknown stat %q", where, key))
				continue
			}
			if got != expect.Stats[key] {
				errs = append(errs, fail(fmt.Sprintf("%s=%d", key, expect.Stats[key]), fmt.Sprintf("%s=%d", key, got))...)
			}
		}
	}
	if expect.Rows != nil {
		if msg := compareRows(expect.Rows, trace.Rows); msg != "" {
			errs = append(errs, fail(formatExpectedRows(expect.Rows), msg)...)
		}
	}
	return errs
}

// stepStats returns a step's statistics keyed by their JSON names.
func stepStats(t StepTrace) map[string]int {
	switch {
	case t.Ingest != nil:
		s := t.Ingest
		return map[string]int{
			"parsed":       s.Parsed,
			"accepted":     s.Accepted,
			"skipped":      s.Skipped,
			"written":      s.Written,
			"discarded":    s.Discarded,
			"unattributed": s.Unattributed,
			"cleared":      s.Cleared,
		}
	case t.Compute != nil:
		s := t.Compute
		return map[string]int{
			"dates":     s.Dates,
			"sections":  s.Sections,
			"computed":  s.Computed,
			"skipped":   s.Skipped,
			"written":   s.Written,
			"discarded": s.Discarded,
		}
	default:
		return map[string]int{}
	}
}

// compareRows returns "" when actual matches expected exactly, in order.
func compareRows(expected []ExpectedRow, actual []cfr.RollupRow) string {
	if len(expected) != len(actual) {
		return fmt.Sprintf("%d rows: %s", len(actual), formatRows(actual))
	}
	for i, want := range expected {
		got := actual[i]
		if got.AgencySlug != want.Agency ||
			got.Title != want.Title ||
			got.LevelValue != want.Level ||
			cfr.FormatDate(got.Date) != want.Date ||
			math.Abs(got.Value-want.Value) > valueTolerance {
			return fmt.Sprintf("row %d differs: %s", i, formatRows(actual))
		}
	}
	return ""
}

func formatRows(rows []cfr.RollupRow) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = fmt.Sprintf("{%s %d %q %s %g}", r.AgencySlug, r.Title, r.LevelValue, cfr.FormatDate(r.Date), r.Value)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatExpectedRows(rows []ExpectedRow) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = fmt.Sprintf("{%s %d %q %s %g}", r.Agency, r.Title, r.Level, r.Date, r.Value)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatIntMap(m map[string]int) string {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseRange parses an inclusive date range. Inverted ranges are left for
// the engine to reject as INVALID_RANGE.
func parseRange(rawStart, rawEnd string) (time.Time, time.Time, error) {
	start, err := cfr.ParseDate(rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	end, err := cfr.ParseDate(rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	return start, end, nil
}
