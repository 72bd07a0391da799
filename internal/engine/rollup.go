package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/querysql"
)

// RollupRequest asks for one metric summed at one hierarchy level.
type RollupRequest struct {
	// Metric is a catalog id, machine name or display name.
	Metric string
	// Agencies are agency short names, e.g. "USDA".
	Agencies []string
	// Level is a level name, display name or 0-5 index.
	Level string
	Start time.Time
	End   time.Time
}

// Rollup sums a metric per (agency, title, level value, date) over the
// requested agencies and inclusive date range. It never writes.
//
// Returns an *InputError for an unknown metric, level or agency short name;
// unknown short names are all listed, sorted, in the error's Value.
func (e *Engine) Rollup(ctx context.Context, req RollupRequest) ([]cfr.RollupRow, error) {
	m, ok := e.catalog.Resolve(req.Metric)
	if !ok {
		return nil, newInputError(ErrCodeUnknownMetric, req.Metric,
			"unknown metric, expected one of %s", strings.Join(e.catalog.Names(), ", "))
	}

	level, err := cfr.ParseLevel(req.Level)
	if err != nil {
		return nil, &InputError{Code: ErrCodeUnknownLevel, Message: err.Error(), Value: req.Level, err: err}
	}

	r, err := cfr.NewDateRange(req.Start, req.End)
	if err != nil {
		return nil, &InputError{Code: ErrCodeInvalidRange, Message: err.Error(), err: err}
	}

	slugs, err := e.resolveAgencies(ctx, req.Agencies)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	rows, err := e.store.Rollup(ctx, querysql.RollupQuery{
		MetricID:    m.ID,
		AgencySlugs: slugs,
		Level:       level,
		Start:       r.Start,
		End:         r.End,
	})
	rollupDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, fmt.Errorf("rollup %s by %s: %w", m.Name, level, err)
	}
	return rows, nil
}

// resolveAgencies maps short names to a sorted, duplicate-free slug list.
func (e *Engine) resolveAgencies(ctx context.Context, shortNames []string) ([]string, error) {
	var names []string
	for _, n := range shortNames {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return nil, newInputError(ErrCodeUnknownAgency, "", "at least one agency short name is required")
	}

	bySlug, err := e.store.AgencySlugsByShortName(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve agencies: %w", err)
	}

	set := make(map[string]struct{}, len(names))
	var unknown []string
	for _, n := range names {
		slug, ok := bySlug[n]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		set[slug] = struct{}{}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, newInputError(ErrCodeUnknownAgency, strings.Join(unknown, ","),
			"unknown agency short name")
	}

	slugs := make([]string, 0, len(set))
	for s := range set {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs, nil
}
