package store

import (
	"context"
	"fmt"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/querysql"
)

// Rollup sums one metric per (agency, title, level value, issue date).
// Rows are ordered by agency slug, title, level value, then date.
func (s *Store) Rollup(ctx context.Context, q querysql.RollupQuery) ([]cfr.RollupRow, error) {
	query, params, err := querysql.CompileRollup(q)
	if err != nil {
		return nil, fmt.Errorf("compile rollup: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query rollup: %w", err)
	}
	defer rows.Close()

	levelName := q.Level.DisplayName()
	out := []cfr.RollupRow{}
	for rows.Next() {
		var (
			r   cfr.RollupRow
			raw string
		)
		if err := rows.Scan(&r.AgencySlug, &r.Title, &r.LevelValue, &raw, &r.Value); err != nil {
			return nil, fmt.Errorf("scan rollup row: %w", err)
		}
		if r.Date, err = parseIssueDate(raw); err != nil {
			return nil, err
		}
		r.LevelName = levelName
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rollup: %w", err)
	}
	return out, nil
}
