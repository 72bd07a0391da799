// Package querysql compiles roll-up queries to parameterized SQLite SQL.
//
// Values are always bound through ? placeholders. The grouping column is the
// only identifier spliced into the statement and it comes from a fixed
// whitelist keyed by cfr.Level, never from caller input. Every statement ends
// in a total ORDER BY so repeated queries over unchanged data return rows in
// the same order.
package querysql

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/cfrstat/internal/cfr"
)

// RollupQuery selects one metric, summed per (agency, title, level value, date).
type RollupQuery struct {
	MetricID    int
	AgencySlugs []string
	Level       cfr.Level
	Start       time.Time
	End         time.Time
}

// levelColumns maps each level to the dimension label column grouped on.
var levelColumns = map[cfr.Level]string{
	cfr.LevelTitle:      "d.title_label",
	cfr.LevelChapter:    "d.chapter_label",
	cfr.LevelSubchapter: "d.subchapter_label",
	cfr.LevelPart:       "d.part_label",
	cfr.LevelSubpart:    "d.subpart_label",
	cfr.LevelSection:    "d.section_label",
}

// LevelColumn returns the dimension column grouped on for level.
func LevelColumn(level cfr.Level) (string, error) {
	col, ok := levelColumns[level]
	if !ok {
		return "", fmt.Errorf("no column for level %s", level)
	}
	return col, nil
}

// CompileRollup returns the SQL and bound parameters for q.
//
// Result columns, in order: agency_slug, title_id, level_value, issue_date,
// value.
func CompileRollup(q RollupQuery) (string, []any, error) {
	col, err := LevelColumn(q.Level)
	if err != nil {
		return "", nil, err
	}
	if len(q.AgencySlugs) == 0 {
		return "", nil, fmt.Errorf("rollup requires at least one agency slug")
	}
	if q.End.Before(q.Start) {
		return "", nil, fmt.Errorf("rollup end %s before start %s", cfr.FormatDate(q.End), cfr.FormatDate(q.Start))
	}

	params := make([]any, 0, len(q.AgencySlugs)+3)
	params = append(params, q.MetricID)
	for _, slug := range q.AgencySlugs {
		params = append(params, slug)
	}
	params = append(params, cfr.FormatDate(q.Start), cfr.FormatDate(q.End))

	sql := fmt.Sprintf(`SELECT d.agency_slug, d.title_id, COALESCE(%s, '') AS level_value, m.issue_date, SUM(m.value) AS value
FROM cfr_metrics m
INNER JOIN cfr_dimensions d
  ON d.title_id = m.title_id AND d.issue_date = m.issue_date AND d.section_id = m.section_id
WHERE m.metric_id = ? AND d.agency_slug IN (%s) AND m.issue_date BETWEEN ? AND ?
GROUP BY d.agency_slug, d.title_id, level_value, m.issue_date
ORDER BY d.agency_slug ASC, d.title_id ASC, level_value COLLATE BINARY ASC, m.issue_date ASC`,
		col, placeholders(len(q.AgencySlugs)))

	return sql, params, nil
}

// placeholders returns "?, ?, ?" for n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
