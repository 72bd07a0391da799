package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/cfrstat/internal/cfr"
)

// SectionIDs returns the identifiers of every section with a dimension
// record for title at date. Ingest uses it as the seen-set.
func (s *Store) SectionIDs(ctx context.Context, title int, date time.Time) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT section_id FROM cfr_dimensions
		WHERE title_id = ? AND issue_date = ?
	`, title, cfr.FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("query section ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan section id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate section ids: %w", err)
	}
	return ids, nil
}

// IssueDates returns the distinct issue dates with stored sections for title
// within [start, end], ascending.
func (s *Store) IssueDates(ctx context.Context, title int, start, end time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT issue_date FROM cfr_texts
		WHERE title_id = ? AND issue_date BETWEEN ? AND ?
		ORDER BY issue_date ASC
	`, title, cfr.FormatDate(start), cfr.FormatDate(end))
	if err != nil {
		return nil, fmt.Errorf("query issue dates: %w", err)
	}
	defer rows.Close()

	dates := []time.Time{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan issue date: %w", err)
		}
		d, err := parseIssueDate(raw)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issue dates: %w", err)
	}
	return dates, nil
}

// ReadSections returns the sections of title at date ordered by section_id.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadSections(ctx context.Context, title int, date time.Time) ([]cfr.Section, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title_id, issue_date, section_id, content, content_hash
		FROM cfr_texts
		WHERE title_id = ? AND issue_date = ?
		ORDER BY section_id COLLATE BINARY ASC
	`, title, cfr.FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	defer rows.Close()

	sections := []cfr.Section{}
	for rows.Next() {
		var (
			sec cfr.Section
			raw string
		)
		if err := rows.Scan(&sec.Title, &raw, &sec.SectionID, &sec.Content, &sec.ContentHash); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		if sec.Date, err = parseIssueDate(raw); err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return sections, nil
}

// ReadDimensions returns the dimensions of title at date ordered by section_id.
func (s *Store) ReadDimensions(ctx context.Context, title int, date time.Time) ([]cfr.Dimension, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title_id, issue_date, section_id, chapter_id, subchapter_id, part_id, subpart_id, agency_slug,
		       title_label, chapter_label, subchapter_label, part_label, subpart_label, section_label
		FROM cfr_dimensions
		WHERE title_id = ? AND issue_date = ?
		ORDER BY section_id COLLATE BINARY ASC
	`, title, cfr.FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("query dimensions: %w", err)
	}
	defer rows.Close()

	dims := []cfr.Dimension{}
	for rows.Next() {
		d, err := scanDimension(rows)
		if err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dimensions: %w", err)
	}
	return dims, nil
}

func scanDimension(rows *sql.Rows) (cfr.Dimension, error) {
	var (
		d      cfr.Dimension
		raw    string
		labels [cfr.NumLevels]sql.NullString
	)
	err := rows.Scan(
		&d.Title, &raw, &d.SectionID,
		&d.ChapterID, &d.SubchapterID, &d.PartID, &d.SubpartID, &d.AgencySlug,
		&labels[cfr.LevelTitle], &labels[cfr.LevelChapter], &labels[cfr.LevelSubchapter],
		&labels[cfr.LevelPart], &labels[cfr.LevelSubpart], &labels[cfr.LevelSection],
	)
	if err != nil {
		return cfr.Dimension{}, fmt.Errorf("scan dimension: %w", err)
	}
	if d.Date, err = parseIssueDate(raw); err != nil {
		return cfr.Dimension{}, err
	}
	d.TitleLabel = labelFromNull(labels[cfr.LevelTitle])
	d.ChapterLabel = labelFromNull(labels[cfr.LevelChapter])
	d.SubchapterLabel = labelFromNull(labels[cfr.LevelSubchapter])
	d.PartLabel = labelFromNull(labels[cfr.LevelPart])
	d.SubpartLabel = labelFromNull(labels[cfr.LevelSubpart])
	d.SectionLabel = labelFromNull(labels[cfr.LevelSection])
	return d, nil
}

// MetricKeys returns the keys of every metric value stored for title at date.
func (s *Store) MetricKeys(ctx context.Context, title int, date time.Time) (map[cfr.MetricKey]struct{}, error) {
	day := cfr.FormatDate(date)
	rows, err := s.db.QueryContext(ctx, `
		SELECT section_id, metric_id FROM cfr_metrics
		WHERE title_id = ? AND issue_date = ?
	`, title, day)
	if err != nil {
		return nil, fmt.Errorf("query metric keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[cfr.MetricKey]struct{})
	for rows.Next() {
		k := cfr.MetricKey{Title: title, Date: day}
		if err := rows.Scan(&k.SectionID, &k.MetricID); err != nil {
			return nil, fmt.Errorf("scan metric key: %w", err)
		}
		keys[k] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric keys: %w", err)
	}
	return keys, nil
}

// ReadMetrics returns the metric values of title at date ordered by
// (section_id, metric_id).
func (s *Store) ReadMetrics(ctx context.Context, title int, date time.Time) ([]cfr.MetricRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title_id, issue_date, section_id, metric_id, value
		FROM cfr_metrics
		WHERE title_id = ? AND issue_date = ?
		ORDER BY section_id COLLATE BINARY ASC, metric_id ASC
	`, title, cfr.FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	records := []cfr.MetricRecord{}
	for rows.Next() {
		var (
			r   cfr.MetricRecord
			raw string
		)
		if err := rows.Scan(&r.Title, &raw, &r.SectionID, &r.MetricID, &r.Value); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		if r.Date, err = parseIssueDate(raw); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	return records, nil
}

// AgencySlugsByChapter maps each chapter of title to the agency it is
// attributed to. When several agencies reference the same chapter the one
// with the lowest slug wins.
func (s *Store) AgencySlugsByChapter(ctx context.Context, title int) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chapter, MIN(agency_slug)
		FROM cfr_references
		WHERE title_id = ? AND chapter != ''
		GROUP BY chapter
	`, title)
	if err != nil {
		return nil, fmt.Errorf("query agency chapters: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var chapter, slug string
		if err := rows.Scan(&chapter, &slug); err != nil {
			return nil, fmt.Errorf("scan agency chapter: %w", err)
		}
		out[chapter] = slug
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agency chapters: %w", err)
	}
	return out, nil
}

// AgencySlugsByShortName maps agency short names to slugs. Agencies without a
// short name are omitted.
func (s *Store) AgencySlugsByShortName(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT short_name, MIN(slug)
		FROM agencies
		WHERE short_name != ''
		GROUP BY short_name
	`)
	if err != nil {
		return nil, fmt.Errorf("query agency short names: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var short, slug string
		if err := rows.Scan(&short, &slug); err != nil {
			return nil, fmt.Errorf("scan agency short name: %w", err)
		}
		out[short] = slug
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agency short names: %w", err)
	}
	return out, nil
}

// ReadAgencies returns all agencies ordered by slug, flat, each with its own
// references ordered by insertion.
func (s *Store) ReadAgencies(ctx context.Context) ([]cfr.Agency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, name, short_name, display_name, sortable_name, parent_slug
		FROM agencies
		ORDER BY slug COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query agencies: %w", err)
	}

	agencies := []cfr.Agency{}
	index := make(map[string]int)
	for rows.Next() {
		var a cfr.Agency
		if err := rows.Scan(&a.Slug, &a.Name, &a.ShortName, &a.DisplayName, &a.SortableName, &a.ParentSlug); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan agency: %w", err)
		}
		index[a.Slug] = len(agencies)
		agencies = append(agencies, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate agencies: %w", err)
	}
	rows.Close()

	// Single connection: the agency cursor must be closed before the next query.
	refRows, err := s.db.QueryContext(ctx, `
		SELECT agency_slug, title_id, subtitle, chapter, subchapter, part
		FROM cfr_references
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query references: %w", err)
	}
	defer refRows.Close()

	for refRows.Next() {
		var ref cfr.CFRReference
		if err := refRows.Scan(&ref.AgencySlug, &ref.Title, &ref.Subtitle, &ref.Chapter, &ref.Subchapter, &ref.Part); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		if i, ok := index[ref.AgencySlug]; ok {
			agencies[i].References = append(agencies[i].References, ref)
		}
	}
	if err := refRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}
	return agencies, nil
}

// ReadTitles returns all titles ordered by number.
func (s *Store) ReadTitles(ctx context.Context) ([]cfr.Title, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, name, latest_amended_on, latest_issue_date, up_to_date_as_of, reserved
		FROM titles
		ORDER BY number ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query titles: %w", err)
	}
	defer rows.Close()

	titles := []cfr.Title{}
	for rows.Next() {
		var (
			t        cfr.Title
			reserved int
		)
		if err := rows.Scan(&t.Number, &t.Name, &t.LatestAmendedOn, &t.LatestIssueDate, &t.UpToDateAsOf, &reserved); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		t.Reserved = reserved != 0
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}
	return titles, nil
}

// ReadRuns returns the most recent runs, newest first. limit <= 0 returns
// every run.
func (s *Store) ReadRuns(ctx context.Context, limit int) ([]cfr.Run, error) {
	query := `
		SELECT id, kind, title_id, start_date, end_date, accepted, skipped, written, discarded, finished_at
		FROM runs
		ORDER BY finished_at DESC, id COLLATE BINARY DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []cfr.Run{}
	for rows.Next() {
		var (
			r                     cfr.Run
			kind, start, end, fin string
		)
		if err := rows.Scan(&r.ID, &kind, &r.Title, &start, &end,
			&r.Accepted, &r.Skipped, &r.Written, &r.Discarded, &fin); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Kind = cfr.RunKind(kind)
		if r.Start, err = parseIssueDate(start); err != nil {
			return nil, err
		}
		if r.End, err = parseIssueDate(end); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTimestamp(fin); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Counts summarizes table sizes.
type Counts struct {
	Sections   int `json:"sections"`
	Dimensions int `json:"dimensions"`
	Metrics    int `json:"metrics"`
	Agencies   int `json:"agencies"`
	Titles     int `json:"titles"`
	Runs       int `json:"runs"`
}

// Counts returns the number of rows in each table.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	targets := []struct {
		table string
		dst   *int
	}{
		{"cfr_texts", &c.Sections},
		{"cfr_dimensions", &c.Dimensions},
		{"cfr_metrics", &c.Metrics},
		{"agencies", &c.Agencies},
		{"titles", &c.Titles},
		{"runs", &c.Runs},
	}
	for _, t := range targets {
		// Table names come from the fixed list above.
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return Counts{}, fmt.Errorf("count %s: %w", t.table, err)
		}
	}
	return c, nil
}
