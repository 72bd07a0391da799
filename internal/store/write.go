package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/cfrstat/internal/cfr"
)

// InsertSections writes one batch of sections and their dimensions in a
// single transaction.
//
// texts and dims are parallel: dims[i] describes texts[i]. Inserts are plain
// INSERT, so a key that already exists fails the batch and nothing from it
// is kept. Callers deduplicate against SectionIDs first.
func (s *Store) InsertSections(ctx context.Context, texts []cfr.Section, dims []cfr.Dimension) error {
	if len(texts) != len(dims) {
		return fmt.Errorf("insert sections: %d texts but %d dimensions", len(texts), len(dims))
	}
	if len(texts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert sections: begin: %w", err)
	}
	defer tx.Rollback()

	textStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cfr_texts (title_id, issue_date, section_id, content, content_hash)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert sections: prepare texts: %w", err)
	}
	defer textStmt.Close()

	dimStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cfr_dimensions
		(title_id, issue_date, section_id, chapter_id, subchapter_id, part_id, subpart_id, agency_slug,
		 title_label, chapter_label, subchapter_label, part_label, subpart_label, section_label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert sections: prepare dimensions: %w", err)
	}
	defer dimStmt.Close()

	for i, sec := range texts {
		if _, err := textStmt.ExecContext(ctx,
			sec.Title,
			cfr.FormatDate(sec.Date),
			sec.SectionID,
			sec.Content,
			sec.ContentHash,
		); err != nil {
			return fmt.Errorf("insert section %d/%s/%s: %w", sec.Title, cfr.FormatDate(sec.Date), sec.SectionID, err)
		}

		d := dims[i]
		if _, err := dimStmt.ExecContext(ctx,
			d.Title,
			cfr.FormatDate(d.Date),
			d.SectionID,
			d.ChapterID,
			d.SubchapterID,
			d.PartID,
			d.SubpartID,
			d.AgencySlug,
			nullableLabel(d.TitleLabel),
			nullableLabel(d.ChapterLabel),
			nullableLabel(d.SubchapterLabel),
			nullableLabel(d.PartLabel),
			nullableLabel(d.SubpartLabel),
			nullableLabel(d.SectionLabel),
		); err != nil {
			return fmt.Errorf("insert dimension %d/%s/%s: %w", d.Title, cfr.FormatDate(d.Date), d.SectionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert sections: commit: %w", err)
	}
	return nil
}

// InsertMetrics writes one batch of metric values in a single transaction.
// As with InsertSections, an existing key fails the whole batch.
func (s *Store) InsertMetrics(ctx context.Context, records []cfr.MetricRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert metrics: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cfr_metrics (title_id, issue_date, section_id, metric_id, value)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert metrics: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Title,
			cfr.FormatDate(r.Date),
			r.SectionID,
			r.MetricID,
			r.Value,
		); err != nil {
			return fmt.Errorf("insert metric %d for %d/%s/%s: %w",
				r.MetricID, r.Title, cfr.FormatDate(r.Date), r.SectionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert metrics: commit: %w", err)
	}
	return nil
}

// ClearTitleDate deletes every section, dimension and metric value of one
// title at one issue date. Returns the number of sections removed.
func (s *Store) ClearTitleDate(ctx context.Context, title int, date time.Time) (int, error) {
	day := cfr.FormatDate(date)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("clear title date: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cfr_metrics WHERE title_id = ? AND issue_date = ?`, title, day); err != nil {
		return 0, fmt.Errorf("clear metrics: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cfr_dimensions WHERE title_id = ? AND issue_date = ?`, title, day); err != nil {
		return 0, fmt.Errorf("clear dimensions: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM cfr_texts WHERE title_id = ? AND issue_date = ?`, title, day)
	if err != nil {
		return 0, fmt.Errorf("clear texts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear texts: rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("clear title date: commit: %w", err)
	}
	return int(n), nil
}

// ReplaceAgencies replaces all agency reference data with agencies and their
// descendants. Child agencies are stored with their parent's slug.
//
// When a slug appears more than once the first occurrence wins.
func (s *Store) ReplaceAgencies(ctx context.Context, agencies []cfr.Agency) (int, error) {
	var flat []cfr.Agency
	for _, a := range agencies {
		flat = append(flat, a.Flatten()...)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("replace agencies: begin: %w", err)
	}
	defer tx.Rollback()

	// cfr_references cascade.
	if _, err := tx.ExecContext(ctx, `DELETE FROM agencies`); err != nil {
		return 0, fmt.Errorf("replace agencies: clear: %w", err)
	}

	agencyStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO agencies (slug, name, short_name, display_name, sortable_name, parent_slug)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("replace agencies: prepare: %w", err)
	}
	defer agencyStmt.Close()

	refStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cfr_references (agency_slug, title_id, subtitle, chapter, subchapter, part)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("replace agencies: prepare references: %w", err)
	}
	defer refStmt.Close()

	written := 0
	for _, a := range flat {
		if a.Slug == "" {
			return 0, fmt.Errorf("replace agencies: agency %q has no slug", a.Name)
		}
		res, err := agencyStmt.ExecContext(ctx,
			a.Slug, a.Name, a.ShortName, a.DisplayName, a.SortableName, a.ParentSlug)
		if err != nil {
			return 0, fmt.Errorf("write agency %s: %w", a.Slug, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("write agency %s: %w", a.Slug, err)
		}
		if n == 0 {
			continue
		}
		written++

		for _, ref := range a.References {
			if _, err := refStmt.ExecContext(ctx,
				a.Slug, ref.Title, ref.Subtitle, ref.Chapter, ref.Subchapter, ref.Part); err != nil {
				return 0, fmt.Errorf("write reference for %s: %w", a.Slug, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("replace agencies: commit: %w", err)
	}
	return written, nil
}

// ReplaceTitles replaces all title reference data.
func (s *Store) ReplaceTitles(ctx context.Context, titles []cfr.Title) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace titles: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM titles`); err != nil {
		return fmt.Errorf("replace titles: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO titles (number, name, latest_amended_on, latest_issue_date, up_to_date_as_of, reserved)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			name = excluded.name,
			latest_amended_on = excluded.latest_amended_on,
			latest_issue_date = excluded.latest_issue_date,
			up_to_date_as_of = excluded.up_to_date_as_of,
			reserved = excluded.reserved
	`)
	if err != nil {
		return fmt.Errorf("replace titles: prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range titles {
		if _, err := stmt.ExecContext(ctx,
			t.Number, t.Name, t.LatestAmendedOn, t.LatestIssueDate, t.UpToDateAsOf, boolToInt(t.Reserved)); err != nil {
			return fmt.Errorf("write title %d: %w", t.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace titles: commit: %w", err)
	}
	return nil
}

// WriteRun records a finished ingest or compute run.
// Uses ON CONFLICT(id) DO NOTHING - rewriting the same run is a no-op.
func (s *Store) WriteRun(ctx context.Context, run cfr.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, kind, title_id, start_date, end_date, accepted, skipped, written, discarded, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		string(run.Kind),
		run.Title,
		cfr.FormatDate(run.Start),
		cfr.FormatDate(run.End),
		run.Accepted,
		run.Skipped,
		run.Written,
		run.Discarded,
		formatTimestamp(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}
