package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/document"
	"github.com/roach88/cfrstat/internal/traverse"
)

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	RunID string    `json:"run_id"`
	Title int       `json:"title"`
	Date  time.Time `json:"date"`

	// Parsed counts every section emitted by traversal.
	Parsed int `json:"parsed"`
	// Accepted counts sections not previously stored for (title, date).
	Accepted int `json:"accepted"`
	// Skipped counts sections already stored, or repeated in the document.
	Skipped   int `json:"skipped"`
	Written   int `json:"written"`
	Discarded int `json:"discarded"`
	// Unattributed counts accepted sections whose chapter has no agency.
	Unattributed int `json:"unattributed"`
	// Cleared counts sections deleted first by Reload.
	Cleared int `json:"cleared,omitempty"`
}

// SeenSet tracks the section identifiers already stored or accepted for one
// (title, date) pair.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet wraps ids, typically the result of Store.SectionIDs. The map is
// owned by the SeenSet afterwards.
func NewSeenSet(ids map[string]struct{}) *SeenSet {
	if ids == nil {
		ids = make(map[string]struct{})
	}
	return &SeenSet{ids: ids}
}

// Accept reports whether id is new, and records it.
func (s *SeenSet) Accept(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the number of identifiers in the set.
func (s *SeenSet) Len() int {
	return len(s.ids)
}

type sectionRow struct {
	text cfr.Section
	dim  cfr.Dimension
}

// IngestDocument stores the sections of root as title at date.
//
// Sections already stored for (title, date) are skipped, as is any repeat of
// a section identifier within the document; the first occurrence wins.
// Calling IngestDocument again with the same document changes nothing.
//
// Returns an *InputError with MALFORMED_DOCUMENT when the hierarchy cannot be
// reconstructed and TITLE_MISMATCH when the document belongs to another
// title. Both are detected before anything is written.
func (e *Engine) IngestDocument(ctx context.Context, title int, date time.Time, root *document.Node) (IngestStats, error) {
	date = cfr.DayOf(date)
	stats := IngestStats{Title: title, Date: date}
	if root == nil {
		return stats, newInputError(ErrCodeMalformedDocument, "", "document has no root element")
	}

	existing, err := e.store.SectionIDs(ctx, title, date)
	if err != nil {
		return stats, fmt.Errorf("ingest title %d: %w", title, err)
	}
	seen := NewSeenSet(existing)

	chapters, err := e.store.AgencySlugsByChapter(ctx, title)
	if err != nil {
		return stats, fmt.Errorf("ingest title %d: %w", title, err)
	}

	log := e.logger.With(zap.Int("title", title), zap.String("date", cfr.FormatDate(date)))
	log.Debug("ingest started", zap.Int("already_stored", seen.Len()))

	batch := newBatcher(e.ingestBatchSize,
		func(ctx context.Context, rows []sectionRow) error {
			texts := make([]cfr.Section, len(rows))
			dims := make([]cfr.Dimension, len(rows))
			for i, r := range rows {
				texts[i] = r.text
				dims[i] = r.dim
			}
			if err := e.store.InsertSections(ctx, texts, dims); err != nil {
				return err
			}
			log.Debug("flushed section batch", zap.Int("size", len(rows)))
			return nil
		},
		func(rows []sectionRow, err error) {
			batchesDiscarded.WithLabelValues("sections").Inc()
			log.Warn("discarded section batch",
				zap.Int("size", len(rows)),
				zap.String("first_section", rows[0].text.SectionID),
				zap.Error(err))
		},
	)

	titleID := strconv.Itoa(title)
	warned := make(map[string]bool)

	var pending []sectionRow
	t := traverse.New(root)
	for t.Next() {
		sec := t.Section()
		stats.Parsed++

		if docTitle, ok := sec.Context.ID(cfr.LevelTitle); ok && docTitle != titleID {
			return stats, newInputError(ErrCodeTitleMismatch, docTitle,
				"document is title %s, ingested as title %d", docTitle, title)
		}

		id := sec.ID()
		if !seen.Accept(id) {
			stats.Skipped++
			continue
		}
		stats.Accepted++

		chapter := sec.Context.IDOrEmpty(cfr.LevelChapter)
		slug, ok := chapters[chapter]
		if !ok {
			stats.Unattributed++
			if !warned[chapter] {
				warned[chapter] = true
				log.Warn("no agency for chapter", zap.String("chapter", chapter))
			}
		}

		pending = append(pending, sectionRow{
			text: cfr.NewSection(title, date, id, sec.Text),
			dim:  cfr.NewDimension(title, date, sec.Context, slug),
		})
	}
	if err := t.Err(); err != nil {
		return stats, malformed(err)
	}

	// Nothing is written until the whole document has traversed cleanly.
	for _, row := range pending {
		if err := batch.Add(ctx, row); err != nil {
			return stats, err
		}
	}
	if err := batch.Flush(ctx); err != nil {
		return stats, err
	}

	stats.Written = batch.written
	stats.Discarded = batch.discarded
	sectionsIngested.Add(float64(stats.Written))
	sectionsSkipped.Add(float64(stats.Skipped))

	stats.RunID = e.recordRun(ctx, cfr.Run{
		Kind:      cfr.RunKindIngest,
		Title:     title,
		Start:     date,
		End:       date,
		Accepted:  stats.Accepted,
		Skipped:   stats.Skipped,
		Written:   stats.Written,
		Discarded: stats.Discarded,
	})

	log.Info("ingest finished",
		zap.Int("parsed", stats.Parsed),
		zap.Int("accepted", stats.Accepted),
		zap.Int("skipped", stats.Skipped),
		zap.Int("written", stats.Written),
		zap.Int("discarded", stats.Discarded),
		zap.Int("unattributed", stats.Unattributed))
	return stats, nil
}

// IngestFile parses the document at path and ingests it.
// Parse failures are reported as MALFORMED_DOCUMENT.
func (e *Engine) IngestFile(ctx context.Context, title int, date time.Time, path string) (IngestStats, error) {
	root, err := document.ParseFile(path)
	if err != nil {
		return IngestStats{Title: title, Date: cfr.DayOf(date)}, malformed(err)
	}
	return e.IngestDocument(ctx, title, date, root)
}

// Reload deletes everything stored for (title, date), metric values
// included, and ingests root in its place.
func (e *Engine) Reload(ctx context.Context, title int, date time.Time, root *document.Node) (IngestStats, error) {
	date = cfr.DayOf(date)
	if root == nil {
		return IngestStats{Title: title, Date: date},
			newInputError(ErrCodeMalformedDocument, "", "document has no root element")
	}

	cleared, err := e.store.ClearTitleDate(ctx, title, date)
	if err != nil {
		return IngestStats{Title: title, Date: date}, fmt.Errorf("reload title %d: %w", title, err)
	}
	e.logger.Info("cleared title date",
		zap.Int("title", title),
		zap.String("date", cfr.FormatDate(date)),
		zap.Int("sections", cleared))

	stats, err := e.IngestDocument(ctx, title, date, root)
	stats.Cleared = cleared
	return stats, err
}

// ReloadFile parses the document at path and reloads it.
func (e *Engine) ReloadFile(ctx context.Context, title int, date time.Time, path string) (IngestStats, error) {
	root, err := document.ParseFile(path)
	if err != nil {
		return IngestStats{Title: title, Date: cfr.DayOf(date)}, malformed(err)
	}
	return e.Reload(ctx, title, date, root)
}
