package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/cfrstat/internal/cfr"
)

// ComputeStats summarizes one metric computation run.
type ComputeStats struct {
	RunID string    `json:"run_id"`
	Title int       `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Dates counts issue dates in range with stored sections.
	Dates    int `json:"dates"`
	Sections int `json:"sections"`
	// Computed counts metric values calculated in this run.
	Computed int `json:"computed"`
	// Skipped counts (section, metric) keys already stored.
	Skipped   int `json:"skipped"`
	Written   int `json:"written"`
	Discarded int `json:"discarded"`
}

// ComputeMetrics computes every catalog metric for every stored section of
// title on every issue date in [start, end], skipping keys already stored.
//
// Running it again over the same range computes nothing. After a failure,
// batches already flushed stay committed and a retry fills in the rest.
func (e *Engine) ComputeMetrics(ctx context.Context, title int, start, end time.Time) (ComputeStats, error) {
	r, err := cfr.NewDateRange(start, end)
	if err != nil {
		return ComputeStats{Title: title}, &InputError{Code: ErrCodeInvalidRange, Message: err.Error(), err: err}
	}
	stats := ComputeStats{Title: title, Start: r.Start, End: r.End}

	log := e.logger.With(
		zap.Int("title", title),
		zap.String("start", cfr.FormatDate(r.Start)),
		zap.String("end", cfr.FormatDate(r.End)))

	dates, err := e.store.IssueDates(ctx, title, r.Start, r.End)
	if err != nil {
		return stats, fmt.Errorf("compute title %d: %w", title, err)
	}

	batch := newBatcher(e.computeBatchSize,
		func(ctx context.Context, records []cfr.MetricRecord) error {
			if err := e.store.InsertMetrics(ctx, records); err != nil {
				return err
			}
			log.Debug("flushed metric batch", zap.Int("size", len(records)))
			return nil
		},
		func(records []cfr.MetricRecord, err error) {
			batchesDiscarded.WithLabelValues("metrics").Inc()
			log.Warn("discarded metric batch",
				zap.Int("size", len(records)),
				zap.String("first_date", cfr.FormatDate(records[0].Date)),
				zap.String("first_section", records[0].SectionID),
				zap.Error(err))
		},
	)

	metrics := e.catalog.All()
	for _, date := range dates {
		stats.Dates++

		existing, err := e.store.MetricKeys(ctx, title, date)
		if err != nil {
			return stats, fmt.Errorf("compute title %d at %s: %w", title, cfr.FormatDate(date), err)
		}
		sections, err := e.store.ReadSections(ctx, title, date)
		if err != nil {
			return stats, fmt.Errorf("compute title %d at %s: %w", title, cfr.FormatDate(date), err)
		}

		for _, sec := range sections {
			stats.Sections++
			for _, m := range metrics {
				rec := cfr.MetricRecord{Title: title, Date: date, SectionID: sec.SectionID, MetricID: m.ID}
				if _, done := existing[rec.Key()]; done {
					stats.Skipped++
					continue
				}
				rec.Value = m.Compute(sec.Content)
				stats.Computed++
				if err := batch.Add(ctx, rec); err != nil {
					return stats, err
				}
			}
		}
	}
	if err := batch.Flush(ctx); err != nil {
		return stats, err
	}

	stats.Written = batch.written
	stats.Discarded = batch.discarded
	metricValuesComputed.Add(float64(stats.Written))

	stats.RunID = e.recordRun(ctx, cfr.Run{
		Kind:      cfr.RunKindCompute,
		Title:     title,
		Start:     r.Start,
		End:       r.End,
		Accepted:  stats.Computed,
		Skipped:   stats.Skipped,
		Written:   stats.Written,
		Discarded: stats.Discarded,
	})

	log.Info("compute finished",
		zap.Int("dates", stats.Dates),
		zap.Int("sections", stats.Sections),
		zap.Int("computed", stats.Computed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("written", stats.Written),
		zap.Int("discarded", stats.Discarded))
	return stats, nil
}
