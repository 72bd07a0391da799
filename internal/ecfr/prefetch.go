package ecfr

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/cfrstat/internal/cfr"
)

// PrefetchResult is the outcome of acquiring one date.
type PrefetchResult struct {
	Date   time.Time `json:"date"`
	Path   string    `json:"path,omitempty"`
	Cached bool      `json:"cached"`
	Err    error     `json:"-"`
}

// Prefetch acquires the XML of title at every date, at most the configured
// number at once. Results are in the order of dates. A failed date does not
// stop the others; only ctx cancellation does.
func (c *Client) Prefetch(ctx context.Context, title int, dates []time.Time) []PrefetchResult {
	results := make([]PrefetchResult, len(dates))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, date := range dates {
		results[i].Date = cfr.DayOf(date)
		g.Go(func() error {
			path, cached, err := c.fetchTitleXML(ctx, title, date)
			results[i].Path = path
			results[i].Cached = cached
			results[i].Err = err
			if err != nil {
				c.logger.Warn("prefetch failed",
					zap.Int("title", title),
					zap.String("date", cfr.FormatDate(date)),
					zap.Error(err))
			}
			return nil
		})
	}
	g.Wait()
	return results
}
