package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/cfrstat/internal/cfr"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	Title int
	Dates []string
}

// FetchResult is the JSON rendering of one fetched date.
type FetchResult struct {
	Date   string `json:"date"`
	Path   string `json:"path,omitempty"`
	Cached bool   `json:"cached"`
	Error  string `json:"error,omitempty"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download title XML into the data directory",
		Long: `Download the XML of a title at one or more issue dates.

Files already present in the data directory are not downloaded again.
Downloads run concurrently, bounded by fetch.concurrency and
fetch.requests_per_second. A failed date does not stop the others, but makes
the command exit with status 1.

Example:
  cfrstat fetch --title 7 --date 2024-01-01 --date 2024-02-01`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Title, "title", 0, "title number (required)")
	cmd.Flags().StringArrayVar(&opts.Dates, "date", nil, "issue date YYYY-MM-DD (repeatable, required)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func runFetch(opts *FetchOptions, cmd *cobra.Command) error {
	if err := requireTitle(opts.Title); err != nil {
		return err
	}
	dates := make([]time.Time, 0, len(opts.Dates))
	for _, raw := range opts.Dates {
		d, err := parseDateFlag("date", raw)
		if err != nil {
			return err
		}
		dates = append(dates, d)
	}

	client := newClient(opts.RootOptions)
	results := client.Prefetch(commandContext(cmd), opts.Title, dates)

	out := make([]FetchResult, len(results))
	failed := 0
	for i, r := range results {
		out[i] = FetchResult{Date: cfr.FormatDate(r.Date), Path: r.Path, Cached: r.Cached}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
			failed++
			opts.Logger.Warn("fetch failed",
				zap.Int("title", opts.Title),
				zap.String("date", out[i].Date),
				zap.Error(r.Err))
		}
	}

	f := newFormatter(opts.RootOptions, cmd)
	if f.IsJSON() {
		if err := f.Success(out); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, r := range out {
			switch {
			case r.Error != "":
				fmt.Fprintf(w, "%s  FAILED      %s\n", r.Date, r.Error)
			case r.Cached:
				fmt.Fprintf(w, "%s  cached      %s\n", r.Date, r.Path)
			default:
				fmt.Fprintf(w, "%s  downloaded  %s\n", r.Date, r.Path)
			}
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d dates failed", failed, len(out)))
	}
	return nil
}
