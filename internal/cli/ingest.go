package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/engine"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Title  int
	Date   string
	File   string
	Reload bool
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Store the sections of one title at one issue date",
		Long: `Traverse a title XML document and store its sections with their
hierarchy and agency attribution.

Without --file the document is taken from the data directory, downloading
it first when missing. Sections already stored for the title and date are
skipped, so ingesting the same document twice writes nothing the second
time. --reload deletes the stored sections, dimensions and metric values for
the title and date first.

Example:
  cfrstat ingest --title 7 --date 2024-01-01
  cfrstat ingest --title 7 --date 2024-01-01 --file ./title-7.xml --reload`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Title, "title", 0, "title number (required)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "issue date YYYY-MM-DD (required)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read XML from this file instead of the data directory")
	cmd.Flags().BoolVar(&opts.Reload, "reload", false, "clear stored data for the title and date first")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func runIngest(opts *IngestOptions, cmd *cobra.Command) error {
	if err := requireTitle(opts.Title); err != nil {
		return err
	}
	date, err := parseDateFlag("date", opts.Date)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	path := opts.File
	if path == "" {
		path, err = newClient(opts.RootOptions).FetchTitleXML(ctx, opts.Title, date)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to fetch title XML", err)
		}
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(opts.RootOptions, st)
	eng := newEngine(opts.RootOptions, st)

	f := newFormatter(opts.RootOptions, cmd)
	f.VerboseLog("ingesting %s", path)

	var stats engine.IngestStats
	if opts.Reload {
		stats, err = eng.ReloadFile(ctx, opts.Title, date, path)
	} else {
		stats, err = eng.IngestFile(ctx, opts.Title, date, path)
	}
	if err != nil {
		return wrapEngineError("ingest failed", err)
	}

	if f.IsJSON() {
		if err := f.Success(stats); err != nil {
			return err
		}
	} else {
		printIngestStats(cmd.OutOrStdout(), stats)
	}
	if stats.Discarded > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d sections discarded by failed batches", stats.Discarded))
	}
	return nil
}

func printIngestStats(w io.Writer, s engine.IngestStats) {
	fmt.Fprintf(w, "Ingested title %d at %s (run %s)\n", s.Title, cfr.FormatDate(s.Date), s.RunID)
	if s.Cleared > 0 {
		fmt.Fprintf(w, "  Cleared:      %d\n", s.Cleared)
	}
	fmt.Fprintf(w, "  Parsed:       %d\n", s.Parsed)
	fmt.Fprintf(w, "  Accepted:     %d\n", s.Accepted)
	fmt.Fprintf(w, "  Skipped:      %d\n", s.Skipped)
	fmt.Fprintf(w, "  Written:      %d\n", s.Written)
	fmt.Fprintf(w, "  Discarded:    %d\n", s.Discarded)
	fmt.Fprintf(w, "  Unattributed: %d\n", s.Unattributed)
}
