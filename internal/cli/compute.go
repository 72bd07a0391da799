package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/engine"
)

// ComputeOptions holds flags for the compute command.
type ComputeOptions struct {
	*RootOptions
	Title int
	Start string
	End   string
}

// NewComputeCommand creates the compute command.
func NewComputeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComputeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute catalog metrics for stored sections",
		Long: `Compute every catalog metric for every stored section of a title on
every issue date in [start, end].

Values already stored are skipped, so overlapping or repeated runs compute
only what is missing.

Example:
  cfrstat compute --title 7 --start 2024-01-01 --end 2024-12-31`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Title, "title", 0, "title number (required)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "first issue date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&opts.End, "end", "", "last issue date YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func runCompute(opts *ComputeOptions, cmd *cobra.Command) error {
	if err := requireTitle(opts.Title); err != nil {
		return err
	}
	start, err := parseDateFlag("start", opts.Start)
	if err != nil {
		return err
	}
	end, err := parseDateFlag("end", opts.End)
	if err != nil {
		return err
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(opts.RootOptions, st)

	stats, err := newEngine(opts.RootOptions, st).ComputeMetrics(commandContext(cmd), opts.Title, start, end)
	if err != nil {
		return wrapEngineError("compute failed", err)
	}

	f := newFormatter(opts.RootOptions, cmd)
	if f.IsJSON() {
		if err := f.Success(stats); err != nil {
			return err
		}
	} else {
		printComputeStats(cmd.OutOrStdout(), stats)
	}
	if stats.Discarded > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d metric values discarded by failed batches", stats.Discarded))
	}
	return nil
}

func printComputeStats(w io.Writer, s engine.ComputeStats) {
	fmt.Fprintf(w, "Computed title %d from %s to %s (run %s)\n",
		s.Title, cfr.FormatDate(s.Start), cfr.FormatDate(s.End), s.RunID)
	fmt.Fprintf(w, "  Dates:     %d\n", s.Dates)
	fmt.Fprintf(w, "  Sections:  %d\n", s.Sections)
	fmt.Fprintf(w, "  Computed:  %d\n", s.Computed)
	fmt.Fprintf(w, "  Skipped:   %d\n", s.Skipped)
	fmt.Fprintf(w, "  Written:   %d\n", s.Written)
	fmt.Fprintf(w, "  Discarded: %d\n", s.Discarded)
}
