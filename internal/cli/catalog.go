package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/metric"
)

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the metric catalog",
		Long: `List every metric with its stable id, machine name and display name.
Any of the three can be passed to rollup --metric.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(rootOpts, cmd)
		},
	}
}

func runCatalog(opts *RootOptions, cmd *cobra.Command) error {
	metrics := metric.Default().All()

	f := newFormatter(opts, cmd)
	if f.IsJSON() {
		return f.Success(metrics)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%3s %-24s %s\n", "ID", "NAME", "DISPLAY NAME")
	for _, m := range metrics {
		fmt.Fprintf(w, "%3d %-24s %s\n", m.ID, m.Name, m.DisplayName)
	}
	return nil
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent ingest and compute runs",
		Long: `List the most recent ingest and compute runs, newest first.

Example:
  cfrstat runs --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(rootOpts, limit, cmd)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 for all)")
	return cmd
}

func runRuns(opts *RootOptions, limit int, cmd *cobra.Command) error {
	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore(opts, st)

	runs, err := st.ReadRuns(commandContext(cmd), limit)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read runs", err)
	}

	f := newFormatter(opts, cmd)
	if f.IsJSON() {
		return f.Success(runs)
	}
	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs.")
		return nil
	}
	fmt.Fprintf(w, "%-36s %-8s %5s %-10s %-10s %8s %8s %8s %9s\n",
		"ID", "KIND", "TITLE", "START", "END", "ACCEPTED", "SKIPPED", "WRITTEN", "DISCARDED")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s %-8s %5d %-10s %-10s %8d %8d %8d %9d\n",
			r.ID, r.Kind, r.Title, cfr.FormatDate(r.Start), cfr.FormatDate(r.End),
			r.Accepted, r.Skipped, r.Written, r.Discarded)
	}
	return nil
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show row counts of the database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore(opts, st)

	counts, err := st.Counts(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to count rows", err)
	}

	f := newFormatter(opts, cmd)
	if f.IsJSON() {
		return f.Success(counts)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Database: %s\n", opts.Config.Database)
	fmt.Fprintf(w, "  Sections:   %d\n", counts.Sections)
	fmt.Fprintf(w, "  Dimensions: %d\n", counts.Dimensions)
	fmt.Fprintf(w, "  Metrics:    %d\n", counts.Metrics)
	fmt.Fprintf(w, "  Agencies:   %d\n", counts.Agencies)
	fmt.Fprintf(w, "  Titles:     %d\n", counts.Titles)
	fmt.Fprintf(w, "  Runs:       %d\n", counts.Runs)
	return nil
}
