package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/engine"
)

// RollupOptions holds flags for the rollup command.
type RollupOptions struct {
	*RootOptions
	Metric   string
	Level    string
	Agencies []string
	Start    string
	End      string
}

// NewRollupCommand creates the rollup command.
func NewRollupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RollupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rollup",
		Short: "Sum a metric by agency and hierarchy level",
		Long: `Sum one metric over the sections attributed to the given agencies,
grouped by agency, title, the chosen hierarchy level and issue date.

--metric accepts a catalog id, machine name or display name. --level accepts
title, chapter, subchapter, part, subpart or section (or 0-5). --agency takes
agency short names; unknown names are reported, not dropped.

Example:
  cfrstat rollup --metric word_count --level part --agency USDA --start 2024-01-01 --end 2024-12-31`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollup(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Metric, "metric", "m", "", "metric id or name (required)")
	cmd.Flags().StringVarP(&opts.Level, "level", "l", "", "hierarchy level (required)")
	cmd.Flags().StringSliceVarP(&opts.Agencies, "agency", "a", nil, "agency short names, comma-separated or repeated (required)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "first issue date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&opts.End, "end", "", "last issue date YYYY-MM-DD (required)")
	for _, name := range []string{"metric", "level", "agency", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runRollup(opts *RollupOptions, cmd *cobra.Command) error {
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

	rows, err := newEngine(opts.RootOptions, st).Rollup(commandContext(cmd), engine.RollupRequest{
		Metric:   opts.Metric,
		Agencies: opts.Agencies,
		Level:    opts.Level,
		Start:    start,
		End:      end,
	})
	if err != nil {
		return wrapEngineError("rollup failed", err)
	}

	f := newFormatter(opts.RootOptions, cmd)
	if f.IsJSON() {
		return f.Success(rows)
	}
	printRollupRows(cmd.OutOrStdout(), rows)
	return nil
}

func printRollupRows(w io.Writer, rows []cfr.RollupRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No rows.")
		return
	}
	fmt.Fprintf(w, "%-32s %5s %-12s %-40s %-10s %s\n", "AGENCY", "TITLE", "LEVEL", "VALUE", "DATE", "SUM")
	for _, r := range rows {
		fmt.Fprintf(w, "%-32s %5d %-12s %-40s %-10s %s\n",
			r.AgencySlug, r.Title, r.LevelName, r.LevelValue, cfr.FormatDate(r.Date),
			strconv.FormatFloat(r.Value, 'f', -1, 64))
	}
}
