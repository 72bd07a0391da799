package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/ecfr"
)

// ReferenceOptions holds flags for the agencies and titles load commands.
type ReferenceOptions struct {
	*RootOptions
	File string
}

// NewAgenciesCommand creates the agencies command group.
func NewAgenciesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agencies",
		Short: "Manage agency reference data",
	}
	cmd.AddCommand(newAgenciesLoadCommand(rootOpts))
	cmd.AddCommand(newAgenciesListCommand(rootOpts))
	return cmd
}

func newAgenciesLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReferenceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Replace stored agencies with agencies.json",
		Long: `Replace the stored agencies and their CFR references.

Without --file the list is downloaded from the eCFR admin API. Agencies are
used to attribute ingested chapters and to resolve rollup short names, so
load them before ingesting.

Example:
  cfrstat agencies load
  cfrstat agencies load --file ./agencies.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgenciesLoad(opts, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read agencies.json from this file instead of downloading")
	return cmd
}

func runAgenciesLoad(opts *ReferenceOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	agencies, err := loadReference(ctx, opts, ecfr.LoadAgenciesFile, (*ecfr.Client).FetchAgencies)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read agencies", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(opts.RootOptions, st)

	n, err := st.ReplaceAgencies(ctx, agencies)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to store agencies", err)
	}
	opts.Logger.Info("agencies loaded", zap.Int("agencies", n))

	f := newFormatter(opts.RootOptions, cmd)
	if f.IsJSON() {
		return f.Success(map[string]int{"agencies": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d agencies.\n", n)
	return nil
}

func newAgenciesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored agencies",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgenciesList(rootOpts, cmd)
		},
	}
}

func runAgenciesList(opts *RootOptions, cmd *cobra.Command) error {
	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore(opts, st)

	agencies, err := st.ReadAgencies(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read agencies", err)
	}

	f := newFormatter(opts, cmd)
	if f.IsJSON() {
		return f.Success(agencies)
	}
	printAgencies(cmd.OutOrStdout(), agencies)
	return nil
}

func printAgencies(w io.Writer, agencies []cfr.Agency) {
	if len(agencies) == 0 {
		fmt.Fprintln(w, "No agencies.")
		return
	}
	fmt.Fprintf(w, "%-40s %-12s %s\n", "SLUG", "SHORT NAME", "CHAPTERS")
	for _, a := range agencies {
		chapters := ""
		for i, ref := range a.References {
			if i > 0 {
				chapters += ", "
			}
			chapters += fmt.Sprintf("%d/%s", ref.Title, ref.Chapter)
		}
		fmt.Fprintf(w, "%-40s %-12s %s\n", a.Slug, a.ShortName, chapters)
	}
}

// NewTitlesCommand creates the titles command group.
func NewTitlesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "titles",
		Short: "Manage title reference data",
	}
	cmd.AddCommand(newTitlesLoadCommand(rootOpts))
	cmd.AddCommand(newTitlesListCommand(rootOpts))
	return cmd
}

func newTitlesLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReferenceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Replace stored titles with titles.json",
		Long: `Replace the stored title list.

Without --file the list is downloaded from the eCFR versioner API.

Example:
  cfrstat titles load --file ./titles.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTitlesLoad(opts, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read titles.json from this file instead of downloading")
	return cmd
}

func runTitlesLoad(opts *ReferenceOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	titles, err := loadReference(ctx, opts, ecfr.LoadTitlesFile, (*ecfr.Client).FetchTitles)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read titles", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(opts.RootOptions, st)

	if err := st.ReplaceTitles(ctx, titles); err != nil {
		return WrapExitError(ExitFailure, "failed to store titles", err)
	}
	opts.Logger.Info("titles loaded", zap.Int("titles", len(titles)))

	f := newFormatter(opts.RootOptions, cmd)
	if f.IsJSON() {
		return f.Success(map[string]int{"titles": len(titles)})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d titles.\n", len(titles))
	return nil
}

func newTitlesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored titles",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTitlesList(rootOpts, cmd)
		},
	}
}

func runTitlesList(opts *RootOptions, cmd *cobra.Command) error {
	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore(opts, st)

	titles, err := st.ReadTitles(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read titles", err)
	}

	f := newFormatter(opts, cmd)
	if f.IsJSON() {
		return f.Success(titles)
	}
	w := cmd.OutOrStdout()
	if len(titles) == 0 {
		fmt.Fprintln(w, "No titles.")
		return nil
	}
	fmt.Fprintf(w, "%5s %-12s %s\n", "TITLE", "LATEST", "NAME")
	for _, t := range titles {
		name := t.Name
		if t.Reserved {
			name += " (reserved)"
		}
		fmt.Fprintf(w, "%5d %-12s %s\n", t.Number, t.LatestIssueDate, name)
	}
	return nil
}

// loadReference reads reference data from opts.File, or downloads it.
func loadReference[T any](
	ctx context.Context,
	opts *ReferenceOptions,
	fromFile func(string) ([]T, error),
	download func(*ecfr.Client, context.Context) ([]T, error),
) ([]T, error) {
	if opts.File != "" {
		return fromFile(opts.File)
	}
	return download(newClient(opts.RootOptions), ctx)
}
