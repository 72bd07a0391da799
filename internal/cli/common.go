package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/cfrstat/internal/cfr"
	"github.com/roach88/cfrstat/internal/ecfr"
	"github.com/roach88/cfrstat/internal/engine"
	"github.com/roach88/cfrstat/internal/store"
)

// newFormatter returns the OutputFormatter for cmd.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openStore opens the configured database. The caller closes it with
// closeStore.
func openStore(opts *RootOptions) (*store.Store, error) {
	opts.Logger.Debug("opening database", zap.String("path", opts.Config.Database))
	st, err := store.Open(opts.Config.Database)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to open database", err)
	}
	return st, nil
}

func closeStore(opts *RootOptions, st *store.Store) {
	if err := st.Close(); err != nil {
		opts.Logger.Error("error closing database", zap.Error(err))
	}
}

// newEngine builds an engine over st from the resolved configuration.
func newEngine(opts *RootOptions, st *store.Store) *engine.Engine {
	engineOpts := []engine.Option{
		engine.WithLogger(opts.Logger),
		engine.WithBatchSizes(opts.Config.Ingest.BatchSize, opts.Config.Compute.BatchSize),
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDs(opts.RunIDs))
	}
	return engine.New(st, engineOpts...)
}

// newClient builds an eCFR client from the resolved configuration.
func newClient(opts *RootOptions) *ecfr.Client {
	cfg := opts.Config
	return ecfr.New(cfg.BaseURL, cfg.DataDir,
		ecfr.WithConcurrency(cfg.Fetch.Concurrency),
		ecfr.WithRateLimit(cfg.Fetch.RequestsPerSecond),
		ecfr.WithTimeout(cfg.Fetch.TimeoutDuration()),
		ecfr.WithLogger(opts.Logger),
	)
}

// parseDateFlag parses a YYYY-MM-DD flag value.
func parseDateFlag(name, value string) (time.Time, error) {
	d, err := cfr.ParseDate(value)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s", name), err)
	}
	return d, nil
}

// requireTitle rejects non-positive title numbers.
func requireTitle(title int) error {
	if title < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --title %d: must be at least 1", title))
	}
	return nil
}
