package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/cfrstat/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr    string
	Offline bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve rollups, the metric catalog, compute and ingest triggers and
Prometheus metrics over HTTP until interrupted.

Endpoints:
  GET  /v1/catalog
  GET  /v1/rollup?metric=&level=&start=&end=&agencies=A,B
  POST /v1/compute  {"title": 7, "start": "2024-01-01", "end": "2024-12-31"}
  POST /v1/ingest   {"title": 7, "date": "2024-01-01", "reload": false}
  GET  /healthz
  GET  /metrics

Example:
  cfrstat serve --addr :8000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config server.addr)")
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "disable downloads; POST /v1/ingest answers 503")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	addr := opts.Addr
	if addr == "" {
		addr = opts.Config.Server.Addr
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(opts.RootOptions, st)

	var fetcher server.Fetcher
	if !opts.Offline {
		fetcher = newClient(opts.RootOptions)
	}
	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers := server.NewHandlers(newEngine(opts.RootOptions, st), fetcher, opts.Logger)
	router := server.NewRouter(handlers, opts.Logger)

	// Use command's context if available (for testing), otherwise create one
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			opts.Logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s. Press Ctrl-C to stop.\n", addr)
	if err := server.Serve(ctx, addr, router, opts.Logger); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	return nil
}
