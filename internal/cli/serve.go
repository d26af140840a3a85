package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/carlog/internal/api"
	"github.com/roach88/carlog/internal/config"
	"github.com/roach88/carlog/internal/ir"
	"github.com/roach88/carlog/internal/node"
	"github.com/roach88/carlog/internal/processor"
	"github.com/roach88/carlog/internal/store"
)

// ServeOptions holds flags for the serve command. Empty or zero values
// keep the configured setting.
type ServeOptions struct {
	*RootOptions
	Database      string
	Listen        string
	QueueSize     int
	LenientCreate bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a carLogger node",
		Long: `Run a single carLogger node: the SQLite state store, the
single-writer batch loop and the REST API.

The database is created if it doesn't exist. The node stops on SIGINT or
SIGTERM after the queued batches are applied.

Example:
  carlog serve --db ./carlog.db --listen 127.0.0.1:8008
  carlog serve --config ./node.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default node.database, "+config.EnvDB+")")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "REST API listen address (default node.listen, "+config.EnvListen+")")
	cmd.Flags().IntVar(&opts.QueueSize, "queue-size", 0, "maximum queued batches (default node.queue_size)")
	cmd.Flags().BoolVar(&opts.LenientCreate, "lenient-create", false, "accept create on a registered VIN as a no-op")

	return cmd
}

// nodeConfig merges flags over the loaded node settings.
func (o *ServeOptions) nodeConfig() config.NodeConfig {
	nc := o.Config.Node
	if o.Database != "" {
		nc.Database = o.Database
	}
	if o.Listen != "" {
		nc.Listen = o.Listen
	}
	if o.QueueSize > 0 {
		nc.QueueSize = o.QueueSize
	}
	if o.LenientCreate {
		nc.LenientCreate = true
	}
	return nc
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logger := opts.logger()
	slog.SetDefault(logger)

	nc := opts.nodeConfig()
	if nc.Database == "" {
		return NewExitError(ExitCommandError, "no database: set --db or node.database")
	}
	cfg := opts.Config
	cfg.Node = nc
	if err := cfg.Check(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	ns, err := ir.NewNamespace(nc.Family)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid family", err)
	}

	logger.Info("opening database", "path", nc.Database)
	st, err := store.Open(nc.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	popts := []processor.Option{processor.WithLogger(logger)}
	if nc.LenientCreate {
		popts = append(popts, processor.WithLenientCreate())
	}
	n, err := node.New(ctx, st, processor.New(ns, popts...),
		node.WithQueueSize(nc.QueueSize),
		node.WithLogger(logger),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start node", err)
	}

	srvOpts := []api.Option{api.WithLogger(logger)}
	if nc.MaxBodyBytes > 0 {
		srvOpts = append(srvOpts, api.WithMaxBodyBytes(nc.MaxBodyBytes))
	}
	srv := api.NewServer(n, srvOpts...)

	// The node outlives ctx so that batches accepted before shutdown are
	// applied; Stop ends it once the API no longer accepts submissions.
	nodeDone := make(chan error, 1)
	go func() { nodeDone <- n.Run(context.WithoutCancel(ctx)) }()

	logger.Info("node starting", "db", nc.Database, "listen", nc.Listen, "family", ns.Family(), "prefix", ns.Prefix())
	fmt.Fprintf(cmd.OutOrStdout(), "carLogger node listening on %s\n", nc.Listen)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	serveErr := srv.ListenAndServe(ctx, nc.Listen)
	n.Stop()
	nodeErr := <-nodeDone

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return WrapExitError(ExitCommandError, "api server error", serveErr)
	}
	if nodeErr != nil {
		return WrapExitError(ExitFailure, "node error", nodeErr)
	}

	logger.Info("node stopped gracefully")
	return nil
}
