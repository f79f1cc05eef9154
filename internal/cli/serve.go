package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcraft/pkg/metrics"
	"github.com/matzehuels/flowcraft/pkg/server"
	"github.com/matzehuels/flowcraft/pkg/session"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr       string // listen address; empty uses the config value
	sessionDir string // persist sessions here; empty uses the config value
	noMetrics  bool   // skip /metrics and instrumentation
	catalog    catalogFlags
}

// serveCommand runs the HTTP API until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the flowcraft HTTP API",
		Long: `Serve exposes validation, compilation, decompilation and auto-connect over
HTTP, together with editing sessions that hold a graph between requests. Sessions
live in memory unless a session directory is configured. Prometheus metrics are
served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, \":8080\")")
	cmd.Flags().StringVar(&opts.sessionDir, "session-dir", "", "directory for persistent sessions (default in memory)")
	cmd.Flags().BoolVar(&opts.noMetrics, "no-metrics", false, "disable Prometheus metrics")
	opts.catalog.register(cmd)
	cmd.MarkFlagsMutuallyExclusive("catalog-url", "mongo-uri")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.sessionDir != "" {
		cfg.Server.SessionDir = opts.sessionDir
	}

	runner, closeFn, err := c.newRunner(ctx, cfg, opts.catalog)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := closeFn(closeCtx); err != nil {
			logger.Warn("close catalog", "err", err)
		}
	}()

	var store session.Store = session.NewMemoryStore()
	if cfg.Server.SessionDir != "" {
		fs, err := session.NewFileStore(cfg.Server.SessionDir)
		if err != nil {
			return err
		}
		logger.Info("persisting sessions", "dir", fs.Path())
		store = fs
	}

	var reg *metrics.Registry
	if !opts.noMetrics {
		reg = metrics.DefaultRegistry()
		reg.Install()
	}

	srv := server.New(runner, store, server.Options{
		Addr:            cfg.Server.Addr,
		SessionTTL:      cfg.Server.SessionTTL.Std(),
		CleanupInterval: cfg.Server.CleanupInterval.Std(),
		Proximity:       cfg.ProximityOptions(),
		Spacing:         cfg.Decompile.Spacing,
		Logger:          logger,
		Metrics:         reg,
	})
	return srv.Run(ctx)
}
