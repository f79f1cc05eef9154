// Package cli implements the flowcraft command-line interface.
package cli

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcraft/pkg/buildinfo"
	"github.com/matzehuels/flowcraft/pkg/cache"
	"github.com/matzehuels/flowcraft/pkg/catalog"
	"github.com/matzehuels/flowcraft/pkg/config"
	"github.com/matzehuels/flowcraft/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "flowcraft"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Process exit statuses.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130 // 128 + SIGINT, as shells report a job stopped by Ctrl-C
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is the --config flag; empty means the default location.
	configPath string

	// verbose is the -v flag; it lowers the log level to debug for one run.
	verbose bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Flowcraft builds data pipelines from visual flow graphs",
		Long:         `Flowcraft validates pipeline graphs drawn on a canvas, compiles them into pipeline specification documents, and rebuilds graphs from existing documents.`,
		Version:      buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/flowcraft/config.toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug detail (catalog lookups, cache hits, timings)")

	root.AddCommand(c.validateCommand())
	root.AddCommand(c.compileCommand())
	root.AddCommand(c.decompileCommand())
	root.AddCommand(c.orderCommand())
	root.AddCommand(c.autoConnectCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// ExitStatus maps the error a command returned to the process exit status. A run
// cut short by SIGINT or SIGTERM reports [ExitInterrupted] whatever the command
// was doing.
func ExitStatus(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}

// loadConfig reads the file named by --config, or the default one.
func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// =============================================================================
// Runner Factory
// =============================================================================

// catalogFlags are the per-command catalog overrides.
type catalogFlags struct {
	url      string
	mongoURI string
	noCache  bool
}

func (f *catalogFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "catalog-url", "", "catalog service base URL (overrides config)")
	cmd.Flags().StringVar(&f.mongoURI, "mongo-uri", "", "MongoDB catalog connection string (overrides config)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the catalog lookup cache")
}

// localRunner creates a runner for commands that never consult a catalog.
func (c *CLI) localRunner() *pipeline.Runner {
	return pipeline.NewRunner(nil, c.Logger)
}

// newRunner creates a pipeline runner backed by the configured catalog. The returned
// function closes the catalog and its cache.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config, flags catalogFlags) (*pipeline.Runner, func(context.Context) error, error) {
	opts := catalog.Options{
		URL:           cfg.Catalog.URL,
		Headers:       cfg.Catalog.Headers,
		Timeout:       cfg.Catalog.Timeout.Std(),
		MongoURI:      cfg.Catalog.MongoURI,
		MongoDatabase: cfg.Catalog.MongoDatabase,
		TTL:           cfg.Cache.TTL.Std(),
	}
	switch {
	case flags.url != "":
		opts.URL, opts.MongoURI = flags.url, ""
	case flags.mongoURI != "":
		opts.URL, opts.MongoURI = "", flags.mongoURI
	}
	if opts.URL == "" && opts.MongoURI == "" {
		return pipeline.NewRunner(nil, c.Logger), func(context.Context) error { return nil }, nil
	}

	if !flags.noCache {
		store, err := cache.Open(ctx, cfg.CacheOptions())
		if err != nil {
			c.Logger.Warn("cache unavailable, continuing without", "err", err)
		} else {
			opts.Cache = store
		}
	}

	cat, closeCatalog, err := catalog.Open(ctx, opts)
	if err != nil {
		if opts.Cache != nil {
			_ = opts.Cache.Close()
		}
		return nil, nil, err
	}
	closeFn := func(ctx context.Context) error {
		err := closeCatalog(ctx)
		if opts.Cache != nil {
			err = stderrors.Join(err, opts.Cache.Close())
		}
		return err
	}
	return pipeline.NewRunner(cat, c.Logger), closeFn, nil
}
