package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcraft/pkg/decompile"
	"github.com/matzehuels/flowcraft/pkg/pipeline"
)

const closeTimeout = 5 * time.Second

// decompileOpts holds the command-line flags for the decompile command.
type decompileOpts struct {
	output      string  // output file; empty writes to stdout
	concurrency int     // parallel catalog lookups; 0 uses the config value
	spacing     float64 // horizontal node distance; 0 uses the config value
	strict      bool    // fail when anything could not be reproduced
	catalog     catalogFlags
}

// decompileCommand rebuilds a canvas graph from a pipeline document. Sources are
// resolved through the configured catalog, or from the document itself when no
// catalog is configured.
func (c *CLI) decompileCommand() *cobra.Command {
	var opts decompileOpts

	cmd := &cobra.Command{
		Use:   "decompile [document]",
		Short: "Rebuild a pipeline graph from a specification document",
		Long: `Decompile lays out a graph for an existing pipeline document. Reader
descriptors are looked up in the data catalog (see --catalog-url and --mongo-uri);
lookups that fail are reported and the remaining graph is still produced.
Reads a JSON document from standard input when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDecompile(cmd, inputPath(args), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output graph file (default stdout)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "parallel catalog lookups (default from config)")
	cmd.Flags().Float64Var(&opts.spacing, "spacing", 0, "horizontal distance between nodes (default from config)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail if any source or reference could not be resolved")
	opts.catalog.register(cmd)
	cmd.MarkFlagsMutuallyExclusive("catalog-url", "mongo-uri")

	return cmd
}

func (c *CLI) runDecompile(cmd *cobra.Command, path string, opts decompileOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.concurrency <= 0 {
		opts.concurrency = cfg.Decompile.Concurrency
	}
	if opts.spacing <= 0 {
		opts.spacing = cfg.Decompile.Spacing
	}

	doc, err := readDocument(cmd, path)
	if err != nil {
		return err
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

	var spinner *Spinner
	if runner.Catalog != nil && opts.output != "" {
		spinner = newSpinner(ctx, cmd.ErrOrStderr(), fmt.Sprintf("Resolving %d sources...", len(doc.Sources)))
		spinner.Start()
	}
	g, report, err := runner.Decompile(ctx, doc, pipeline.Options{Concurrency: opts.concurrency, Spacing: opts.spacing})
	if spinner != nil {
		logger.Debug("sources resolved", "sources", len(doc.Sources), "elapsed", spinner.Stop())
	}
	if err != nil {
		return err
	}

	reportProblems(logger, report)
	if opts.strict && !report.Complete() {
		return fmt.Errorf("decompile incomplete: %d failed sources, %d unresolved references",
			len(report.Failures), len(report.Unresolved))
	}

	if err := writeGraph(cmd, opts.output, g); err != nil {
		return err
	}
	if opts.output != "" {
		printSuccess("Decompiled %s", StyleHighlight.Render(doc.Name))
		if !report.Complete() {
			printWarning("%d sources and %d references could not be reproduced", len(report.Failures), len(report.Unresolved))
		}
		printStats(fmt.Sprintf("%d nodes", g.NodeCount()), fmt.Sprintf("%d edges", g.EdgeCount()))
		printFile(opts.output)
		printNextStep("Check it", fmt.Sprintf("%s validate %s", appName, opts.output))
	}
	return nil
}

// reportProblems warns about everything the graph could not reproduce. Warnings go
// to the log so a graph written to stdout stays clean.
func reportProblems(logger *log.Logger, report *decompile.Report) {
	for _, f := range report.Failures {
		logger.Warn("source not resolved", "source", f.Source, "source_id", f.SourceID, "reason", f.Reason)
	}
	for _, ref := range report.Unresolved {
		logger.Warn("dependency dropped", "step", ref.Step, "depends_on", ref.DependsOn)
	}
}
