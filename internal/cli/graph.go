package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/render"
)

// orderCommand prints the nodes of a graph in execution order.
func (c *CLI) orderCommand() *cobra.Command {
	var transformationsOnly bool

	cmd := &cobra.Command{
		Use:   "order [graph.json]",
		Short: "Print the nodes of a graph in dependency order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGraph(cmd, inputPath(args))
			if err != nil {
				return err
			}
			nodes := flow.Order(g)
			if transformationsOnly {
				nodes = flow.Transformations(nodes)
			}

			if len(nodes) == 0 {
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), orderTable(nodes))
			return err
		},
	}

	cmd.Flags().BoolVarP(&transformationsOnly, "transformations", "t", false, "omit Readers and Targets")
	return cmd
}

// autoConnectOpts holds the command-line flags for the autoconnect command.
type autoConnectOpts struct {
	output         string
	skipCycleGuard bool
	portAware      bool
}

// autoConnectCommand adds the edges a canvas would create for overlapping handles.
func (c *CLI) autoConnectCommand() *cobra.Command {
	var opts autoConnectOpts

	cmd := &cobra.Command{
		Use:   "autoconnect [graph.json]",
		Short: "Connect nodes whose handles overlap on the canvas",
		Long: `Autoconnect scans node positions for overlapping source and target handles
and adds the corresponding edges, skipping any that would close a cycle. Handle
sizes come from the [canvas] section of the config file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			g, err := readGraph(cmd, inputPath(args))
			if err != nil {
				return err
			}

			popts := cfg.ProximityOptions()
			popts.SkipCycleGuard = opts.skipCycleGuard
			popts.PortAware = opts.portAware

			logger := loggerFromContext(cmd.Context())
			res := c.localRunner().AutoConnect(cmd.Context(), g, popts)
			for _, rej := range res.Rejected {
				logger.Warn("edge rejected", "source", rej.Edge.Source, "target", rej.Edge.Target, "reason", rej.Reason)
			}
			logger.Info("auto-connected", "added", len(res.Added), "rejected", len(res.Rejected))

			return writeGraph(cmd, opts.output, g)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output graph file (default stdout)")
	cmd.Flags().BoolVar(&opts.skipCycleGuard, "skip-cycle-guard", false, "add overlapping edges even when they close a cycle")
	cmd.Flags().BoolVar(&opts.portAware, "port-aware", false, "ignore handles a node kind does not have")

	return cmd
}

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string // output file; empty writes to stdout
	format   string // dot or svg; defaults from the output extension
	detailed bool   // add transformation parameters to labels
	rankDir  string // Graphviz rank direction
}

// renderCommand draws a graph with Graphviz.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Render a pipeline graph as Graphviz DOT or SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format == "" {
				opts.format = render.FormatDOT
				if strings.EqualFold(filepath.Ext(opts.output), ".svg") {
					opts.format = render.FormatSVG
				}
			}
			g, err := readGraph(cmd, inputPath(args))
			if err != nil {
				return err
			}
			data, err := render.Render(cmd.Context(), g, opts.format, render.Options{
				Detailed: opts.detailed,
				RankDir:  opts.rankDir,
			})
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, opts.output, data); err != nil {
				return err
			}
			if opts.output != "" {
				printSuccess("Rendered %d nodes", g.NodeCount())
				printFile(opts.output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: dot (default), svg")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show transformation parameters")
	cmd.Flags().StringVar(&opts.rankDir, "rankdir", "LR", "Graphviz rank direction: LR, TB, RL, BT")
	_ = cmd.RegisterFlagCompletionFunc("format", fixedCompletions("dot", "svg"))
	_ = cmd.RegisterFlagCompletionFunc("rankdir", fixedCompletions("LR", "TB", "RL", "BT"))

	return cmd
}
