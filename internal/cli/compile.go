package cli

import (
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcraft/pkg/pipeline"
	"github.com/matzehuels/flowcraft/pkg/spec"
	"github.com/matzehuels/flowcraft/pkg/validate"
)

// compileOpts holds the command-line flags for the compile command.
type compileOpts struct {
	output string // output file; empty writes to stdout
	format string // json or yaml; defaults from the output extension
	pipeline.Options
}

// compileCommand turns a graph into a pipeline document.
func (c *CLI) compileCommand() *cobra.Command {
	var opts compileOpts

	cmd := &cobra.Command{
		Use:   "compile [graph.json]",
		Short: "Compile a pipeline graph into a specification document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Format = spec.Format(opts.format)
			if opts.format == "" && opts.output != "" {
				opts.Format = spec.FormatFromPath(opts.output)
			}
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			return c.runCompile(cmd, inputPath(args), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "document format: json (default), yaml")
	cmd.Flags().StringVar(&opts.Name, "name", "", "pipeline name (default \"pipeline\")")
	cmd.Flags().StringVar(&opts.Description, "description", "", "pipeline description")
	cmd.Flags().BoolVar(&opts.Writer, "writer", false, "emit a Writer step for every Target")
	_ = cmd.RegisterFlagCompletionFunc("format", fixedCompletions("json", "yaml"))

	return cmd
}

func (c *CLI) runCompile(cmd *cobra.Command, path string, opts compileOpts) error {
	g, err := readGraph(cmd, path)
	if err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(cmd.Context()), "compile")
	doc, err := c.localRunner().Compile(cmd.Context(), g, opts.Options)
	if err != nil {
		var verr *validate.Error
		if stderrors.As(err, &verr) {
			for _, msg := range verr.Errors {
				printError("%s", msg)
			}
		}
		return err
	}

	data, err := spec.Marshal(doc, opts.Format)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, opts.output, data); err != nil {
		return err
	}
	if opts.output == "" {
		return nil
	}

	prog.done("transformations", len(doc.Transformations), "format", opts.Format)
	printSuccess("Compiled %s", StyleHighlight.Render(doc.Name))
	fmt.Println(transformationTable(doc))
	printStats(
		fmt.Sprintf("%d sources", len(doc.Sources)),
		fmt.Sprintf("%d targets", len(doc.Targets)),
		string(opts.Format))
	printFile(opts.output)
	return nil
}
