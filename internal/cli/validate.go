package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// validateOpts holds the command-line flags for the validate command.
type validateOpts struct {
	interactive bool // browse the log in a terminal UI
	json        bool // print the result as JSON
}

// validateCommand checks a graph and prints its validation log. An invalid graph
// makes the command fail.
func (c *CLI) validateCommand() *cobra.Command {
	var opts validateOpts

	cmd := &cobra.Command{
		Use:   "validate [graph.json]",
		Short: "Check a pipeline graph for errors",
		Long: `Validate runs the same checks the compiler does: every Reader and Target is
connected and transformations have their inputs and required parameters. Titles
shared by several nodes are logged as warnings. Reads standard input when no file
is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGraph(cmd, inputPath(args))
			if err != nil {
				return err
			}
			res := c.localRunner().Validate(cmd.Context(), g)

			switch {
			case opts.json:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			case opts.interactive:
				if err := runLogViewer(res); err != nil {
					return err
				}
			default:
				printValidation(res)
			}

			if !res.IsValid {
				return fmt.Errorf("pipeline is invalid: %d errors", len(res.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse the validation log interactively")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("interactive", "json")

	return cmd
}
