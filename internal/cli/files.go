package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/flowio"
	"github.com/matzehuels/flowcraft/pkg/spec"
)

// stdinArg names standard input in place of a file argument.
const stdinArg = "-"

// inputPath returns the first argument, or stdinArg when there is none.
func inputPath(args []string) string {
	if len(args) == 0 {
		return stdinArg
	}
	return args[0]
}

// readGraph loads canvas JSON from path or standard input.
func readGraph(cmd *cobra.Command, path string) (*flow.Graph, error) {
	if path == stdinArg {
		return flowio.ReadJSON(cmd.InOrStdin())
	}
	return flowio.ImportJSON(path)
}

// readDocument loads a document from path, or JSON from standard input.
func readDocument(cmd *cobra.Command, path string) (*spec.Document, error) {
	if path == stdinArg {
		return spec.Read(cmd.InOrStdin(), spec.FormatJSON)
	}
	return spec.ReadFile(path)
}

// writeOutput writes data to path, or to standard output when path is empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeGraph(cmd *cobra.Command, path string, g *flow.Graph) error {
	var buf bytes.Buffer
	if err := flowio.WriteJSON(g, &buf); err != nil {
		return err
	}
	return writeOutput(cmd, path, buf.Bytes())
}
