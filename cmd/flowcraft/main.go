package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/flowcraft/internal/cli"
	"github.com/matzehuels/flowcraft/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(status)
}

// run executes one invocation and returns its exit status. Failures are printed
// once, without the error code prefix; an interrupted run prints nothing.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	root := cli.New(stderr, cli.LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	status := cli.ExitStatus(err)
	if status == cli.ExitFailure {
		fmt.Fprintf(stderr, "flowcraft: %s\n", errors.UserMessage(err))
	}
	return status
}
