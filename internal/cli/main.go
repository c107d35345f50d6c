// Package cli wires the voxdub command line onto the pipeline.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/forPelevin/voxdub/internal/runctl"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present
	os.Exit(Execute(os.Args[1:], os.Stdout, os.Stderr))
}

// Execute runs the command line with args and returns the process exit code.
// Errors are printed once to stderr.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(context.Background())
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled) && !runctl.IsCancelled(err):
		fmt.Fprintln(stderr, runctl.ErrCancelled)
		return 130
	default:
		fmt.Fprintln(stderr, err)
		return runctl.ExitCode(err)
	}
}
