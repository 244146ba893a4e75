package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Runner executes an external command in a working directory, streaming
// its output to the given writers. It exists as an interface so tests
// can record invocations without spawning processes.
type Runner interface {
	// Run executes name with args in dir. stdout and stderr may be
	// io.Discard to suppress output. Returns an error when the command
	// cannot start or exits non-zero.
	Run(ctx context.Context, dir, name string, args []string, stdout, stderr io.Writer) error
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// Run executes the command, wrapping a non-zero exit with the command
// line for diagnostics.
func (ExecRunner) Run(ctx context.Context, dir, name string, args []string, stdout, stderr io.Writer) error {
	// #nosec G204 — commands are constructed from internal constants and
	// the located interpreter path, never from user input
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}
