// Package cli — check.go implements the "tmdb-builder check" command.
//
// Check runs the environment doctor standalone: the same checks setup
// runs as its self-test, but with a dedicated exit code when anything
// fails, so scripts can gate on a healthy environment.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moviedata/tmdb-builder/internal/doctor"
	"github.com/moviedata/tmdb-builder/internal/model"
)

// NewCheckCommand creates the "check" cobra command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the working environment is ready",
		Long: `Run the environment checks: Python interpreter, virtual environment,
installed analysis packages, working directories, workspace files and
the TMDb API key.

Exits with code 6 when any check fails.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd)
		},
	}
}

// runCheck executes the doctor and renders the report.
func runCheck(cmd *cobra.Command) error {
	dir := workingDir()
	VerboseLog("Working directory: %s", dir)

	report := doctor.New(dir).Run(cmd.Context())

	if IsJSONOutput() {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to encode report", err)
		}
		fmt.Println(string(data))
	} else {
		doctor.Print(os.Stdout, report)
	}

	if !report.AllPassed() {
		return model.NewCLIError(model.ExitCheckFailed, "environment check failed")
	}
	return nil
}
