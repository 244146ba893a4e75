// Package cli — setup.go implements the "tmdb-builder setup" command.
//
// Setup prepares the working directory for dataset work. The sequence:
//  1. Check for a usable Python interpreter (the only fatal step)
//  2. Create the virtual environment (skipped when present)
//  3. Upgrade pip inside the venv (quiet)
//  4. Install the analysis dependencies from requirements.txt (visible)
//  5. Create the working directories
//  6. Seed .env from .env.example (never overwriting)
//  7. Run the environment self-test (non-fatal)
//  8. Print the next-steps banner
//
// The command is idempotent: re-running it on a prepared directory
// converges to the same state and reports what already existed.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moviedata/tmdb-builder/internal/bootstrap"
	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/doctor"
	"github.com/moviedata/tmdb-builder/internal/model"
)

// NewSetupCommand creates the "setup" cobra command.
func NewSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Prepare the working environment for dataset building",
		Long: `Prepare the working directory: verify Python, create the virtual
environment, install the analysis dependencies, create the working
directories and seed the .env secrets file from its template.

Safe to run repeatedly — existing state is detected and left alone.

Examples:
  tmdb-builder setup
  tmdb-builder setup --dir ~/datasets/movies`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd.Context(), workingDir())
		},
	}
}

// runSetup wires the bootstrapper with the doctor as its self-test and
// prints the next-steps banner on completion.
func runSetup(ctx context.Context, dir string) error {
	VerboseLog("Working directory: %s", dir)

	b := bootstrap.New(dir)
	b.SelfTest = func(d string) *model.CheckReport {
		return doctor.New(d).Run(ctx)
	}

	res, err := b.Run(ctx)
	if err != nil {
		return err
	}

	printNextSteps(res)
	return nil
}

// printNextSteps renders the completion banner telling the user what to
// do next: configure the API key, activate the venv for the analysis
// scripts, and run the first fetch.
func printNextSteps(res *bootstrap.Result) {
	fmt.Println()
	fmt.Println("Setup complete. Next steps:")

	step := 1
	if res.EnvSeeded || !res.SelfTestPassed {
		fmt.Printf("  %d. Edit %s and set %s (get a key at https://www.themoviedb.org/settings/api)\n",
			step, config.EnvFile, config.APIKeyVar)
		step++
	}
	fmt.Printf("  %d. Put your movie list in a CSV with a \"title\" column (see %s/)\n",
		step, config.ExamplesDir)
	step++
	fmt.Printf("  %d. Run: tmdb-builder fetch -i %s/sample_movies.csv -o %s/movies.csv\n",
		step, config.ExamplesDir, config.OutputDir)
	step++
	fmt.Printf("  %d. For the Python analysis scripts, activate the venv: %s\n",
		step, bootstrap.ActivateHint())

	if len(res.Warnings) > 0 {
		fmt.Fprintf(os.Stderr, "\n%d warning(s) during setup — see above.\n", len(res.Warnings))
	}
}
