package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/model"
)

// Bootstrapper prepares a working directory for dataset-building work.
// All collaborators are explicit fields so the procedure can run against
// a temporary directory with fake externals in tests.
type Bootstrapper struct {
	// Dir is the working directory the environment is prepared in.
	Dir string

	// Locator discovers the Python interpreter. Defaults to PathLocator.
	Locator Locator

	// Runner executes external commands (venv creation, pip).
	// Defaults to ExecRunner.
	Runner Runner

	// Out receives human-readable status lines. Defaults to os.Stdout.
	Out io.Writer

	// SelfTest runs the environment checks for the self-test step.
	// When nil the step is skipped entirely.
	SelfTest func(dir string) *model.CheckReport
}

// Result records what a bootstrap run did, for the completion banner and
// for tests of the idempotence guarantees.
type Result struct {
	// Interpreter is the discovered Python interpreter.
	Interpreter Interpreter

	// VenvCreated is true when the virtual environment was created by
	// this run (false when it already existed).
	VenvCreated bool

	// EnvSeeded is true when .env was created from .env.example by this
	// run (false when it already existed or the template was missing).
	EnvSeeded bool

	// Warnings collects the non-fatal conditions encountered, in order.
	Warnings []string

	// SelfTestRan and SelfTestPassed describe the self-test step.
	// A failed self-test never fails the bootstrap itself.
	SelfTestRan    bool
	SelfTestPassed bool
}

// New returns a Bootstrapper for the given working directory with
// production defaults.
func New(dir string) *Bootstrapper {
	return &Bootstrapper{
		Dir:     dir,
		Locator: PathLocator{},
		Runner:  ExecRunner{},
		Out:     os.Stdout,
	}
}

// Run executes the full bootstrap sequence. The only fatal condition is
// a missing or too-old Python interpreter, which is reported before any
// file-system mutation; every other failure is a warning and the run
// continues to the next step.
func (b *Bootstrapper) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	// Step 1: interpreter check. Must come first — a failed check exits
	// with code 1 having touched nothing on disk.
	b.printf("Checking for Python...")
	interp, err := b.Locator.Locate(ctx)
	if err != nil {
		return nil, err
	}
	if !interp.MeetsMinimum() {
		return nil, model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("Python %d.%d or newer is required, found %s at %s",
				config.MinPythonMajor, config.MinPythonMinor, interp.Version, interp.Path))
	}
	res.Interpreter = interp
	b.printf("  found Python %s (%s)", interp.Version, interp.Path)

	// Step 2: virtual environment creation (idempotent).
	venvPath := filepath.Join(b.Dir, config.VenvDir)
	if _, statErr := os.Stat(venvPath); statErr == nil {
		b.warnf(res, "%s/ already exists, skipping creation", config.VenvDir)
	} else {
		b.printf("Creating virtual environment in %s/...", config.VenvDir)
		if runErr := b.Runner.Run(ctx, b.Dir, interp.Path,
			[]string{"-m", "venv", config.VenvDir}, b.Out, b.Out); runErr != nil {
			// venv creation failing leaves the installer steps pointless,
			// but the original scripts carried on regardless; we do too.
			b.warnf(res, "virtual environment creation failed: %v", runErr)
		} else {
			res.VenvCreated = true
		}
	}

	// Steps 3–5: installer commands address the venv's own interpreter
	// directly, which stands in for activation in a non-interactive run.
	venvPython := VenvPython(b.Dir)

	b.printf("Upgrading pip...")
	if runErr := b.Runner.Run(ctx, b.Dir, venvPython,
		[]string{"-m", "pip", "install", "--upgrade", "pip"},
		io.Discard, io.Discard); runErr != nil {
		b.warnf(res, "pip upgrade failed: %v", runErr)
	}

	b.printf("Installing dependencies from %s...", config.RequirementsFile)
	if _, statErr := os.Stat(filepath.Join(b.Dir, config.RequirementsFile)); os.IsNotExist(statErr) {
		b.warnf(res, "%s not found, skipping dependency install", config.RequirementsFile)
	} else if runErr := b.Runner.Run(ctx, b.Dir, venvPython,
		[]string{"-m", "pip", "install", "-r", config.RequirementsFile},
		b.Out, b.Out); runErr != nil {
		b.warnf(res, "dependency install failed: %v", runErr)
	}

	// Step 6: working directories (create-if-missing, parents included).
	b.printf("Creating working directories...")
	for _, dir := range config.WorkingDirs() {
		if mkErr := os.MkdirAll(filepath.Join(b.Dir, dir), 0o755); mkErr != nil {
			b.warnf(res, "failed to create %s/: %v", dir, mkErr)
		}
	}

	// Step 7: seed .env from .env.example, never overwriting.
	b.seedEnvFile(res)

	// Step 8: self-test. Pass/fail is reported but never propagated.
	if b.SelfTest != nil {
		b.printf("Running self-test...")
		report := b.SelfTest(b.Dir)
		res.SelfTestRan = true
		res.SelfTestPassed = report.AllPassed()
		if res.SelfTestPassed {
			b.printf("  self-test passed")
		} else {
			b.printf("  self-test reported problems (setup still completed; run 'tmdb-builder check' for details)")
		}
	}

	return res, nil
}

// seedEnvFile copies .env.example to .env when .env does not exist.
// An existing .env is left byte-for-byte untouched.
func (b *Bootstrapper) seedEnvFile(res *Result) {
	envPath := filepath.Join(b.Dir, config.EnvFile)
	examplePath := filepath.Join(b.Dir, config.EnvExampleFile)

	if _, err := os.Stat(envPath); err == nil {
		b.warnf(res, "%s already exists, leaving it untouched", config.EnvFile)
		return
	}

	template, err := os.ReadFile(examplePath)
	if err != nil {
		b.warnf(res, "cannot seed %s: %v", config.EnvFile, err)
		return
	}

	// 0600 keeps the secrets file private to the owner.
	if err := os.WriteFile(envPath, template, 0o600); err != nil {
		b.warnf(res, "failed to write %s: %v", config.EnvFile, err)
		return
	}

	res.EnvSeeded = true
	b.printf("Created %s from %s — edit it and set your %s",
		config.EnvFile, config.EnvExampleFile, config.APIKeyVar)
}

// printf writes a status line to the configured output.
func (b *Bootstrapper) printf(format string, args ...interface{}) {
	fmt.Fprintf(b.Out, format+"\n", args...)
}

// warnf records a warning on the result and prints it.
func (b *Bootstrapper) warnf(res *Result, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	res.Warnings = append(res.Warnings, msg)
	fmt.Fprintf(b.Out, "Warning: %s\n", msg)
}
