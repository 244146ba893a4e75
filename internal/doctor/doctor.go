// Package doctor implements the environment self-test behind the
// "tmdb-builder check" command and the self-test step of setup.
//
// Each check inspects one aspect of the working environment (interpreter
// version, virtual environment, installed analysis packages, working
// directories, workspace files, API key) and produces a CheckResult with
// a human-readable detail: the discovered value on success, the problem
// plus a remediation hint on failure.
//
// The doctor never mutates the environment; it only reports. A full run
// always executes every check so the user sees the complete picture in
// one pass.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/moviedata/tmdb-builder/internal/bootstrap"
	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/model"
)

// Doctor runs the environment checks for a working directory. The
// interpreter locator and command runner are injectable for the same
// reason they are in the bootstrapper: the checks must be testable
// without a Python installation.
type Doctor struct {
	// Dir is the working directory under inspection.
	Dir string

	// Locator discovers the Python interpreter. Defaults to PathLocator.
	Locator bootstrap.Locator

	// Runner executes the venv interpreter for import probes.
	// Defaults to ExecRunner.
	Runner bootstrap.Runner
}

// New returns a Doctor for the given working directory with production
// defaults.
func New(dir string) *Doctor {
	return &Doctor{
		Dir:     dir,
		Locator: bootstrap.PathLocator{},
		Runner:  bootstrap.ExecRunner{},
	}
}

// Run executes all checks and returns the aggregated report.
func (d *Doctor) Run(ctx context.Context) *model.CheckReport {
	report := &model.CheckReport{}
	report.Results = append(report.Results, d.checkPython(ctx))
	report.Results = append(report.Results, d.checkVenv())
	report.Results = append(report.Results, d.checkDependencies(ctx))
	report.Results = append(report.Results, d.checkDirectories())
	report.Results = append(report.Results, d.checkWorkspaceFiles())
	report.Results = append(report.Results, d.checkAPIKey())
	return report
}

// checkPython verifies a Python interpreter at or above the version
// floor is discoverable.
func (d *Doctor) checkPython(ctx context.Context) model.CheckResult {
	res := model.CheckResult{Name: "Python Version"}

	interp, err := d.Locator.Locate(ctx)
	if err != nil {
		res.Detail = fmt.Sprintf("no interpreter found on PATH (requires Python %d.%d+)",
			config.MinPythonMajor, config.MinPythonMinor)
		return res
	}
	if !interp.MeetsMinimum() {
		res.Detail = fmt.Sprintf("Python %s — requires %d.%d+",
			interp.Version, config.MinPythonMajor, config.MinPythonMinor)
		return res
	}

	res.Passed = true
	res.Detail = fmt.Sprintf("Python %s (%s)", interp.Version, interp.Path)
	return res
}

// checkVenv verifies the virtual environment directory and its own
// interpreter exist.
func (d *Doctor) checkVenv() model.CheckResult {
	res := model.CheckResult{Name: "Virtual Environment"}

	venvPath := filepath.Join(d.Dir, config.VenvDir)
	if _, err := os.Stat(venvPath); os.IsNotExist(err) {
		res.Detail = fmt.Sprintf("%s/ not found — run 'tmdb-builder setup'", config.VenvDir)
		return res
	}
	if _, err := os.Stat(bootstrap.VenvPython(d.Dir)); err != nil {
		res.Detail = fmt.Sprintf("%s/ exists but has no interpreter — recreate it with 'tmdb-builder setup'", config.VenvDir)
		return res
	}

	res.Passed = true
	res.Detail = config.VenvDir + "/"
	return res
}

// checkDependencies probes each declared analysis package by importing
// it with the venv interpreter. Requires a usable venv; when the venv is
// missing the check fails with a pointer at setup rather than probing
// the system interpreter.
func (d *Doctor) checkDependencies(ctx context.Context) model.CheckResult {
	res := model.CheckResult{Name: "Dependencies"}

	venvPython := bootstrap.VenvPython(d.Dir)
	if _, err := os.Stat(venvPython); err != nil {
		res.Detail = "virtual environment missing — run 'tmdb-builder setup'"
		return res
	}

	var missing []string
	for _, pkg := range config.AnalysisPackages() {
		err := d.Runner.Run(ctx, d.Dir, venvPython,
			[]string{"-c", "import " + pkg}, io.Discard, io.Discard)
		if err != nil {
			missing = append(missing, pkg)
		}
	}

	if len(missing) > 0 {
		res.Detail = fmt.Sprintf("not importable: %s — run 'pip install -r %s' inside the venv",
			strings.Join(missing, ", "), config.RequirementsFile)
		return res
	}

	res.Passed = true
	res.Detail = strings.Join(config.AnalysisPackages(), ", ")
	return res
}

// checkDirectories reports on the working directories. Missing
// directories do not fail the check — setup creates them on demand —
// but they are named in the detail so the user knows.
func (d *Doctor) checkDirectories() model.CheckResult {
	res := model.CheckResult{Name: "Directories", Passed: true}

	var missing []string
	for _, dir := range config.WorkingDirs() {
		if _, err := os.Stat(filepath.Join(d.Dir, dir)); os.IsNotExist(err) {
			missing = append(missing, dir+"/")
		}
	}

	if len(missing) > 0 {
		res.Detail = fmt.Sprintf("missing (created automatically by setup): %s",
			strings.Join(missing, ", "))
	} else {
		res.Detail = "all present"
	}
	return res
}

// checkWorkspaceFiles verifies the checked-in workspace inputs exist.
func (d *Doctor) checkWorkspaceFiles() model.CheckResult {
	res := model.CheckResult{Name: "Workspace Files"}

	var missing []string
	for _, file := range []string{config.RequirementsFile, config.EnvExampleFile} {
		if _, err := os.Stat(filepath.Join(d.Dir, file)); os.IsNotExist(err) {
			missing = append(missing, file)
		}
	}

	if len(missing) > 0 {
		res.Detail = "missing: " + strings.Join(missing, ", ")
		return res
	}

	res.Passed = true
	res.Detail = "all present"
	return res
}

// checkAPIKey verifies the .env file exists and holds a configured TMDb
// API key. The placeholder value from the template counts as
// unconfigured. Configured keys are displayed masked.
func (d *Doctor) checkAPIKey() model.CheckResult {
	res := model.CheckResult{Name: "API Key"}

	envPath := filepath.Join(d.Dir, config.EnvFile)
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		res.Detail = fmt.Sprintf("%s not found — run 'tmdb-builder setup' to seed it", config.EnvFile)
		return res
	}

	env, err := godotenv.Read(envPath)
	if err != nil {
		res.Detail = fmt.Sprintf("cannot read %s: %v", config.EnvFile, err)
		return res
	}

	key := env[config.APIKeyVar]
	switch {
	case key == "":
		res.Detail = fmt.Sprintf("%s not set in %s", config.APIKeyVar, config.EnvFile)
	case key == config.APIKeyPlaceholder:
		res.Detail = fmt.Sprintf("%s still holds the example value — replace it with your real key",
			config.APIKeyVar)
	default:
		res.Passed = true
		res.Detail = fmt.Sprintf("%s configured (%s)", config.APIKeyVar, config.MaskAPIKey(key))
	}
	return res
}

// Print renders the report as the per-check listing and summary shown
// by the check command.
func Print(w io.Writer, report *model.CheckReport) {
	fmt.Fprintln(w, "TMDb Dataset Builder — environment check")
	fmt.Fprintln(w, strings.Repeat("=", 60))

	for _, res := range report.Results {
		status := "FAIL"
		if res.Passed {
			status = "ok"
		}
		fmt.Fprintf(w, "%-22s %-4s  %s\n", res.Name, status, res.Detail)
	}

	fmt.Fprintln(w, strings.Repeat("=", 60))
	if report.AllPassed() {
		fmt.Fprintln(w, "Everything is configured correctly.")
	} else {
		fmt.Fprintln(w, "Some problems were found. Review the lines marked FAIL above.")
	}
}
