package bootstrap

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/model"
)

// Interpreter describes a discovered Python interpreter.
type Interpreter struct {
	// Path is the resolved executable path (e.g. /usr/bin/python3).
	Path string

	// Version is the full version string (e.g. "3.11.2").
	Version string

	// Major, Minor, Patch are the parsed version components.
	Major, Minor, Patch int
}

// MeetsMinimum reports whether the interpreter satisfies the configured
// version floor (Python 3.8).
func (i Interpreter) MeetsMinimum() bool {
	if i.Major != config.MinPythonMajor {
		return i.Major > config.MinPythonMajor
	}
	return i.Minor >= config.MinPythonMinor
}

// Locator finds a usable Python interpreter. The production
// implementation queries the execution PATH; tests substitute fakes so
// bootstrap behavior can be exercised without any interpreter installed.
type Locator interface {
	// Locate returns the best available interpreter, or an error when
	// none is discoverable.
	Locate(ctx context.Context) (Interpreter, error)
}

// PathLocator locates Python by searching the process PATH for the
// conventional interpreter names and querying each candidate's version.
//
// On Unix-like systems "python3" is preferred over "python" (which may
// still be Python 2 on older systems); on Windows the python.org
// installer registers "python" only, so the order is reversed.
type PathLocator struct{}

// candidateNames returns the interpreter names to try, in preference
// order for the current platform.
func (PathLocator) candidateNames() []string {
	if runtime.GOOS == "windows" {
		return []string{"python", "python3"}
	}
	return []string{"python3", "python"}
}

// Locate searches the PATH for a Python interpreter and returns the
// first candidate whose version can be determined.
func (l PathLocator) Locate(ctx context.Context) (Interpreter, error) {
	for _, name := range l.candidateNames() {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}

		// #nosec G204 — the path comes from exec.LookPath over fixed names
		out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
		if err != nil {
			continue
		}

		major, minor, patch, err := parsePythonVersion(string(out))
		if err != nil {
			continue
		}

		return Interpreter{
			Path:    path,
			Version: fmt.Sprintf("%d.%d.%d", major, minor, patch),
			Major:   major,
			Minor:   minor,
			Patch:   patch,
		}, nil
	}

	return Interpreter{}, model.NewCLIError(model.ExitGeneralError,
		fmt.Sprintf("Python %d.%d or newer is required but no interpreter was found on PATH",
			config.MinPythonMajor, config.MinPythonMinor))
}

// versionRegex matches the output of `python --version`, which is
// "Python X.Y.Z" on every supported interpreter (older Python 2
// interpreters print to stderr, which CombinedOutput also captures).
var versionRegex = regexp.MustCompile(`Python\s+(\d+)\.(\d+)(?:\.(\d+))?`)

// parsePythonVersion extracts the numeric version components from the
// interpreter's --version output.
func parsePythonVersion(output string) (major, minor, patch int, err error) {
	m := versionRegex.FindStringSubmatch(strings.TrimSpace(output))
	if m == nil {
		return 0, 0, 0, fmt.Errorf("unrecognized python version output: %q", strings.TrimSpace(output))
	}

	// The regex guarantees the captured groups are digit runs, so the
	// conversions cannot fail; errors are ignored accordingly.
	major, _ = strconv.Atoi(m[1])
	minor, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		patch, _ = strconv.Atoi(m[3])
	}
	return major, minor, patch, nil
}

// venvBinDir returns the name of the executables directory inside a
// virtual environment: "Scripts" on Windows, "bin" elsewhere.
func venvBinDir() string {
	if runtime.GOOS == "windows" {
		return "Scripts"
	}
	return "bin"
}

// VenvPython returns the path of the virtual environment's own Python
// interpreter relative to the given working directory. Invoking this
// interpreter directly is equivalent to running inside an activated
// environment.
func VenvPython(dir string) string {
	name := "python"
	if runtime.GOOS == "windows" {
		name = "python.exe"
	}
	return filepath.Join(dir, config.VenvDir, venvBinDir(), name)
}

// ActivateHint returns the platform-appropriate activation command shown
// in the completion banner.
func ActivateHint() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(config.VenvDir, "Scripts", "activate")
	}
	return "source " + config.VenvDir + "/bin/activate"
}
