// Package bootstrap implements the idempotent environment bootstrapper
// behind the "tmdb-builder setup" command.
//
// It prepares a local working environment for dataset-building work:
// locates a Python interpreter, creates a virtual environment, upgrades
// pip and installs the dependency manifest, ensures the working
// directories exist, seeds the .env secrets file from its template, and
// runs the environment self-test.
//
// Design decisions:
//   - The working directory, interpreter locator and command runner are
//     explicit fields of the Bootstrapper rather than ambient process
//     state, so every step is testable in isolation.
//   - Every creation step is idempotent: re-running setup never destroys
//     or overwrites pre-existing state. Existing venv/ and .env entries
//     produce warnings, not errors.
//   - Only the interpreter check is fatal. Installer failures (pip
//     upgrade, dependency install) are reported as warnings and the run
//     continues; the original setup scripts never checked these exit
//     codes, and that permissive contract is kept deliberately.
//   - Instead of sourcing an activation script, installer commands
//     address the virtual environment's own interpreter directly
//     (venv/bin/python, venv\Scripts\python.exe on Windows). This is the
//     cross-platform equivalent of activation for a non-interactive run.
package bootstrap
