// Package model defines the domain types for the tmdb-builder CLI.
//
// All entities in this package are pure data structures with no external
// dependencies. They are shared between the bootstrapper, the environment
// doctor, and the dataset pipeline.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Movie is the enriched representation of a single film, assembled from
// the TMDb details, credits and keywords endpoints. It is the unit of
// work flowing through the fetch pipeline and the unit stored in the
// on-disk cache.
//
// Pointer fields distinguish "absent from the API response" from a zero
// value (e.g. a vote average of 0 vs no vote data at all); absent values
// are serialized as empty CSV cells.
type Movie struct {
	// TMDBID is the unique TMDb identifier for the movie. Always > 0
	// for a movie that passed validation.
	TMDBID int `json:"tmdb_id"`

	// Title is the (sanitized) display title.
	Title string `json:"title"`

	// Overview is the (sanitized) plot synopsis.
	Overview string `json:"overview"`

	// ReleaseDate is the release date in YYYY-MM-DD form, as returned
	// by the API. May be empty for unreleased titles.
	ReleaseDate string `json:"release_date"`

	// Year is the release year extracted from ReleaseDate.
	// Nil when ReleaseDate is empty or unparsable.
	Year *int `json:"year,omitempty"`

	// Genres holds the genre display names; GenreIDs the matching
	// TMDb genre identifiers, in the same order.
	Genres   []string `json:"genres,omitempty"`
	GenreIDs []int    `json:"genre_ids,omitempty"`

	// Community rating fields.
	VoteAverage *float64 `json:"vote_average,omitempty"`
	VoteCount   *int     `json:"vote_count,omitempty"`
	Popularity  *float64 `json:"popularity,omitempty"`

	// Optional descriptive fields, present when the API provides them.
	OriginalTitle    string `json:"original_title,omitempty"`
	OriginalLanguage string `json:"original_language,omitempty"`
	Runtime          *int   `json:"runtime,omitempty"`
	PosterPath       string `json:"poster_path,omitempty"`
	BackdropPath     string `json:"backdrop_path,omitempty"`
	Tagline          string `json:"tagline,omitempty"`
	Budget           *int64 `json:"budget,omitempty"`
	Revenue          *int64 `json:"revenue,omitempty"`

	// Credits fields, populated when credits fetching is enabled.
	// Cast holds the top-billed actor names (at most the configured
	// top-cast count), CastIDs their TMDb person IDs in the same order,
	// Director the first credited director.
	Cast     []string `json:"cast,omitempty"`
	CastIDs  []int    `json:"cast_ids,omitempty"`
	Director string   `json:"director,omitempty"`

	// Keywords holds the thematic keyword names, populated when keyword
	// fetching is enabled.
	Keywords []string `json:"keywords,omitempty"`

	// FetchedAt records when the movie was retrieved from the API.
	// Set by the cache when the entry is stored.
	FetchedAt string `json:"fetched_at,omitempty"`
}

// InputRow is one row of the user-supplied input CSV. Title is required;
// Year and TMDBID improve match precision when present.
type InputRow struct {
	// Title is the movie title to look up. Never empty for a parsed row.
	Title string

	// Year is the release year hint. Nil when the input has no year
	// column or the cell is empty.
	Year *int

	// TMDBID is the TMDb identifier hint. Nil when not provided.
	// When valid (> 0) it takes precedence over title search.
	TMDBID *int
}

// CheckResult is the outcome of a single environment doctor check.
type CheckResult struct {
	// Name identifies the check (e.g. "Python Version", "API Key").
	Name string `json:"name"`

	// Passed reports whether the check succeeded.
	Passed bool `json:"passed"`

	// Detail is a human-readable explanation: the discovered value on
	// success, the problem plus a remediation hint on failure.
	Detail string `json:"detail,omitempty"`
}

// CheckReport aggregates the results of a full doctor run.
type CheckReport struct {
	Results []CheckResult `json:"results"`
}

// AllPassed reports whether every check in the report succeeded.
// An empty report counts as passed.
func (r *CheckReport) AllPassed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// FetchStats accumulates counters for one pipeline run. All counters are
// updated by the pipeline goroutine only; no synchronization is needed.
type FetchStats struct {
	// Total is the number of input rows processed.
	Total int `json:"total" yaml:"total"`

	// Success counts movies fetched, validated and written to the output.
	Success int `json:"success" yaml:"success"`

	// Failed counts rows whose movie could not be found or fetched.
	Failed int `json:"failed" yaml:"failed"`

	// Invalid counts movies fetched but rejected by validation.
	Invalid int `json:"invalid" yaml:"invalid"`

	// FromCache counts lookups served from the persistent cache.
	FromCache int `json:"from_cache" yaml:"from_cache"`

	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// CacheStats is a snapshot of the persistent cache's counters.
type CacheStats struct {
	// Size is the number of entries currently held.
	Size int `json:"size" yaml:"size"`

	// Hits and Misses count lookups since the cache was opened.
	Hits   int `json:"hits" yaml:"hits"`
	Misses int `json:"misses" yaml:"misses"`
}

// HitRate returns the cache hit percentage (0–100).
// Returns 0 when no lookups have been recorded.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// FormatDuration renders a duration as a compact human-readable string,
// e.g. "2h 15m 33s" or "4s". Sub-second durations round down to "0s".
func FormatDuration(d time.Duration) string {
	total := int(d.Seconds())
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}

// FormatPercentage renders value/total as a percentage string with one
// decimal place, e.g. "87.4%". A zero total yields "0.0%".
func FormatPercentage(value, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(value)/float64(total)*100)
}

// ExitCode defines standard CLI exit codes. These codes allow scripts and
// CI systems to programmatically determine the outcome of a command.
//
// The setup command uses only ExitSuccess and ExitGeneralError: its
// contract is exit 0 on completion (a failed self-test included) and
// exit 1 when no usable Python interpreter is found.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred. This is
	// also the code for a missing Python interpreter during setup.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the project configuration file or the
	// .env secrets file could not be read or parsed.
	ExitConfigError ExitCode = 2

	// ExitAPIKeyMissing indicates no TMDb API key was provided via flag,
	// environment variable or .env file.
	ExitAPIKeyMissing ExitCode = 3

	// ExitInputError indicates the input CSV was missing or malformed.
	ExitInputError ExitCode = 4

	// ExitFetchError indicates the pipeline aborted on a fatal API error
	// (e.g. an invalid API key rejected with 401).
	ExitFetchError ExitCode = 5

	// ExitCheckFailed indicates one or more doctor checks failed when
	// running the standalone check command.
	ExitCheckFailed ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
