// Package config centralizes the named constants and tunable settings for
// tmdb-builder.
//
// Everything that was a scattered literal in the original setup scripts
// (directory names, file names, version floors) lives here as a named
// constant. Runtime-tunable values (rate limits, retry policy, validation
// rules) are collected in Settings, which can be overridden by an optional
// tmdb-builder.jsonc file in the working directory.
//
// The settings file supports JSONC (JSON with Comments), so this package
// uses github.com/tidwall/jsonc to strip comments before parsing with the
// standard encoding/json library.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"

	"github.com/moviedata/tmdb-builder/internal/model"
)

// TMDb API surface.
const (
	// TMDBBaseURL is the base URL of the TMDb v3 REST API.
	TMDBBaseURL = "https://api.themoviedb.org/3"

	// Endpoint path templates. The movie endpoints take a TMDb movie ID.
	EndpointSearch   = "/search/movie"
	EndpointMovie    = "/movie/%d"
	EndpointCredits  = "/movie/%d/credits"
	EndpointKeywords = "/movie/%d/keywords"
)

// Workspace layout. These names form the file-system contract of the
// setup command and are shared with the environment doctor.
const (
	// VenvDir is the virtual environment directory created by setup.
	VenvDir = "venv"

	// RequirementsFile is the Python dependency manifest installed into
	// the virtual environment.
	RequirementsFile = "requirements.txt"

	// EnvFile holds local secrets (the TMDb API key). Created once from
	// EnvExampleFile and never overwritten by setup.
	EnvFile = ".env"

	// EnvExampleFile is the checked-in template for EnvFile.
	EnvExampleFile = ".env.example"

	// Working directories ensured by setup.
	CacheDir    = "cache"
	OutputDir   = "processed"
	LogDir      = "logs"
	ExamplesDir = "examples"
	TestsDir    = "tests"

	// CacheFileName is the persistent movie cache inside CacheDir.
	CacheFileName = "tmdb_cache.json"

	// LogFileName is the pipeline log file inside LogDir.
	LogFileName = "tmdb_fetcher.log"

	// ReportFileName is the YAML run report written inside LogDir after
	// each pipeline run.
	ReportFileName = "run_report.yaml"

	// CheckpointSuffix is appended to the output file stem to form the
	// periodic checkpoint file name.
	CheckpointSuffix = "_checkpoint.csv"

	// SettingsFileName is the optional project override file, parsed as
	// JSONC so it may carry comments.
	SettingsFileName = "tmdb-builder.jsonc"
)

// API key handling.
const (
	// APIKeyVar is the environment variable (and .env key) holding the
	// TMDb API key.
	APIKeyVar = "TMDB_API_KEY"

	// APIKeyPlaceholder is the template value shipped in .env.example.
	// The doctor rejects it as unconfigured.
	APIKeyPlaceholder = "your_api_key_here"
)

// Python environment requirements.
const (
	// MinPythonMajor and MinPythonMinor define the interpreter version
	// floor enforced by setup and the doctor.
	MinPythonMajor = 3
	MinPythonMinor = 8
)

// WorkingDirs returns the fixed set of directories ensured by setup,
// in creation order.
func WorkingDirs() []string {
	return []string{CacheDir, OutputDir, LogDir, ExamplesDir, TestsDir}
}

// AnalysisPackages returns the Python import names the doctor verifies
// inside the virtual environment. These correspond to the entries of
// requirements.txt (python-dotenv imports as "dotenv").
func AnalysisPackages() []string {
	return []string{"requests", "pandas", "tqdm", "dotenv"}
}

// Output CSV schema, in column order. The credits and keywords blocks are
// appended only when the corresponding feature is enabled.
var (
	essentialFields = []string{"tmdb_id", "title", "overview", "release_date", "year"}
	importantFields = []string{"genres", "genre_ids", "vote_average", "vote_count", "popularity"}
	optionalFields  = []string{
		"original_title", "original_language", "runtime", "poster_path",
		"backdrop_path", "tagline", "budget", "revenue",
	}
	creditsFields  = []string{"cast", "cast_ids", "director"}
	keywordsFields = []string{"keywords"}
)

// OutputSchema returns the ordered output CSV column names for the given
// feature flags. The returned slice is freshly allocated on each call.
func OutputSchema(credits, keywords bool) []string {
	schema := make([]string, 0, len(essentialFields)+len(importantFields)+len(optionalFields)+len(creditsFields)+len(keywordsFields))
	schema = append(schema, essentialFields...)
	schema = append(schema, importantFields...)
	schema = append(schema, optionalFields...)
	if credits {
		schema = append(schema, creditsFields...)
	}
	if keywords {
		schema = append(schema, keywordsFields...)
	}
	return schema
}

// Settings holds the runtime-tunable configuration for the fetch
// pipeline. Field defaults mirror the original project's configuration;
// a tmdb-builder.jsonc file in the working directory may override any
// subset of them.
type Settings struct {
	// RequestsPerSecond caps the API request rate. TMDb allows 50 req/s;
	// the default of 45 leaves headroom.
	RequestsPerSecond int `json:"requestsPerSecond"`

	// MaxRetries is the number of retry attempts for retryable HTTP
	// failures (on top of the initial attempt).
	MaxRetries int `json:"maxRetries"`

	// RetryBackoffMultiplier is the exponential backoff factor between
	// retries (1s, 2s, 4s with the default of 2).
	RetryBackoffMultiplier float64 `json:"retryBackoffMultiplier"`

	// RequestTimeoutSeconds bounds each HTTP request.
	RequestTimeoutSeconds int `json:"requestTimeoutSeconds"`

	// CheckpointInterval is the number of successfully fetched movies
	// between checkpoint CSV writes.
	CheckpointInterval int `json:"checkpointInterval"`

	// TopCastCount is how many top-billed actors to keep per movie.
	TopCastCount int `json:"topCastCount"`

	// EnableCredits and EnableKeywords toggle the extra per-movie
	// enrichment requests.
	EnableCredits  bool `json:"enableCredits"`
	EnableKeywords bool `json:"enableKeywords"`

	// Validation rules.
	MinOverviewLength int `json:"minOverviewLength"`
	MinYear           int `json:"minYear"`
	MaxYear           int `json:"maxYear"`
	MinGenres         int `json:"minGenres"`
}

// DefaultSettings returns the built-in settings, matching the original
// project's configuration module.
func DefaultSettings() Settings {
	return Settings{
		RequestsPerSecond:      45,
		MaxRetries:             3,
		RetryBackoffMultiplier: 2.0,
		RequestTimeoutSeconds:  10,
		CheckpointInterval:     100,
		TopCastCount:           10,
		EnableCredits:          true,
		EnableKeywords:         true,
		MinOverviewLength:      20,
		MinYear:                1888, // year of the first film ever made
		MaxYear:                2030, // allows announced future releases
		MinGenres:              1,
	}
}

// RequestTimeout returns the per-request timeout as a time.Duration.
func (s Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// RateLimitDelay returns the minimum spacing between API requests
// derived from RequestsPerSecond.
func (s Settings) RateLimitDelay() time.Duration {
	if s.RequestsPerSecond <= 0 {
		return 0
	}
	return time.Second / time.Duration(s.RequestsPerSecond)
}

// Validate checks the settings for values that would break the pipeline.
func (s Settings) Validate() error {
	if s.RequestsPerSecond < 1 {
		return fmt.Errorf("requestsPerSecond must be >= 1, got %d", s.RequestsPerSecond)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must be >= 0, got %d", s.MaxRetries)
	}
	if s.RetryBackoffMultiplier < 1 {
		return fmt.Errorf("retryBackoffMultiplier must be >= 1, got %g", s.RetryBackoffMultiplier)
	}
	if s.RequestTimeoutSeconds < 1 {
		return fmt.Errorf("requestTimeoutSeconds must be >= 1, got %d", s.RequestTimeoutSeconds)
	}
	if s.CheckpointInterval < 1 {
		return fmt.Errorf("checkpointInterval must be >= 1, got %d", s.CheckpointInterval)
	}
	if s.MinYear > s.MaxYear {
		return fmt.Errorf("minYear %d exceeds maxYear %d", s.MinYear, s.MaxYear)
	}
	return nil
}

// RetryableStatus reports whether an HTTP status code should trigger a
// retry (rate limiting and transient server errors).
func RetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// FatalStatus reports whether an HTTP status code indicates a permanent
// authorization failure that must not be retried.
func FatalStatus(code int) bool {
	return code == 401 || code == 403
}

// Load reads the settings for the given working directory. When no
// tmdb-builder.jsonc file exists the defaults are returned unchanged.
// When the file exists, its fields are unmarshaled OVER the defaults, so
// a partial file overrides only what it names.
//
// Returns a CLIError with ExitConfigError when the file exists but
// cannot be parsed or fails validation.
func Load(dir string) (Settings, error) {
	settings := DefaultSettings()

	path := filepath.Join(dir, SettingsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to read %s", SettingsFileName), err)
	}

	// Strip JSONC comments (// and /* */) and trailing commas before
	// parsing, so the settings file can be annotated by hand.
	cleanJSON := jsonc.ToJSON(data)

	if err := json.Unmarshal(cleanJSON, &settings); err != nil {
		return settings, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse %s", SettingsFileName), err)
	}

	if err := settings.Validate(); err != nil {
		return settings, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("invalid %s", SettingsFileName), err)
	}

	return settings, nil
}

// LoadAPIKey resolves the TMDb API key for the given working directory.
// A value already present in the process environment wins over the .env
// file, matching python-dotenv's non-overriding load order.
//
// Returns the empty string (not an error) when no key is configured
// anywhere; callers decide whether that is fatal.
func LoadAPIKey(dir string) (string, error) {
	if v := os.Getenv(APIKeyVar); v != "" {
		return v, nil
	}

	path := filepath.Join(dir, EnvFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return "", model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to read %s", EnvFile), err)
	}
	return env[APIKeyVar], nil
}

// MaskAPIKey hides the middle of an API key for display, keeping the
// first and last four characters. Keys of eight characters or fewer are
// fully masked so that nothing useful leaks.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	masked := make([]byte, len(key))
	copy(masked, key[:4])
	for i := 4; i < len(key)-4; i++ {
		masked[i] = '*'
	}
	copy(masked[len(key)-4:], key[len(key)-4:])
	return string(masked)
}
