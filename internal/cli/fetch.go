// Package cli — fetch.go implements the "tmdb-builder fetch" command.
//
// Fetch is the dataset pipeline: it reads an input CSV of movie titles
// (optionally with year and tmdb_id hint columns), resolves each row
// against the TMDb API through the persistent cache, validates the
// results, and writes the enriched dataset CSV with periodic
// checkpoints.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/moviedata/tmdb-builder/internal/cache"
	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/fetch"
	"github.com/moviedata/tmdb-builder/internal/model"
	"github.com/moviedata/tmdb-builder/internal/pipeline"
	"github.com/moviedata/tmdb-builder/internal/tmdb"
)

// fetchFlags holds the flag values for the fetch command.
type fetchFlags struct {
	input         string // -i/--input: input CSV path (required)
	output        string // -o/--output: output CSV path
	apiKey        string // --api-key: overrides env var and .env
	logLevel      string // --log-level: zerolog level for the pipeline log
	noCache       bool   // --no-cache: bypass the persistent cache
	noCredits     bool   // --no-credits: skip cast/director enrichment
	noKeywords    bool   // --no-keywords: skip keyword enrichment
	noCheckpoints bool   // --no-checkpoints: skip periodic partial writes
}

// NewFetchCommand creates the "fetch" cobra command.
func NewFetchCommand() *cobra.Command {
	flags := &fetchFlags{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Build the enriched movie dataset from an input CSV",
		Long: `Fetch movie data from the TMDb API for every row of the input CSV and
write the enriched dataset.

The input must have a "title" header column; optional "year" and
"tmdb_id" columns improve match precision. Results are cached on disk,
so interrupted runs resume cheaply.

Examples:
  tmdb-builder fetch -i examples/sample_movies.csv
  tmdb-builder fetch -i movies.csv -o processed/movies.csv --no-keywords
  tmdb-builder fetch -i movies.csv --api-key $TMDB_API_KEY --log-level debug`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "Input CSV file with a \"title\" column (required)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output CSV file (default: processed/movies.csv)")
	cmd.Flags().StringVar(&flags.apiKey, "api-key", "", "TMDb API key (overrides TMDB_API_KEY and .env)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "info", "Pipeline log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Bypass the persistent movie cache")
	cmd.Flags().BoolVar(&flags.noCredits, "no-credits", false, "Skip cast and director enrichment")
	cmd.Flags().BoolVar(&flags.noKeywords, "no-keywords", false, "Skip keyword enrichment")
	cmd.Flags().BoolVar(&flags.noCheckpoints, "no-checkpoints", false, "Skip periodic checkpoint writes")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// runFetch wires the settings, API key, cache, client and pipeline, then
// executes the dataset build.
func runFetch(ctx context.Context, flags *fetchFlags) error {
	dir := workingDir()
	VerboseLog("Working directory: %s", dir)

	// Settings: defaults overridden by an optional tmdb-builder.jsonc,
	// then by the command-line toggles.
	settings, err := config.Load(dir)
	if err != nil {
		return err
	}
	if flags.noCredits {
		settings.EnableCredits = false
	}
	if flags.noKeywords {
		settings.EnableKeywords = false
	}

	apiKey, err := resolveAPIKey(dir, flags.apiKey)
	if err != nil {
		return err
	}
	VerboseLog("API key: %s", config.MaskAPIKey(apiKey))

	output := flags.output
	if output == "" {
		output = filepath.Join(dir, config.OutputDir, "movies.csv")
	}
	if mkErr := os.MkdirAll(filepath.Dir(output), 0o755); mkErr != nil {
		return model.WrapCLIError(model.ExitGeneralError, "cannot create output directory", mkErr)
	}

	log, closeLog, err := pipeline.NewLogger(dir, flags.logLevel)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "logging setup failed", err)
	}
	defer closeLog()

	var store *cache.Store
	if !flags.noCache {
		store, err = cache.Open(dir)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "cannot open movie cache", err)
		}
	}

	client := tmdb.NewClient(apiKey, settings, log)

	p := &pipeline.Pipeline{
		Dir: dir,
		Fetcher: &fetch.Fetcher{
			Source:   client,
			Cache:    store,
			Settings: settings,
			Log:      log,
		},
		Settings:     settings,
		Log:          log,
		Out:          os.Stdout,
		Checkpoints:  !flags.noCheckpoints,
		ShowProgress: !IsJSONOutput(),
	}
	if IsJSONOutput() {
		// The summary block belongs to text mode; JSON mode prints the
		// stats object below instead.
		p.Out = io.Discard
	}

	stats, err := p.Run(ctx, flags.input, output)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		data, jsonErr := json.MarshalIndent(stats, "", "  ")
		if jsonErr != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to encode stats", jsonErr)
		}
		fmt.Println(string(data))
	}
	return nil
}

// resolveAPIKey picks the API key: the --api-key flag wins, then the
// TMDB_API_KEY environment variable, then the .env file. A missing or
// placeholder key is fatal with its own exit code.
func resolveAPIKey(dir, flagValue string) (string, error) {
	key := flagValue
	if key == "" {
		loaded, err := config.LoadAPIKey(dir)
		if err != nil {
			return "", err
		}
		key = loaded
	}

	if key == "" || key == config.APIKeyPlaceholder {
		return "", model.NewCLIError(model.ExitAPIKeyMissing,
			fmt.Sprintf("no TMDb API key configured — set %s in %s or pass --api-key",
				config.APIKeyVar, config.EnvFile))
	}
	return key, nil
}
