// Package pipeline drives the dataset build: read the input CSV, fetch
// and validate each movie, write the output CSV with periodic
// checkpoints, and report on the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/fetch"
	"github.com/moviedata/tmdb-builder/internal/model"
	"github.com/moviedata/tmdb-builder/internal/validate"
)

// Pipeline processes one input CSV into one output dataset.
type Pipeline struct {
	// Dir is the working directory (for the cache, logs and report).
	Dir string

	// Fetcher resolves input rows to enriched movies.
	Fetcher *fetch.Fetcher

	// Settings control the schema, checkpoint interval and validation.
	Settings config.Settings

	// Log receives structured progress events.
	Log zerolog.Logger

	// Out receives the progress bar and the final summary.
	Out io.Writer

	// Checkpoints enables periodic partial output writes.
	Checkpoints bool

	// ShowProgress enables the interactive progress bar.
	ShowProgress bool
}

// Run executes the pipeline. Rows that cannot be resolved or fail
// validation are counted and skipped; only fatal API errors (rejected
// API key) or I/O failures abort the run. On a fatal abort the rows
// fetched so far are still written out and the cache is saved, so the
// work is not lost.
func (p *Pipeline) Run(ctx context.Context, inputPath, outputPath string) (model.FetchStats, error) {
	stats := model.FetchStats{}
	start := time.Now()

	rows, err := ReadInput(inputPath)
	if err != nil {
		return stats, err
	}
	if len(rows) == 0 {
		return stats, model.NewCLIError(model.ExitInputError, "input CSV has no usable rows")
	}
	stats.Total = len(rows)

	p.Log.Info().
		Int("rows", len(rows)).
		Str("input", inputPath).
		Str("output", outputPath).
		Msg("starting dataset build")

	schema := config.OutputSchema(p.Settings.EnableCredits, p.Settings.EnableKeywords)
	bar := p.newProgressBar(len(rows))

	var movies []*model.Movie
	for _, row := range rows {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stats, p.finish(inputPath, outputPath, schema, movies, &stats, start, ctxErr)
		}

		movie, fromCache, fetchErr := p.Fetcher.FetchRow(ctx, row)
		_ = bar.Add(1)

		if fetchErr != nil {
			var cliErr *model.CLIError
			if errors.As(fetchErr, &cliErr) {
				// Fatal (e.g. rejected API key): no later row can succeed.
				return stats, p.finish(inputPath, outputPath, schema, movies, &stats, start, fetchErr)
			}
			stats.Failed++
			p.Log.Warn().Err(fetchErr).Str("title", row.Title).Msg("fetch failed")
			continue
		}
		if movie == nil {
			stats.Failed++
			p.Log.Warn().Str("title", row.Title).Msg("no match found")
			continue
		}

		if validErr := validate.Movie(movie, p.Settings); validErr != nil {
			stats.Invalid++
			p.Log.Warn().Err(validErr).Str("title", movie.Title).Msg("rejected by validation")
			continue
		}

		stats.Success++
		if fromCache {
			stats.FromCache++
		}
		movies = append(movies, movie)

		if p.Checkpoints && stats.Success%p.Settings.CheckpointInterval == 0 {
			if cpErr := WriteOutput(CheckpointPath(outputPath), movies, schema); cpErr != nil {
				p.Log.Warn().Err(cpErr).Msg("checkpoint write failed")
			} else {
				p.Log.Info().Int("movies", len(movies)).Msg("checkpoint written")
			}
		}
	}

	return stats, p.finish(inputPath, outputPath, schema, movies, &stats, start, nil)
}

// finish writes the output, saves the cache, records the run report and
// prints the summary. When the run is aborting (cause != nil) the
// partial results are still persisted and the cause is returned.
func (p *Pipeline) finish(inputPath, outputPath string, schema []string,
	movies []*model.Movie, stats *model.FetchStats, start time.Time, cause error) error {

	stats.Duration = time.Since(start)

	if len(movies) > 0 || cause == nil {
		if err := WriteOutput(outputPath, movies, schema); err != nil {
			if cause != nil {
				return cause
			}
			return fmt.Errorf("write output: %w", err)
		}
	}

	var cacheStats model.CacheStats
	if p.Fetcher.Cache != nil {
		cacheStats = p.Fetcher.Cache.Stats()
		if err := p.Fetcher.Cache.Save(); err != nil {
			p.Log.Warn().Err(err).Msg("cache save failed")
		}
	}

	if err := writeRunReport(p.Dir, newRunReport(inputPath, outputPath, *stats, cacheStats)); err != nil {
		p.Log.Warn().Err(err).Msg("run report write failed")
	}

	if cause != nil {
		p.Log.Error().Err(cause).Msg("dataset build aborted")
		return cause
	}

	p.Log.Info().
		Int("success", stats.Success).
		Int("failed", stats.Failed).
		Int("invalid", stats.Invalid).
		Msg("dataset build finished")
	PrintSummary(p.Out, *stats, cacheStats, outputPath)
	return nil
}

// newProgressBar returns the interactive bar, or a silent one when
// progress display is off.
func (p *Pipeline) newProgressBar(total int) *progressbar.ProgressBar {
	if !p.ShowProgress {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.Out),
		progressbar.OptionSetDescription("fetching movies"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
}

// PrintSummary renders the end-of-run statistics block.
func PrintSummary(w io.Writer, stats model.FetchStats, cacheStats model.CacheStats, outputPath string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Dataset build complete")
	fmt.Fprintf(w, "  rows processed:  %d\n", stats.Total)
	fmt.Fprintf(w, "  succeeded:       %d (%s)\n", stats.Success, model.FormatPercentage(stats.Success, stats.Total))
	fmt.Fprintf(w, "  failed:          %d\n", stats.Failed)
	fmt.Fprintf(w, "  invalid:         %d\n", stats.Invalid)
	fmt.Fprintf(w, "  from cache:      %d\n", stats.FromCache)
	fmt.Fprintf(w, "  cache hit rate:  %.1f%%\n", cacheStats.HitRate())
	fmt.Fprintf(w, "  duration:        %s\n", model.FormatDuration(stats.Duration))
	fmt.Fprintf(w, "  output:          %s\n", outputPath)
}
