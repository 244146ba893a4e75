package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/moviedata/tmdb-builder/internal/cache"
	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/fetch"
	"github.com/moviedata/tmdb-builder/internal/model"
	"github.com/moviedata/tmdb-builder/internal/tmdb"
)

// stubSource serves canned payloads keyed by TMDb ID or lowercase
// title. Unknown lookups return a no-match; titles in failErr return
// the configured error.
type stubSource struct {
	byTitle map[string]int
	details map[int]*tmdb.Details
	failErr map[string]error
}

func (s *stubSource) SearchMovie(_ context.Context, title string, _ *int) (*tmdb.SearchResult, error) {
	if err, ok := s.failErr[strings.ToLower(title)]; ok {
		return nil, err
	}
	id, ok := s.byTitle[strings.ToLower(title)]
	if !ok {
		return nil, nil
	}
	return &tmdb.SearchResult{ID: id, Title: title}, nil
}

func (s *stubSource) MovieDetails(_ context.Context, id int) (*tmdb.Details, error) {
	return s.details[id], nil
}

func (s *stubSource) Credits(_ context.Context, _ int) (*tmdb.Credits, error) {
	return nil, nil
}

func (s *stubSource) Keywords(_ context.Context, _ int) ([]tmdb.Keyword, error) {
	return nil, nil
}

func details(id int, title, date string) *tmdb.Details {
	return &tmdb.Details{
		ID:          id,
		Title:       title,
		Overview:    "A long enough overview for the record to pass validation.",
		ReleaseDate: date,
		Genres:      []tmdb.Genre{{ID: 18, Name: "Drama"}},
	}
}

// newTestPipeline wires a pipeline against a temp working directory and
// the given stub source. Returns the pipeline and the directory.
func newTestPipeline(t *testing.T, source fetch.Source) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()

	store, err := cache.Open(dir)
	require.NoError(t, err)

	settings := config.DefaultSettings()
	p := &Pipeline{
		Dir: dir,
		Fetcher: &fetch.Fetcher{
			Source:   source,
			Cache:    store,
			Settings: settings,
			Log:      zerolog.Nop(),
		},
		Settings: settings,
		Log:      zerolog.Nop(),
		Out:      &bytes.Buffer{},
	}
	return p, dir
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

// TestRunEndToEnd verifies a mixed input: two resolvable titles, one
// miss. The output CSV, the run report and the saved cache all reflect
// the run.
func TestRunEndToEnd(t *testing.T) {
	source := &stubSource{
		byTitle: map[string]int{"the matrix": 603, "alien": 348},
		details: map[int]*tmdb.Details{
			603: details(603, "The Matrix", "1999-03-30"),
			348: details(348, "Alien", "1979-05-25"),
		},
	}
	p, dir := newTestPipeline(t, source)

	input := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(input,
		[]byte("title\nThe Matrix\nAlien\nNo Such Movie\n"), 0o644))
	output := filepath.Join(dir, "movies.csv")

	stats, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Success)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Invalid)

	records := readCSVFile(t, output)
	require.Len(t, records, 3, "header plus two movies")

	// The run report landed in logs/ and carries the counters.
	reportData, err := os.ReadFile(filepath.Join(dir, config.LogDir, config.ReportFileName))
	require.NoError(t, err)

	var report RunReport
	require.NoError(t, yaml.Unmarshal(reportData, &report))
	assert.Equal(t, 3, report.Rows.Total)
	assert.Equal(t, 2, report.Rows.Success)
	assert.Equal(t, 1, report.Rows.Failed)

	// The cache was persisted.
	_, err = os.Stat(filepath.Join(dir, config.CacheDir, config.CacheFileName))
	assert.NoError(t, err)
}

// TestRunSecondPassServedFromCache verifies a re-run of the same input
// hits the cache for every row.
func TestRunSecondPassServedFromCache(t *testing.T) {
	source := &stubSource{
		byTitle: map[string]int{"the matrix": 603},
		details: map[int]*tmdb.Details{603: details(603, "The Matrix", "1999-03-30")},
	}
	p, dir := newTestPipeline(t, source)

	input := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(input, []byte("title\nThe Matrix\n"), 0o644))
	output := filepath.Join(dir, "movies.csv")

	_, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)

	stats, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Success)
	assert.Equal(t, 1, stats.FromCache)
}

// TestRunValidationRejects verifies movies failing the quality gate are
// counted as invalid and left out of the output.
func TestRunValidationRejects(t *testing.T) {
	bad := details(42, "Short", "2001-01-01")
	bad.Overview = "Too short."
	source := &stubSource{
		byTitle: map[string]int{"short": 42},
		details: map[int]*tmdb.Details{42: bad},
	}
	p, dir := newTestPipeline(t, source)

	input := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(input, []byte("title\nShort\n"), 0o644))
	output := filepath.Join(dir, "movies.csv")

	stats, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Success)
	assert.Equal(t, 1, stats.Invalid)
	assert.Len(t, readCSVFile(t, output), 1, "header only")
}

// TestRunWritesCheckpoints verifies the periodic checkpoint file.
func TestRunWritesCheckpoints(t *testing.T) {
	source := &stubSource{
		byTitle: map[string]int{"the matrix": 603, "alien": 348},
		details: map[int]*tmdb.Details{
			603: details(603, "The Matrix", "1999-03-30"),
			348: details(348, "Alien", "1979-05-25"),
		},
	}
	p, dir := newTestPipeline(t, source)
	p.Checkpoints = true
	p.Settings.CheckpointInterval = 1

	input := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(input, []byte("title\nThe Matrix\nAlien\n"), 0o644))
	output := filepath.Join(dir, "movies.csv")

	_, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)

	records := readCSVFile(t, CheckpointPath(output))
	assert.Len(t, records, 3, "checkpoint holds everything fetched so far")
}

// TestRunFatalAPIErrorAborts verifies a fatal error stops the run but
// still persists the rows fetched before it.
func TestRunFatalAPIErrorAborts(t *testing.T) {
	source := &stubSource{
		byTitle: map[string]int{"the matrix": 603},
		details: map[int]*tmdb.Details{603: details(603, "The Matrix", "1999-03-30")},
		failErr: map[string]error{
			"alien": model.NewCLIError(model.ExitFetchError, "TMDb rejected the API key (HTTP 401)"),
		},
	}
	p, dir := newTestPipeline(t, source)

	input := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(input, []byte("title\nThe Matrix\nAlien\nBlade Runner\n"), 0o644))
	output := filepath.Join(dir, "movies.csv")

	_, err := p.Run(context.Background(), input, output)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitFetchError, cliErr.Code)

	// The movie fetched before the abort was written out.
	records := readCSVFile(t, output)
	assert.Len(t, records, 2)
}

// TestRunTransientErrorContinues verifies a non-fatal fetch error only
// fails its own row.
func TestRunTransientErrorContinues(t *testing.T) {
	source := &stubSource{
		byTitle: map[string]int{"the matrix": 603},
		details: map[int]*tmdb.Details{603: details(603, "The Matrix", "1999-03-30")},
		failErr: map[string]error{"alien": errors.New("connection reset")},
	}
	p, dir := newTestPipeline(t, source)

	input := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(input, []byte("title\nAlien\nThe Matrix\n"), 0o644))
	output := filepath.Join(dir, "movies.csv")

	stats, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Success)
}

// TestRunEmptyInput verifies the input-error exit code when no usable
// rows remain after parsing.
func TestRunEmptyInput(t *testing.T) {
	p, dir := newTestPipeline(t, &stubSource{})

	input := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(input, []byte("title\n\n"), 0o644))

	_, err := p.Run(context.Background(), input, filepath.Join(dir, "movies.csv"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitInputError, cliErr.Code)
}

// TestPrintSummary sanity-checks the summary block rendering.
func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, model.FetchStats{Total: 10, Success: 8, Failed: 1, Invalid: 1},
		model.CacheStats{Hits: 4, Misses: 6}, "processed/movies.csv")

	out := buf.String()
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "40.0%")
	assert.Contains(t, out, "processed/movies.csv")
}
