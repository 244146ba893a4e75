package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/model"
)

// testSettings returns fast-retry settings so the failure tests don't
// sleep through real backoff intervals.
func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.RequestsPerSecond = 1000
	s.MaxRetries = 2
	return s
}

// newTestClient points a Client at an httptest server.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient("test-key", testSettings(), zerolog.Nop())
	c.BaseURL = server.URL
	return c
}

// TestMovieDetails verifies the details request path, the api_key query
// parameter, and the payload decoding.
func TestMovieDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/550", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 550,
			"title": "Fight Club",
			"overview": "An insomniac office worker crosses paths with a soap maker.",
			"release_date": "1999-10-15",
			"genres": [{"id": 18, "name": "Drama"}],
			"vote_average": 8.4,
			"vote_count": 26280,
			"runtime": 139,
			"budget": 63000000
		}`))
	})

	details, err := c.MovieDetails(context.Background(), 550)
	require.NoError(t, err)
	require.NotNil(t, details)

	assert.Equal(t, 550, details.ID)
	assert.Equal(t, "Fight Club", details.Title)
	assert.Equal(t, "1999-10-15", details.ReleaseDate)
	require.Len(t, details.Genres, 1)
	assert.Equal(t, "Drama", details.Genres[0].Name)
	assert.Equal(t, 8.4, *details.VoteAverage)
	assert.Equal(t, 139, *details.Runtime)
	assert.Equal(t, int64(63000000), *details.Budget)
}

// TestMovieDetailsNotFound verifies a 404 is "does not exist", not an
// error, and is not retried.
func TestMovieDetailsNotFound(t *testing.T) {
	var requests int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	details, err := c.MovieDetails(context.Background(), 999999999)
	require.NoError(t, err)
	assert.Nil(t, details)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests), "404 must not be retried")
}

// TestSearchMovie verifies the search query parameters and the
// top-result selection.
func TestSearchMovie(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "The Matrix", r.URL.Query().Get("query"))
		assert.Equal(t, "1999", r.URL.Query().Get("year"))

		_, _ = w.Write([]byte(`{"results": [
			{"id": 603, "title": "The Matrix", "release_date": "1999-03-30"},
			{"id": 604, "title": "The Matrix Reloaded", "release_date": "2003-05-15"}
		]}`))
	})

	year := 1999
	result, err := c.SearchMovie(context.Background(), "The Matrix", &year)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 603, result.ID)
}

// TestSearchMovieNoResults verifies an empty result list yields nil.
func TestSearchMovieNoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	})

	result, err := c.SearchMovie(context.Background(), "No Such Movie", nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

// TestCreditsAndKeywords verifies decoding of the enrichment endpoints.
func TestCreditsAndKeywords(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/550/credits":
			_, _ = w.Write([]byte(`{
				"cast": [
					{"id": 819, "name": "Edward Norton", "order": 0},
					{"id": 287, "name": "Brad Pitt", "order": 1}
				],
				"crew": [
					{"name": "David Fincher", "job": "Director"},
					{"name": "Jim Uhls", "job": "Screenplay"}
				]
			}`))
		case "/movie/550/keywords":
			_, _ = w.Write([]byte(`{"keywords": [
				{"id": 818, "name": "based on novel or book"},
				{"id": 4142, "name": "insomnia"}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	credits, err := c.Credits(context.Background(), 550)
	require.NoError(t, err)
	require.NotNil(t, credits)
	assert.Len(t, credits.Cast, 2)
	assert.Equal(t, "Edward Norton", credits.Cast[0].Name)
	assert.Equal(t, "Director", credits.Crew[0].Job)

	keywords, err := c.Keywords(context.Background(), 550)
	require.NoError(t, err)
	require.Len(t, keywords, 2)
	assert.Equal(t, "insomnia", keywords[1].Name)
}

// TestRetryOnServerError verifies a transient 500 is retried and the
// request eventually succeeds.
func TestRetryOnServerError(t *testing.T) {
	var requests int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"id": 550, "title": "Fight Club"}`))
	})

	details, err := c.MovieDetails(context.Background(), 550)
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

// TestFatalAuthNoRetry verifies a 401 aborts immediately with the fetch
// error exit code and no retry.
func TestFatalAuthNoRetry(t *testing.T) {
	var requests int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.MovieDetails(context.Background(), 550)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitFetchError, cliErr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests), "auth failures must not be retried")
}

// TestRateLimitHonorsRetryAfter verifies a 429 waits out the advertised
// Retry-After before the next attempt.
func TestRateLimitHonorsRetryAfter(t *testing.T) {
	var requests int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id": 550, "title": "Fight Club"}`))
	})

	start := time.Now()
	details, err := c.MovieDetails(context.Background(), 550)
	require.NoError(t, err)
	require.NotNil(t, details)

	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

// TestRequestSpacing verifies consecutive requests respect the minimum
// inter-request delay derived from the configured rate.
func TestRequestSpacing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": 1, "title": "x"}`))
	})
	s := testSettings()
	s.RequestsPerSecond = 20 // 50ms spacing
	c.settings = s

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.MovieDetails(context.Background(), 1)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
