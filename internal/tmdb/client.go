// Package tmdb is the HTTP client for the TMDb v3 REST API.
//
// The client enforces a request-rate ceiling, retries transient failures
// with exponential backoff, honors Retry-After on 429 responses, and
// aborts permanently on authorization failures. A 404 on the details
// endpoint means "movie does not exist" and is reported as a nil result
// rather than an error.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/model"
)

// errNotFound marks a 404 response internally; the public methods
// translate it into a nil result.
var errNotFound = errors.New("not found")

// Client talks to the TMDb API. Safe for use from a single pipeline
// goroutine; the rate limiter serializes requests if shared.
type Client struct {
	// BaseURL is the API root. Overridable for tests.
	BaseURL string

	apiKey   string
	settings config.Settings
	http     *http.Client
	log      zerolog.Logger

	// Rate limiting: requests are spaced at least RateLimitDelay apart.
	mu   sync.Mutex
	last time.Time
}

// NewClient returns a Client for the given API key and settings.
func NewClient(apiKey string, settings config.Settings, log zerolog.Logger) *Client {
	return &Client{
		BaseURL:  config.TMDBBaseURL,
		apiKey:   apiKey,
		settings: settings,
		http:     &http.Client{Timeout: settings.RequestTimeout()},
		log:      log,
	}
}

// SearchMovie looks a movie up by title, optionally narrowed by release
// year. Returns nil when the search has no results.
func (c *Client) SearchMovie(ctx context.Context, title string, year *int) (*SearchResult, error) {
	query := url.Values{"query": {title}}
	if year != nil {
		query.Set("year", strconv.Itoa(*year))
	}

	body, err := c.get(ctx, config.EndpointSearch, query)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	// TMDb orders search results by relevance; take the top hit.
	return &resp.Results[0], nil
}

// MovieDetails fetches the details for a TMDb movie ID. Returns nil
// (and no error) when the movie does not exist.
func (c *Client) MovieDetails(ctx context.Context, id int) (*Details, error) {
	body, err := c.get(ctx, fmt.Sprintf(config.EndpointMovie, id), nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var details Details
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("decode movie details: %w", err)
	}
	return &details, nil
}

// Credits fetches the cast and crew for a movie. Returns nil when the
// movie has no credits resource.
func (c *Client) Credits(ctx context.Context, id int) (*Credits, error) {
	body, err := c.get(ctx, fmt.Sprintf(config.EndpointCredits, id), nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var credits Credits
	if err := json.Unmarshal(body, &credits); err != nil {
		return nil, fmt.Errorf("decode credits: %w", err)
	}
	return &credits, nil
}

// Keywords fetches the thematic keywords for a movie. Returns an empty
// slice when the movie has none.
func (c *Client) Keywords(ctx context.Context, id int) ([]Keyword, error) {
	body, err := c.get(ctx, fmt.Sprintf(config.EndpointKeywords, id), nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var resp keywordsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	return resp.Keywords, nil
}

// get performs one rate-limited, retried GET against the API and
// returns the response body.
//
// Retry classification follows the TMDb failure modes: network errors
// and 5xx responses back off exponentially, a 429 waits out its
// Retry-After header, and 401/403 abort immediately as a fatal
// authorization failure.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	reqURL := c.BaseURL + path + "?" + query.Encode()

	operation := func() ([]byte, error) {
		c.waitForSlot()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", path, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response from %s: %w", path, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil

		case resp.StatusCode == http.StatusNotFound:
			return nil, backoff.Permanent(errNotFound)

		case config.FatalStatus(resp.StatusCode):
			return nil, backoff.Permanent(model.NewCLIError(model.ExitFetchError,
				fmt.Sprintf("TMDb rejected the API key (HTTP %d) — check %s",
					resp.StatusCode, config.APIKeyVar)))

		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, backoff.RetryAfter(retryAfterSeconds(resp))

		case config.RetryableStatus(resp.StatusCode):
			return nil, fmt.Errorf("%s returned HTTP %d", path, resp.StatusCode)

		default:
			return nil, backoff.Permanent(fmt.Errorf("%s returned HTTP %d", path, resp.StatusCode))
		}
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = time.Second
	expo.Multiplier = c.settings.RetryBackoffMultiplier
	expo.RandomizationFactor = 0

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(c.settings.MaxRetries)+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.log.Warn().
				Str("path", path).
				Dur("wait", wait).
				Err(err).
				Msg("retrying request")
		}),
	)
	if err != nil {
		return nil, err
	}

	c.log.Debug().Str("path", path).Msg("request ok")
	return body, nil
}

// retryAfterSeconds parses a 429 response's Retry-After header,
// defaulting to one second when absent or malformed.
func retryAfterSeconds(resp *http.Response) int {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return secs
		}
	}
	return 1
}

// waitForSlot blocks until the rate limiter allows the next request.
func (c *Client) waitForSlot() {
	c.mu.Lock()
	defer c.mu.Unlock()

	delay := c.settings.RateLimitDelay()
	if wait := delay - time.Since(c.last); wait > 0 {
		time.Sleep(wait)
	}
	c.last = time.Now()
}
