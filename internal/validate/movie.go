// Package validate holds the record-level quality gate applied to
// fetched movies before they enter the output dataset.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/model"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// IsValidTMDBID reports whether id is a plausible TMDb identifier.
// TMDb ids are positive integers.
func IsValidTMDBID(id int) bool {
	return id > 0
}

// IsValidYear reports whether year falls in the accepted release-year
// window. The lower bound is the year of the first film ever made.
func IsValidYear(year int, s config.Settings) bool {
	return year >= s.MinYear && year <= s.MaxYear
}

// SanitizeText normalizes free-text fields for CSV output: newlines
// become spaces, runs of whitespace collapse to one space, double
// quotes become single quotes, and the result is trimmed.
func SanitizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, `"`, "'")
	text = whitespaceRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Movie checks a fetched movie against the dataset quality rules and
// returns nil when it may enter the output, or an error naming the
// first rule it breaks.
func Movie(m *model.Movie, s config.Settings) error {
	if m == nil {
		return fmt.Errorf("movie is nil")
	}
	if !IsValidTMDBID(m.TMDBID) {
		return fmt.Errorf("invalid tmdb_id %d", m.TMDBID)
	}
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("title is empty")
	}
	if m.Year != nil && !IsValidYear(*m.Year, s) {
		return fmt.Errorf("year %d outside %d–%d", *m.Year, s.MinYear, s.MaxYear)
	}
	if len(strings.TrimSpace(m.Overview)) < s.MinOverviewLength {
		return fmt.Errorf("overview shorter than %d characters", s.MinOverviewLength)
	}
	if len(m.Genres) < s.MinGenres {
		return fmt.Errorf("fewer than %d genres", s.MinGenres)
	}
	if m.VoteAverage != nil && (*m.VoteAverage < 0 || *m.VoteAverage > 10) {
		return fmt.Errorf("vote_average %.1f outside 0–10", *m.VoteAverage)
	}
	if m.VoteCount != nil && *m.VoteCount < 0 {
		return fmt.Errorf("vote_count %d is negative", *m.VoteCount)
	}
	return nil
}
