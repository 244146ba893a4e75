package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/model"
)

func intPtr(v int) *int          { return &v }
func floatPtr(v float64) *float64 { return &v }

// validMovie returns a movie that passes every rule under the default
// settings; tests mutate single fields from here.
func validMovie() *model.Movie {
	return &model.Movie{
		TMDBID:      603,
		Title:       "The Matrix",
		Overview:    "A computer hacker learns from mysterious rebels about the true nature of his reality.",
		ReleaseDate: "1999-03-30",
		Year:        intPtr(1999),
		Genres:      []string{"Action", "Science Fiction"},
		VoteAverage: floatPtr(8.2),
		VoteCount:   intPtr(24000),
	}
}

// TestMovie runs the quality gate over single-field mutations of an
// otherwise valid movie.
func TestMovie(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.Movie)
		wantErr string
	}{
		{"valid", func(*model.Movie) {}, ""},
		{"nil year is valid", func(m *model.Movie) { m.Year = nil }, ""},
		{"nil votes are valid", func(m *model.Movie) { m.VoteAverage = nil; m.VoteCount = nil }, ""},
		{"zero tmdb_id", func(m *model.Movie) { m.TMDBID = 0 }, "tmdb_id"},
		{"negative tmdb_id", func(m *model.Movie) { m.TMDBID = -5 }, "tmdb_id"},
		{"empty title", func(m *model.Movie) { m.Title = "" }, "title"},
		{"whitespace title", func(m *model.Movie) { m.Title = "   " }, "title"},
		{"year before cinema", func(m *model.Movie) { m.Year = intPtr(1850) }, "year"},
		{"year too far out", func(m *model.Movie) { m.Year = intPtr(2099) }, "year"},
		{"short overview", func(m *model.Movie) { m.Overview = "Too short." }, "overview"},
		{"empty overview", func(m *model.Movie) { m.Overview = "" }, "overview"},
		{"vote average above scale", func(m *model.Movie) { m.VoteAverage = floatPtr(11) }, "vote_average"},
		{"negative vote average", func(m *model.Movie) { m.VoteAverage = floatPtr(-0.5) }, "vote_average"},
		{"negative vote count", func(m *model.Movie) { m.VoteCount = intPtr(-1) }, "vote_count"},
	}

	settings := config.DefaultSettings()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMovie()
			tt.mutate(m)

			err := Movie(m, settings)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

// TestMovieNil covers the nil-movie guard.
func TestMovieNil(t *testing.T) {
	assert.Error(t, Movie(nil, config.DefaultSettings()))
}

// TestMovieMinGenres verifies the optional genre floor.
func TestMovieMinGenres(t *testing.T) {
	settings := config.DefaultSettings()
	settings.MinGenres = 1

	m := validMovie()
	m.Genres = nil
	assert.ErrorContains(t, Movie(m, settings), "genres")

	m.Genres = []string{"Drama"}
	assert.NoError(t, Movie(m, settings))
}

// TestIsValidTMDBID covers the identifier boundary.
func TestIsValidTMDBID(t *testing.T) {
	assert.True(t, IsValidTMDBID(1))
	assert.True(t, IsValidTMDBID(550))
	assert.False(t, IsValidTMDBID(0))
	assert.False(t, IsValidTMDBID(-1))
}

// TestIsValidYear covers the release-year window boundaries.
func TestIsValidYear(t *testing.T) {
	s := config.DefaultSettings()

	assert.True(t, IsValidYear(1888, s))
	assert.True(t, IsValidYear(2030, s))
	assert.True(t, IsValidYear(1999, s))
	assert.False(t, IsValidYear(1887, s))
	assert.False(t, IsValidYear(2031, s))
}

// TestSanitizeText verifies the CSV-safety normalization.
func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "The Matrix", "The Matrix"},
		{"newlines", "line one\nline two", "line one line two"},
		{"windows newlines", "line one\r\nline two", "line one line two"},
		{"collapse spaces", "too   many    spaces", "too many spaces"},
		{"double quotes", `He said "hello"`, "He said 'hello'"},
		{"trim", "  padded  ", "padded"},
		{"empty", "", ""},
		{"mixed", "  a\n\"b\"   c\r\n ", "a 'b' c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.in))
		})
	}
}
