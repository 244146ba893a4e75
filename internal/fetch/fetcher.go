// Package fetch assembles enriched movie records from the TMDb API,
// serving repeat lookups from the persistent cache.
package fetch

import (
	"context"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/moviedata/tmdb-builder/internal/cache"
	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/model"
	"github.com/moviedata/tmdb-builder/internal/tmdb"
	"github.com/moviedata/tmdb-builder/internal/validate"
)

// Source is the slice of the TMDb client the fetcher depends on.
// Satisfied by *tmdb.Client; stubbed in pipeline tests.
type Source interface {
	SearchMovie(ctx context.Context, title string, year *int) (*tmdb.SearchResult, error)
	MovieDetails(ctx context.Context, id int) (*tmdb.Details, error)
	Credits(ctx context.Context, id int) (*tmdb.Credits, error)
	Keywords(ctx context.Context, id int) ([]tmdb.Keyword, error)
}

// Fetcher resolves input rows to enriched movies. Cache may be nil to
// disable caching entirely.
type Fetcher struct {
	Source   Source
	Cache    *cache.Store
	Settings config.Settings
	Log      zerolog.Logger
}

// FetchRow resolves one input row. A row with a valid TMDb ID is fetched
// by identifier; otherwise the title (plus optional year) is searched.
// Returns (nil, false, nil) when no matching movie exists, and reports
// whether the result came from the cache.
func (f *Fetcher) FetchRow(ctx context.Context, row model.InputRow) (*model.Movie, bool, error) {
	if row.TMDBID != nil && validate.IsValidTMDBID(*row.TMDBID) {
		return f.FetchByID(ctx, *row.TMDBID)
	}
	return f.FetchByTitle(ctx, row.Title, row.Year)
}

// FetchByID fetches and enriches a movie by its TMDb identifier.
func (f *Fetcher) FetchByID(ctx context.Context, id int) (*model.Movie, bool, error) {
	if f.Cache != nil {
		if m, ok := f.Cache.Get(cache.IDKey(id)); ok {
			return m, true, nil
		}
	}

	movie, err := f.build(ctx, id)
	if err != nil || movie == nil {
		return nil, false, err
	}

	if f.Cache != nil {
		f.Cache.PutMovie(movie)
	}
	return movie, false, nil
}

// FetchByTitle searches for a movie by title (narrowed by year when
// given), then fetches and enriches the top match.
func (f *Fetcher) FetchByTitle(ctx context.Context, title string, year *int) (*model.Movie, bool, error) {
	if f.Cache != nil {
		if m, ok := f.Cache.Get(cache.TitleKey(title, year)); ok {
			return m, true, nil
		}
	}

	result, err := f.Source.SearchMovie(ctx, title, year)
	if err != nil {
		return nil, false, err
	}
	if result == nil {
		f.Log.Debug().Str("title", title).Msg("no search results")
		return nil, false, nil
	}

	movie, err := f.build(ctx, result.ID)
	if err != nil || movie == nil {
		return nil, false, err
	}

	if f.Cache != nil {
		f.Cache.PutMovie(movie)
		// Also cache under the exact query key, which may differ from the
		// canonical title (e.g. a different spelling or a missing year).
		f.Cache.Put(cache.TitleKey(title, year), movie)
	}
	return movie, false, nil
}

// build fetches the details and optional enrichment for a movie ID and
// maps them into the dataset representation.
func (f *Fetcher) build(ctx context.Context, id int) (*model.Movie, error) {
	details, err := f.Source.MovieDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if details == nil {
		f.Log.Debug().Int("tmdb_id", id).Msg("movie not found")
		return nil, nil
	}

	movie := mapDetails(details)

	if f.Settings.EnableCredits {
		credits, err := f.Source.Credits(ctx, id)
		if err != nil {
			return nil, err
		}
		applyCredits(movie, credits, f.Settings.TopCastCount)
	}

	if f.Settings.EnableKeywords {
		keywords, err := f.Source.Keywords(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, kw := range keywords {
			movie.Keywords = append(movie.Keywords, validate.SanitizeText(kw.Name))
		}
	}

	return movie, nil
}

// mapDetails converts a TMDb details payload into a Movie, sanitizing
// free-text fields and deriving the release year.
func mapDetails(d *tmdb.Details) *model.Movie {
	m := &model.Movie{
		TMDBID:           d.ID,
		Title:            validate.SanitizeText(d.Title),
		Overview:         validate.SanitizeText(d.Overview),
		ReleaseDate:      d.ReleaseDate,
		VoteAverage:      d.VoteAverage,
		VoteCount:        d.VoteCount,
		Popularity:       d.Popularity,
		OriginalTitle:    validate.SanitizeText(d.OriginalTitle),
		OriginalLanguage: d.OriginalLanguage,
		Runtime:          d.Runtime,
		PosterPath:       d.PosterPath,
		BackdropPath:     d.BackdropPath,
		Tagline:          validate.SanitizeText(d.Tagline),
		Budget:           d.Budget,
		Revenue:          d.Revenue,
	}

	if year := yearFromDate(d.ReleaseDate); year != 0 {
		m.Year = &year
	}

	for _, g := range d.Genres {
		m.Genres = append(m.Genres, g.Name)
		m.GenreIDs = append(m.GenreIDs, g.ID)
	}
	return m
}

// applyCredits fills the cast and director fields: the topCast
// lowest-billed actors in billing order, and the first credited
// director.
func applyCredits(m *model.Movie, credits *tmdb.Credits, topCast int) {
	if credits == nil {
		return
	}

	cast := make([]tmdb.CastMember, len(credits.Cast))
	copy(cast, credits.Cast)
	sort.SliceStable(cast, func(i, j int) bool { return cast[i].Order < cast[j].Order })

	if topCast > 0 && len(cast) > topCast {
		cast = cast[:topCast]
	}
	for _, member := range cast {
		m.Cast = append(m.Cast, validate.SanitizeText(member.Name))
		m.CastIDs = append(m.CastIDs, member.ID)
	}

	for _, member := range credits.Crew {
		if member.Job == "Director" {
			m.Director = validate.SanitizeText(member.Name)
			break
		}
	}
}

// yearFromDate extracts the year from a YYYY-MM-DD date string.
// Returns 0 when the date is empty or unparsable.
func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
