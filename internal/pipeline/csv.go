package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/model"
)

// listSeparator joins multi-valued columns (genres, cast, keywords) in
// the output CSV.
const listSeparator = "|"

// ReadInput parses the user-supplied input CSV. The file must have a
// header row with a "title" column; "year" and "tmdb_id" columns are
// optional hints. Rows with an empty title are skipped. Column matching
// is case-insensitive.
func ReadInput(path string) ([]model.InputRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInputError, "cannot open input file", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInputError, "malformed input CSV", err)
	}
	if len(records) == 0 {
		return nil, model.NewCLIError(model.ExitInputError, "input CSV is empty")
	}

	titleCol, yearCol, idCol := -1, -1, -1
	for i, name := range records[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "title":
			titleCol = i
		case "year":
			yearCol = i
		case "tmdb_id":
			idCol = i
		}
	}
	if titleCol == -1 {
		return nil, model.NewCLIError(model.ExitInputError, `input CSV has no "title" column`)
	}

	var rows []model.InputRow
	for _, record := range records[1:] {
		row := model.InputRow{}
		if titleCol < len(record) {
			row.Title = strings.TrimSpace(record[titleCol])
		}
		if row.Title == "" {
			continue
		}
		if yearCol != -1 && yearCol < len(record) {
			if year, err := strconv.Atoi(strings.TrimSpace(record[yearCol])); err == nil {
				row.Year = &year
			}
		}
		if idCol != -1 && idCol < len(record) {
			if id, err := strconv.Atoi(strings.TrimSpace(record[idCol])); err == nil {
				row.TMDBID = &id
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteOutput writes the dataset CSV with the given column schema. The
// file is fully rewritten on each call, which is what the periodic
// checkpoints rely on.
func WriteOutput(path string, movies []*model.Movie, schema []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(schema); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(schema))
	for _, m := range movies {
		for i, column := range schema {
			record[i] = fieldValue(m, column)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row for tmdb_id %d: %w", m.TMDBID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush output file: %w", err)
	}
	return f.Close()
}

// CheckpointPath derives the checkpoint file name from the output path
// ("processed/movies.csv" becomes "processed/movies_checkpoint.csv").
func CheckpointPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, ".csv") + config.CheckpointSuffix
}

// fieldValue renders one schema column of a movie as a CSV cell. Absent
// pointer values render as empty cells; list values are pipe-joined.
func fieldValue(m *model.Movie, column string) string {
	switch column {
	case "tmdb_id":
		return strconv.Itoa(m.TMDBID)
	case "title":
		return m.Title
	case "overview":
		return m.Overview
	case "release_date":
		return m.ReleaseDate
	case "year":
		return intCell(m.Year)
	case "genres":
		return strings.Join(m.Genres, listSeparator)
	case "genre_ids":
		return joinInts(m.GenreIDs)
	case "vote_average":
		return floatCell(m.VoteAverage)
	case "vote_count":
		return intCell(m.VoteCount)
	case "popularity":
		return floatCell(m.Popularity)
	case "original_title":
		return m.OriginalTitle
	case "original_language":
		return m.OriginalLanguage
	case "runtime":
		return intCell(m.Runtime)
	case "poster_path":
		return m.PosterPath
	case "backdrop_path":
		return m.BackdropPath
	case "tagline":
		return m.Tagline
	case "budget":
		return int64Cell(m.Budget)
	case "revenue":
		return int64Cell(m.Revenue)
	case "cast":
		return strings.Join(m.Cast, listSeparator)
	case "cast_ids":
		return joinInts(m.CastIDs)
	case "director":
		return m.Director
	case "keywords":
		return strings.Join(m.Keywords, listSeparator)
	default:
		return ""
	}
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func int64Cell(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, listSeparator)
}
