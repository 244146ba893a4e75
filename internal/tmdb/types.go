package tmdb

// Genre is a TMDb genre entry.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Details is the TMDb movie details payload, reduced to the fields the
// dataset uses. Numeric fields are pointers where the dataset must
// distinguish "absent" from zero.
type Details struct {
	ID               int      `json:"id"`
	Title            string   `json:"title"`
	Overview         string   `json:"overview"`
	ReleaseDate      string   `json:"release_date"`
	Genres           []Genre  `json:"genres"`
	VoteAverage      *float64 `json:"vote_average"`
	VoteCount        *int     `json:"vote_count"`
	Popularity       *float64 `json:"popularity"`
	OriginalTitle    string   `json:"original_title"`
	OriginalLanguage string   `json:"original_language"`
	Runtime          *int     `json:"runtime"`
	PosterPath       string   `json:"poster_path"`
	BackdropPath     string   `json:"backdrop_path"`
	Tagline          string   `json:"tagline"`
	Budget           *int64   `json:"budget"`
	Revenue          *int64   `json:"revenue"`
}

// SearchResult is one entry of a title search response.
type SearchResult struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

// CastMember is one billed actor in a credits response. Order is the
// billing position, lowest first.
type CastMember struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// CrewMember is one crew entry in a credits response.
type CrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// Credits is the TMDb movie credits payload.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Keyword is one thematic keyword attached to a movie.
type Keyword struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type keywordsResponse struct {
	Keywords []Keyword `json:"keywords"`
}
