// Package cache implements the persistent movie cache backing the fetch
// pipeline.
//
// The cache is a single JSON file (cache/tmdb_cache.json) mapping lookup
// keys to enriched movies. Two key shapes exist: "id_<tmdb id>" for
// lookups by identifier and "<lowercased title>_<year>" for lookups by
// title, with the literal "unknown" standing in for a missing year. Both
// shapes match the original dataset builder so existing cache files stay
// usable.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/model"
)

// IDKey returns the cache key for a lookup by TMDb identifier.
func IDKey(id int) string {
	return fmt.Sprintf("id_%d", id)
}

// TitleKey returns the cache key for a lookup by title and optional
// year. Titles are lowercased so lookups are case-insensitive.
func TitleKey(title string, year *int) string {
	y := "unknown"
	if year != nil {
		y = fmt.Sprintf("%d", *year)
	}
	return strings.ToLower(strings.TrimSpace(title)) + "_" + y
}

// Store is an in-memory movie cache with JSON file persistence. Safe for
// concurrent use.
type Store struct {
	path string

	mu      sync.Mutex
	entries map[string]*model.Movie
	hits    int
	misses  int
	dirty   bool
}

// Open loads the cache for a working directory. A missing cache file
// yields an empty cache; a corrupt one is discarded and the cache starts
// empty rather than failing the run.
func Open(dir string) (*Store, error) {
	s := &Store{
		path:    filepath.Join(dir, config.CacheDir, config.CacheFileName),
		entries: map[string]*model.Movie{},
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		// A corrupt cache costs re-fetching, never the run.
		s.entries = map[string]*model.Movie{}
		s.dirty = true
	}
	return s, nil
}

// Get returns the cached movie for a key, counting the lookup as a hit
// or miss.
func (s *Store) Get(key string) (*model.Movie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.entries[key]
	if ok {
		s.hits++
	} else {
		s.misses++
	}
	return m, ok
}

// Put stores a movie under the given key, stamping FetchedAt if unset.
func (s *Store) Put(key string, m *model.Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.FetchedAt == "" {
		m.FetchedAt = time.Now().UTC().Format(time.RFC3339)
	}
	s.entries[key] = m
	s.dirty = true
}

// PutMovie stores a movie under both its key shapes, so a later lookup
// by either id or title is served from cache.
func (s *Store) PutMovie(m *model.Movie) {
	s.Put(IDKey(m.TMDBID), m)
	s.Put(TitleKey(m.Title, m.Year), m)
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a snapshot of the cache counters.
func (s *Store) Stats() model.CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CacheStats{Size: len(s.entries), Hits: s.hits, Misses: s.misses}
}

// Save persists the cache to disk when it has unsaved changes. The file
// is written to a temporary name and renamed into place so a crash mid-
// write never leaves a truncated cache.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}

	s.dirty = false
	return nil
}

// Clear drops all entries and removes the cache file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = map[string]*model.Movie{}
	s.dirty = false

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}
