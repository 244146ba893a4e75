package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/moviedata/tmdb-builder/internal/config"
)

// NewLogger builds the pipeline logger: human-readable console output
// on stderr plus structured JSON appended to logs/tmdb_fetcher.log.
// The returned closer flushes and closes the log file.
func NewLogger(dir, level string) (zerolog.Logger, func(), error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logPath := filepath.Join(dir, config.LogDir, config.LogFileName)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	writer := zerolog.MultiLevelWriter(console, file)

	logger := zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
	return logger, func() { _ = file.Close() }, nil
}

// NewTestLogger returns a logger writing to the given writer, for use
// in tests that assert on log output.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
