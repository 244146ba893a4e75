package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moviedata/tmdb-builder/internal/config"
	"github.com/moviedata/tmdb-builder/internal/model"
)

// RunReport is the YAML summary written to logs/run_report.yaml after
// each pipeline run. It exists so repeated dataset builds can be
// compared without re-reading console output.
type RunReport struct {
	GeneratedAt string `yaml:"generated_at"`
	InputFile   string `yaml:"input_file"`
	OutputFile  string `yaml:"output_file"`
	Duration    string `yaml:"duration"`

	Rows struct {
		Total     int `yaml:"total"`
		Success   int `yaml:"success"`
		Failed    int `yaml:"failed"`
		Invalid   int `yaml:"invalid"`
		FromCache int `yaml:"from_cache"`
	} `yaml:"rows"`

	Cache struct {
		Size    int    `yaml:"size"`
		Hits    int    `yaml:"hits"`
		Misses  int    `yaml:"misses"`
		HitRate string `yaml:"hit_rate"`
	} `yaml:"cache"`
}

// newRunReport assembles a report from the run's inputs and counters.
func newRunReport(inputPath, outputPath string, stats model.FetchStats, cacheStats model.CacheStats) RunReport {
	report := RunReport{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		InputFile:   inputPath,
		OutputFile:  outputPath,
		Duration:    model.FormatDuration(stats.Duration),
	}
	report.Rows.Total = stats.Total
	report.Rows.Success = stats.Success
	report.Rows.Failed = stats.Failed
	report.Rows.Invalid = stats.Invalid
	report.Rows.FromCache = stats.FromCache

	report.Cache.Size = cacheStats.Size
	report.Cache.Hits = cacheStats.Hits
	report.Cache.Misses = cacheStats.Misses
	report.Cache.HitRate = fmt.Sprintf("%.1f%%", cacheStats.HitRate())
	return report
}

// writeRunReport marshals the report and writes it into the log
// directory of the working directory.
func writeRunReport(dir string, report RunReport) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}

	path := filepath.Join(dir, config.LogDir, config.ReportFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write run report: %w", err)
	}
	return nil
}
