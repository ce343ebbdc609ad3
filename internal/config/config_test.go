package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
	"github.com/JakeFAU/nomination-archive-crawler/internal/pipeline"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Crawl.MinYear != 1901 || cfg.Crawl.MaxYear != 1971 {
		t.Fatalf("unexpected year range %d-%d", cfg.Crawl.MinYear, cfg.Crawl.MaxYear)
	}
	if len(cfg.Crawl.Categories) != 5 {
		t.Fatalf("expected all five categories, got %v", cfg.Crawl.Categories)
	}
	if cfg.Database.Location != "" {
		t.Fatalf("expected in-memory database by default, got %q", cfg.Database.Location)
	}
	if cfg.Export.Path != "./out.csv" {
		t.Fatalf("unexpected export path %q", cfg.Export.Path)
	}
	if cfg.Source.BaseURL != pipeline.DefaultBaseURL {
		t.Fatalf("unexpected base url %q", cfg.Source.BaseURL)
	}
	if cfg.HTTP.RespectRobots {
		t.Fatal("expected robots.txt to be ignored by default")
	}
	if got := cfg.Timeout(); got != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %v", got)
	}
	if !cfg.Logging.Development || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Metrics.ListenAddr != "" {
		t.Fatalf("expected metrics disabled, got %q", cfg.Metrics.ListenAddr)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
crawl:
  min_year: 1950
  max_year: 1952
  categories: [2, 5]
database:
  location: /tmp/nominations.db
  max_conn_lifetime_seconds: 60
export:
  path: gs://bucket/nominations.csv
source:
  base_url: http://localhost:8080/archive
http:
  user_agent: archive-test
  timeout_seconds: 5
  respect_robots: true
logging:
  development: false
  level: debug
metrics:
  listen_addr: 127.0.0.1:9090
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Crawl.MinYear != 1950 || cfg.Crawl.MaxYear != 1952 {
		t.Fatalf("expected crawl overrides to apply: %+v", cfg.Crawl)
	}
	if cfg.Database.Location != "/tmp/nominations.db" {
		t.Fatalf("unexpected database location %q", cfg.Database.Location)
	}
	if cfg.MaxConnLifetime() != time.Minute {
		t.Fatalf("expected 1m connection lifetime, got %v", cfg.MaxConnLifetime())
	}
	if cfg.HTTP.UserAgent != "archive-test" || !cfg.HTTP.RespectRobots || cfg.Timeout() != 5*time.Second {
		t.Fatalf("unexpected http config %+v", cfg.HTTP)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Metrics.ListenAddr != "127.0.0.1:9090" {
		t.Fatalf("unexpected metrics addr %q", cfg.Metrics.ListenAddr)
	}

	pc := cfg.PipelineConfig()
	want := []nomination.Category{nomination.CategoryChemistry, nomination.CategoryPeace}
	if len(pc.Categories) != len(want) || pc.Categories[0] != want[0] || pc.Categories[1] != want[1] {
		t.Fatalf("unexpected pipeline categories %v", pc.Categories)
	}
	if pc.ExportPath != "gs://bucket/nominations.csv" || pc.BaseURL != "http://localhost:8080/archive" {
		t.Fatalf("unexpected pipeline config %+v", pc)
	}
	if err := pc.Validate(); err != nil {
		t.Fatalf("pipeline config should be valid: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NOMINATIONS_CRAWL_MAX_YEAR", "1960")
	t.Setenv("NOMINATIONS_DATABASE_LOCATION", "postgres://user@localhost/nominations")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawl.MaxYear != 1960 {
		t.Fatalf("expected env max year 1960, got %d", cfg.Crawl.MaxYear)
	}
	if cfg.Database.Location != "postgres://user@localhost/nominations" {
		t.Fatalf("unexpected database location %q", cfg.Database.Location)
	}
}

func TestLoadFlagOverrides(t *testing.T) {
	t.Setenv("NOMINATIONS_CRAWL_MIN_YEAR", "1910")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("min-year", 1901, "")
	flags.Int("max-year", 1971, "")
	flags.String("database", "", "")
	flags.String("output", "./out.csv", "")
	if err := flags.Parse([]string{"--min-year=1920", "--output=/tmp/export.csv"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawl.MinYear != 1920 {
		t.Fatalf("expected flag to win over env, got %d", cfg.Crawl.MinYear)
	}
	if cfg.Crawl.MaxYear != 1971 {
		t.Fatalf("expected unset flag to keep default, got %d", cfg.Crawl.MaxYear)
	}
	if cfg.Export.Path != "/tmp/export.csv" {
		t.Fatalf("unexpected export path %q", cfg.Export.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Crawl:  CrawlConfig{MinYear: 1901, MaxYear: 1905, Categories: []int{1}},
		Export: ExportConfig{Path: "out.csv"},
		Source: SourceConfig{BaseURL: pipeline.DefaultBaseURL},
		HTTP:   HTTPConfig{TimeoutSeconds: 10},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "min year before first prize",
			mutate: func(c *Config) { c.Crawl.MinYear = 1900 },
			want:   "crawl.min_year",
		},
		{
			name:   "max year before min year",
			mutate: func(c *Config) { c.Crawl.MaxYear = 1800 },
			want:   "crawl.max_year",
		},
		{
			name:   "no categories",
			mutate: func(c *Config) { c.Crawl.Categories = nil },
			want:   "crawl.categories",
		},
		{
			name:   "unknown category",
			mutate: func(c *Config) { c.Crawl.Categories = []int{6} },
			want:   "unknown category 6",
		},
		{
			name:   "invalid timeout",
			mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 },
			want:   "http.timeout_seconds",
		},
		{
			name:   "non-http base url",
			mutate: func(c *Config) { c.Source.BaseURL = "ftp://example.com" },
			want:   "source.base_url",
		},
		{
			name:   "blank export path",
			mutate: func(c *Config) { c.Export.Path = "  " },
			want:   "export.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := base
			c.Crawl.Categories = append([]int(nil), base.Crawl.Categories...)
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
