// Package config loads crawler configuration from file, environment, and flags.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
	"github.com/JakeFAU/nomination-archive-crawler/internal/pipeline"
)

// EnvPrefix prefixes every environment override, e.g. NOMINATIONS_CRAWL_MIN_YEAR.
const EnvPrefix = "NOMINATIONS"

// FirstPrizeYear is the earliest year the archive can hold.
const FirstPrizeYear = 1901

// Config is the root configuration for the crawler.
type Config struct {
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Database DatabaseConfig `mapstructure:"database"`
	Export   ExportConfig   `mapstructure:"export"`
	Source   SourceConfig   `mapstructure:"source"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// CrawlConfig bounds the overview sweep.
type CrawlConfig struct {
	MinYear    int   `mapstructure:"min_year"`
	MaxYear    int   `mapstructure:"max_year"`
	Categories []int `mapstructure:"categories"`
}

// DatabaseConfig selects the store. An empty location or ":memory:" keeps
// everything in memory, a postgres:// DSN selects Postgres, and anything
// else is a SQLite file path.
type DatabaseConfig struct {
	Location        string `mapstructure:"location"`
	MaxConns        int32  `mapstructure:"max_conns"`
	MinConns        int32  `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime_seconds"`
}

// ExportConfig controls where the CSV lands.
type ExportConfig struct {
	Path string `mapstructure:"path"`
}

// SourceConfig points at the archive.
type SourceConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// HTTPConfig tunes the page fetcher.
type HTTPConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
}

// LoggingConfig controls zap.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig enables the Prometheus listener when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"min-year": "crawl.min_year",
	"max-year": "crawl.max_year",
	"database": "database.location",
	"output":   "export.path",
}

// Load reads configuration from the optional file at path, environment
// variables, and any flags in flags that were set on the command line.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	categories := make([]int, 0, len(nomination.AllCategories()))
	for _, category := range nomination.AllCategories() {
		categories = append(categories, int(category))
	}

	v.SetDefault("crawl.min_year", FirstPrizeYear)
	v.SetDefault("crawl.max_year", 1971)
	v.SetDefault("crawl.categories", categories)

	v.SetDefault("database.location", "")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime_seconds", 0)

	v.SetDefault("export.path", "./out.csv")
	v.SetDefault("source.base_url", pipeline.DefaultBaseURL)

	v.SetDefault("http.user_agent", "nomination-archive-crawler/1.0")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.respect_robots", false)

	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.listen_addr", "")
}

// Validate ensures the configuration is coherent.
func (c *Config) Validate() error {
	if c.Crawl.MinYear < FirstPrizeYear {
		return fmt.Errorf("crawl.min_year must be at least %d, got %d", FirstPrizeYear, c.Crawl.MinYear)
	}
	if c.Crawl.MaxYear < c.Crawl.MinYear {
		return fmt.Errorf("crawl.max_year %d is before crawl.min_year %d", c.Crawl.MaxYear, c.Crawl.MinYear)
	}
	if len(c.Crawl.Categories) == 0 {
		return fmt.Errorf("crawl.categories must not be empty")
	}
	for _, id := range c.Crawl.Categories {
		if !nomination.Category(id).Valid() {
			return fmt.Errorf("crawl.categories: unknown category %d", id)
		}
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be positive")
	}
	if c.Database.MaxConnLifetime < 0 {
		return fmt.Errorf("database.max_conn_lifetime_seconds must not be negative")
	}
	u, err := url.Parse(c.Source.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source.base_url %q is not an http(s) url", c.Source.BaseURL)
	}
	if strings.TrimSpace(c.Export.Path) == "" {
		return fmt.Errorf("export.path is required")
	}
	return nil
}

// Timeout is the per-request fetch budget.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// MaxConnLifetime is the Postgres connection lifetime, zero meaning the pool default.
func (c *Config) MaxConnLifetime() time.Duration {
	return time.Duration(c.Database.MaxConnLifetime) * time.Second
}

// PipelineConfig converts the crawl settings for the orchestrator.
func (c *Config) PipelineConfig() pipeline.Config {
	categories := make([]nomination.Category, 0, len(c.Crawl.Categories))
	for _, id := range c.Crawl.Categories {
		categories = append(categories, nomination.Category(id))
	}
	return pipeline.Config{
		MinYear:    c.Crawl.MinYear,
		MaxYear:    c.Crawl.MaxYear,
		Categories: categories,
		BaseURL:    c.Source.BaseURL,
		ExportPath: c.Export.Path,
	}
}
