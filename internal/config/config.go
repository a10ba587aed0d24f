// Package config loads and validates harvest configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Apify    ApifyConfig    `mapstructure:"apify"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls the serve-mode HTTP listener.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ApifyConfig configures access to the hosted crawl service. The token is
// deliberately sourced from the environment (APIFY_TOKEN) rather than config
// files so the credential never lands on disk.
type ApifyConfig struct {
	Token                 string `mapstructure:"token"`
	BaseURL               string `mapstructure:"base_url"`
	Actor                 string `mapstructure:"actor"`
	PollIntervalSeconds   int    `mapstructure:"poll_interval_seconds"`
	RunTimeoutSeconds     int    `mapstructure:"run_timeout_seconds"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
}

// CrawlConfig holds the default crawl request parameters; CLI flags and API
// requests override them per run.
type CrawlConfig struct {
	StartURL              string   `mapstructure:"start_url"`
	MaxPages              int      `mapstructure:"max_pages"`
	CrawlerType           string   `mapstructure:"crawler_type"`
	IncludeGlobs          []string `mapstructure:"include_globs"`
	ExcludeGlobs          []string `mapstructure:"exclude_globs"`
	RemoveSelector        string   `mapstructure:"remove_selector"`
	UseProxy              bool     `mapstructure:"use_proxy"`
	MaxRequestRetries     int      `mapstructure:"max_request_retries"`
	HandlerTimeoutSeconds int      `mapstructure:"handler_timeout_seconds"`
	OutputPath            string   `mapstructure:"output_path"`
	MaxChunkChars         int      `mapstructure:"max_chunk_chars"`
}

// StorageConfig selects the blob provider used to archive dataset files.
type StorageConfig struct {
	Provider string `mapstructure:"provider"`
	Prefix   string `mapstructure:"prefix"`
	Local    struct {
		BaseDir string `mapstructure:"base_dir"`
	} `mapstructure:"local"`
	GCS struct {
		Bucket string `mapstructure:"bucket"`
	} `mapstructure:"gcs"`
}

// DatabaseConfig selects the run metadata store.
type DatabaseConfig struct {
	Provider string `mapstructure:"provider"`
	Postgres struct {
		DSN   string `mapstructure:"dsn"`
		Table string `mapstructure:"table"`
	} `mapstructure:"postgres"`
}

// NotifyConfig selects the run-completed notification provider.
type NotifyConfig struct {
	Provider string `mapstructure:"provider"`
	GCP      struct {
		ProjectID string `mapstructure:"project_id"`
		TopicID   string `mapstructure:"topic_id"`
	} `mapstructure:"gcp"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The credential is read from the conventional variable as well as the
	// prefixed one.
	if err := v.BindEnv("apify.token", "APIFY_TOKEN", "HARVEST_APIFY_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("bind token env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("apify.base_url", "https://api.apify.com")
	v.SetDefault("apify.actor", "apify~website-content-crawler")
	v.SetDefault("apify.poll_interval_seconds", 5)
	v.SetDefault("apify.run_timeout_seconds", 600)
	v.SetDefault("apify.request_timeout_seconds", 30)
	v.SetDefault("crawl.max_pages", 1)
	v.SetDefault("crawl.crawler_type", "cheerio")
	v.SetDefault("crawl.include_globs", []string{"/women/", "/running", "/shoe", "/product"})
	v.SetDefault("crawl.exclude_globs", []string{"/cart", "/login", "/sale"})
	v.SetDefault("crawl.remove_selector", "nav, footer, script, style")
	v.SetDefault("crawl.use_proxy", true)
	v.SetDefault("crawl.max_request_retries", 3)
	v.SetDefault("crawl.handler_timeout_seconds", 60)
	v.SetDefault("crawl.output_path", "dataset.json")
	v.SetDefault("crawl.max_chunk_chars", 1200)
	v.SetDefault("storage.provider", "noop")
	v.SetDefault("storage.prefix", "datasets")
	v.SetDefault("database.provider", "noop")
	v.SetDefault("database.postgres.table", "harvest_runs")
	v.SetDefault("notify.provider", "noop")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. The Apify token is
// checked at client construction instead, so serve mode can start without a
// credential and fail only when a crawl is requested.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Apify.PollIntervalSeconds <= 0 {
		return fmt.Errorf("apify.poll_interval_seconds must be > 0")
	}
	if c.Apify.RunTimeoutSeconds <= 0 {
		return fmt.Errorf("apify.run_timeout_seconds must be > 0")
	}
	if c.Crawl.MaxPages <= 0 {
		return fmt.Errorf("crawl.max_pages must be > 0")
	}
	if c.Crawl.MaxChunkChars <= 0 {
		return fmt.Errorf("crawl.max_chunk_chars must be > 0")
	}
	switch c.Storage.Provider {
	case "noop", "local", "gcs":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	switch c.Database.Provider {
	case "noop", "postgres":
	default:
		return fmt.Errorf("unknown database provider: %s", c.Database.Provider)
	}
	switch c.Notify.Provider {
	case "noop", "pubsub":
	default:
		return fmt.Errorf("unknown notify provider: %s", c.Notify.Provider)
	}
	return nil
}

// PollInterval returns the run polling cadence as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Apify.PollIntervalSeconds) * time.Second
}

// RunTimeout returns the overall budget for waiting on a remote run.
func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.Apify.RunTimeoutSeconds) * time.Second
}

// RequestTimeout returns the per-request HTTP timeout for the service client.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Apify.RequestTimeoutSeconds) * time.Second
}
