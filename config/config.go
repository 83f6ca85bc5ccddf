// ABOUTME: Runtime configuration loaded from LANTERN_* environment variables
// ABOUTME: with an optional YAML overlay file for non-secret settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingGoogleKey = errors.New(
		"LANTERN_GOOGLE_API_KEY is not set; web search requires a Google Custom Search API key",
	)
	ErrMissingGoogleCSE = errors.New(
		"LANTERN_GOOGLE_CSE_ID is not set; web search requires a Custom Search Engine id",
	)
	ErrMissingOpenAIKey = errors.New(
		"LANTERN_OPENAI_API_KEY is not set; content analysis requires an OpenAI-compatible API key",
	)
)

// Config holds everything the pipeline and server need at startup. Secrets
// come only from the environment; the YAML overlay covers the rest.
type Config struct {
	Bind string `yaml:"bind"` // LANTERN_BIND, default 127.0.0.1:8090

	GoogleAPIKey string `yaml:"-"` // LANTERN_GOOGLE_API_KEY
	GoogleCSEID  string `yaml:"-"` // LANTERN_GOOGLE_CSE_ID
	OpenAIKey    string `yaml:"-"` // LANTERN_OPENAI_API_KEY
	OpenAIBase   string `yaml:"openai_base_url"` // LANTERN_OPENAI_BASE_URL, optional
	Model        string `yaml:"model"`           // LANTERN_MODEL

	RedisAddr     string `yaml:"redis_addr"` // LANTERN_REDIS_ADDR, empty means in-process cache only
	RedisPassword string `yaml:"-"`          // LANTERN_REDIS_PASSWORD
	RedisDB       int    `yaml:"redis_db"`   // LANTERN_REDIS_DB

	CacheTTL          time.Duration `yaml:"cache_ttl"`          // LANTERN_CACHE_TTL, default 1h
	MaxSearchResults  int           `yaml:"max_search_results"` // LANTERN_MAX_SEARCH_RESULTS, default 5
	ScrapeConcurrency int           `yaml:"scrape_concurrency"` // LANTERN_SCRAPE_CONCURRENCY, default 5

	DocstorePath string `yaml:"docstore_path"` // LANTERN_DOCSTORE_PATH, default lantern.db
	ReportsDir   string `yaml:"reports_dir"`   // LANTERN_REPORTS_DIR, default reports
}

// Load reads configuration: defaults, then the YAML file at path (if path is
// non-empty and the file exists), then LANTERN_* environment variables on top.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Bind:              "127.0.0.1:8090",
		Model:             "gpt-4o-mini",
		CacheTTL:          time.Hour,
		MaxSearchResults:  5,
		ScrapeConcurrency: 5,
		DocstorePath:      "lantern.db",
		ReportsDir:        "reports",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Overlay is optional.
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg.Bind = envOrDefault("LANTERN_BIND", cfg.Bind)
	cfg.GoogleAPIKey = os.Getenv("LANTERN_GOOGLE_API_KEY")
	cfg.GoogleCSEID = os.Getenv("LANTERN_GOOGLE_CSE_ID")
	cfg.OpenAIKey = os.Getenv("LANTERN_OPENAI_API_KEY")
	cfg.OpenAIBase = envOrDefault("LANTERN_OPENAI_BASE_URL", cfg.OpenAIBase)
	cfg.Model = envOrDefault("LANTERN_MODEL", cfg.Model)
	cfg.RedisAddr = envOrDefault("LANTERN_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = os.Getenv("LANTERN_REDIS_PASSWORD")
	cfg.DocstorePath = envOrDefault("LANTERN_DOCSTORE_PATH", cfg.DocstorePath)
	cfg.ReportsDir = envOrDefault("LANTERN_REPORTS_DIR", cfg.ReportsDir)

	var err error
	if cfg.RedisDB, err = envInt("LANTERN_REDIS_DB", cfg.RedisDB); err != nil {
		return nil, err
	}
	if cfg.MaxSearchResults, err = envInt("LANTERN_MAX_SEARCH_RESULTS", cfg.MaxSearchResults); err != nil {
		return nil, err
	}
	if cfg.ScrapeConcurrency, err = envInt("LANTERN_SCRAPE_CONCURRENCY", cfg.ScrapeConcurrency); err != nil {
		return nil, err
	}
	if v := os.Getenv("LANTERN_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("config: LANTERN_CACHE_TTL=%q: %w", v, err)
		}
		cfg.CacheTTL = d
	}

	return cfg, nil
}

// Validate checks that the credentials the pipeline needs are present.
func (c *Config) Validate() error {
	if c.GoogleAPIKey == "" {
		return ErrMissingGoogleKey
	}
	if c.GoogleCSEID == "" {
		return ErrMissingGoogleCSE
	}
	if c.OpenAIKey == "" {
		return ErrMissingOpenAIKey
	}
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q: %w", key, v, err)
	}
	return n, nil
}
