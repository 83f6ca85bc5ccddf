// ABOUTME: Tests for configuration loading: defaults, environment overrides,
// ABOUTME: the YAML overlay, precedence, and credential validation.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LANTERN_BIND", "LANTERN_GOOGLE_API_KEY", "LANTERN_GOOGLE_CSE_ID",
		"LANTERN_OPENAI_API_KEY", "LANTERN_OPENAI_BASE_URL", "LANTERN_MODEL",
		"LANTERN_REDIS_ADDR", "LANTERN_REDIS_PASSWORD", "LANTERN_REDIS_DB",
		"LANTERN_CACHE_TTL", "LANTERN_MAX_SEARCH_RESULTS", "LANTERN_SCRAPE_CONCURRENCY",
		"LANTERN_DOCSTORE_PATH", "LANTERN_REPORTS_DIR",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bind != "127.0.0.1:8090" {
		t.Errorf("Bind = %q", cfg.Bind)
	}
	if cfg.MaxSearchResults != 5 || cfg.ScrapeConcurrency != 5 {
		t.Errorf("search=%d scrape=%d, want 5/5", cfg.MaxSearchResults, cfg.ScrapeConcurrency)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %s", cfg.CacheTTL)
	}
	if cfg.DocstorePath != "lantern.db" || cfg.ReportsDir != "reports" {
		t.Errorf("paths = %q %q", cfg.DocstorePath, cfg.ReportsDir)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LANTERN_BIND", "0.0.0.0:9000")
	t.Setenv("LANTERN_MAX_SEARCH_RESULTS", "8")
	t.Setenv("LANTERN_CACHE_TTL", "30m")
	t.Setenv("LANTERN_REDIS_ADDR", "redis:6379")
	t.Setenv("LANTERN_REDIS_DB", "2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bind != "0.0.0.0:9000" {
		t.Errorf("Bind = %q", cfg.Bind)
	}
	if cfg.MaxSearchResults != 8 {
		t.Errorf("MaxSearchResults = %d", cfg.MaxSearchResults)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL = %s", cfg.CacheTTL)
	}
	if cfg.RedisAddr != "redis:6379" || cfg.RedisDB != 2 {
		t.Errorf("redis = %q db=%d", cfg.RedisAddr, cfg.RedisDB)
	}
}

func TestLoadInvalidEnvValues(t *testing.T) {
	clearEnv(t)

	t.Setenv("LANTERN_MAX_SEARCH_RESULTS", "many")
	if _, err := Load(""); err == nil {
		t.Error("non-numeric int env should fail")
	}

	clearEnv(t)
	t.Setenv("LANTERN_CACHE_TTL", "soon")
	if _, err := Load(""); err == nil {
		t.Error("unparseable duration should fail")
	}
}

func TestLoadYAMLOverlayAndPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "lantern.yaml")
	overlay := "bind: 127.0.0.1:7000\nmodel: gpt-4o\nmax_search_results: 9\n"
	if err := os.WriteFile(path, []byte(overlay), 0o644); err != nil {
		t.Fatal(err)
	}

	// Environment wins over the file.
	t.Setenv("LANTERN_MODEL", "gpt-4o-mini")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bind != "127.0.0.1:7000" {
		t.Errorf("Bind = %q, want file value", cfg.Bind)
	}
	if cfg.MaxSearchResults != 9 {
		t.Errorf("MaxSearchResults = %d, want file value", cfg.MaxSearchResults)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want env to win", cfg.Model)
	}
}

func TestLoadMissingOverlayIsFine(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("missing overlay should not fail: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); !errors.Is(err, ErrMissingGoogleKey) {
		t.Errorf("err = %v, want ErrMissingGoogleKey", err)
	}

	cfg.GoogleAPIKey = "g"
	if err := cfg.Validate(); !errors.Is(err, ErrMissingGoogleCSE) {
		t.Errorf("err = %v, want ErrMissingGoogleCSE", err)
	}

	cfg.GoogleCSEID = "cse"
	if err := cfg.Validate(); !errors.Is(err, ErrMissingOpenAIKey) {
		t.Errorf("err = %v, want ErrMissingOpenAIKey", err)
	}

	cfg.OpenAIKey = "o"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
