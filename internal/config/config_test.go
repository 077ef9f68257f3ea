package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")

	cfg, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("missing file reported as existing")
	}
	if cfg.Enrichment.BatchSize != 3 || cfg.Enrichment.CooldownEvery != 10 {
		t.Fatalf("defaults not applied: %+v", cfg.Enrichment)
	}
	if cfg.APIKey != "" {
		t.Fatal("api key should be empty without the env var")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_MODEL", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	body := strings.Join([]string{
		"[enrichment]",
		"batch_size = 5",
		"cooldown_seconds = 60",
		"",
		"[gemini]",
		`model = "gemini-custom"`,
		"",
		"[logging]",
		`format = "JSON"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("file not reported as existing")
	}
	if cfg.Enrichment.BatchSize != 5 || cfg.Cooldown().Seconds() != 60 {
		t.Fatalf("file values not applied: %+v", cfg.Enrichment)
	}
	if cfg.Enrichment.CooldownEvery != 10 {
		t.Fatalf("unset values should keep defaults: %+v", cfg.Enrichment)
	}
	if cfg.Gemini.Model != "gemini-custom" {
		t.Fatalf("model not applied: %q", cfg.Gemini.Model)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format not normalized: %q", cfg.Logging.Format)
	}
	if cfg.APIKey != "test-key" {
		t.Fatalf("api key not read from env: %q", cfg.APIKey)
	}
}

func TestEnvModelOverridesFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("GEMINI_MODEL", "gemini-from-env")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[gemini]\nmodel = \"gemini-from-file\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gemini.Model != "gemini-from-env" {
		t.Fatalf("env var should win: %q", cfg.Gemini.Model)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero batch size", func(c *Config) { c.Enrichment.BatchSize = 0 }, "batch_size"},
		{"zero cooldown cadence", func(c *Config) { c.Enrichment.CooldownEvery = 0 }, "cooldown_every"},
		{"zero retry bound", func(c *Config) { c.Retrieval.MaxAttempts = 0 }, "max_attempts"},
		{"bad log format", func(c *Config) { c.Logging.Format = "yaml" }, "logging.format"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"blank catalog path", func(c *Config) { c.Paths.Catalog = "" }, "paths.catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := Default()
	if err := cfg.RequireAPIKey(); err == nil {
		t.Fatal("expected error without a key")
	}
	cfg.APIKey = "k"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSampleConfigParses(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("GEMINI_MODEL", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
	def := Default()
	def.APIKey = cfg.APIKey
	if *cfg != def {
		t.Fatalf("sample config should match defaults:\n got  %+v\n want %+v", *cfg, def)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("WriteSample must refuse to overwrite")
	}
}
