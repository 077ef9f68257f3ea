// Package config loads and validates the pipeline configuration file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file locations the pipeline reads and writes.
type Paths struct {
	Catalog string `toml:"catalog"`
	RawSeed string `toml:"raw_seed"`
	Site    string `toml:"site"`
}

// Gemini contains the external enrichment service connection settings.
// The API key is never read from the file; it comes from the environment.
type Gemini struct {
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// Enrichment contains pacing settings for the enrichment loop.
type Enrichment struct {
	BatchSize       int `toml:"batch_size"`
	RequestDelaySec int `toml:"request_delay_seconds"`
	CooldownEvery   int `toml:"cooldown_every"`
	CooldownSec     int `toml:"cooldown_seconds"`
}

// Retrieval contains settings for the catalog scrape.
type Retrieval struct {
	MaxAttempts       int     `toml:"max_attempts"`
	SnapshotEvery     int     `toml:"snapshot_every"`
	RateLimitRPS      float64 `toml:"rate_limit_rps"`
	RequestTimeoutSec int     `toml:"request_timeout_seconds"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration for the pipeline. It is constructed
// once at startup and passed to the components that need it; nothing reads
// it through a global.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Gemini     Gemini     `toml:"gemini"`
	Enrichment Enrichment `toml:"enrichment"`
	Retrieval  Retrieval  `toml:"retrieval"`
	Logging    Logging    `toml:"logging"`

	// APIKey is resolved from GEMINI_API_KEY at load time.
	APIKey string `toml:"-"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Paths: Paths{
			Catalog: "data/catalog.csv",
			RawSeed: "data/raw_seed.csv",
			Site:    "site.yaml",
		},
		Gemini: Gemini{
			Model: "gemini-2.0-flash",
		},
		Enrichment: Enrichment{
			BatchSize:       3,
			RequestDelaySec: 4,
			CooldownEvery:   10,
			CooldownSec:     30,
		},
		Retrieval: Retrieval{
			MaxAttempts:       3,
			SnapshotEvery:     10,
			RateLimitRPS:      0.25,
			RequestTimeoutSec: 20,
		},
		Logging: Logging{
			Format: "auto",
			Level:  "info",
		},
	}
}

// Load parses the file at path when it exists, applies defaults and
// environment overrides, and validates the result. A missing file is not an
// error; the defaults stand.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	exists := false
	if strings.TrimSpace(path) != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, false, fmt.Errorf("open config: %w", err)
		default:
			exists = true
			decoder := toml.NewDecoder(file)
			decodeErr := decoder.Decode(&cfg)
			_ = file.Close()
			if decodeErr != nil {
				return nil, false, fmt.Errorf("parse config %s: %w", path, decodeErr)
			}
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, exists, err
	}
	return &cfg, exists, nil
}

func (c *Config) normalize() {
	c.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if model := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); model != "" {
		c.Gemini.Model = model
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.Catalog) == "" {
		return errors.New("paths.catalog is required")
	}
	if strings.TrimSpace(c.Gemini.Model) == "" {
		return errors.New("gemini.model is required. Set it in the config file or via GEMINI_MODEL")
	}
	if c.Enrichment.BatchSize < 1 {
		return fmt.Errorf("enrichment.batch_size must be at least 1, got %d", c.Enrichment.BatchSize)
	}
	if c.Enrichment.CooldownEvery < 1 {
		return fmt.Errorf("enrichment.cooldown_every must be at least 1, got %d", c.Enrichment.CooldownEvery)
	}
	if c.Retrieval.MaxAttempts < 1 {
		return fmt.Errorf("retrieval.max_attempts must be at least 1, got %d", c.Retrieval.MaxAttempts)
	}
	if c.Retrieval.SnapshotEvery < 1 {
		return fmt.Errorf("retrieval.snapshot_every must be at least 1, got %d", c.Retrieval.SnapshotEvery)
	}
	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("logging.format must be auto, text or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// RequireAPIKey fails when no external service credential is present.
// Commands that talk to the enrichment service call this before any work.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	return nil
}

// RequestDelay returns the short inter-batch pause.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.Enrichment.RequestDelaySec) * time.Second
}

// Cooldown returns the long pause taken every cooldown_every batches.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Enrichment.CooldownSec) * time.Second
}

// RequestTimeout returns the per-request timeout for retrieval fetches.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Retrieval.RequestTimeoutSec) * time.Second
}

// WriteSample writes the annotated sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}
