// Package config loads bayesdb.toml following the teacher's pkg/config
// struct-with-tags pattern, and applies the spec.md §6 environment-variable
// overrides on top of it.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Environment variable names from spec.md §6.
const (
	EnvWizardMode     = "BAYESDB_WIZARD_MODE"
	EnvNoVersionCheck = "BAYESDB_NO_VERSION_CHECK"
)

// LogConfig configures the file logger (see internal/logutil).
type LogConfig struct {
	Path       string `toml:"path"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"maxsizemb"`
	MaxBackups int    `toml:"maxbackups"`
	MaxAgeDays int    `toml:"maxagedays"`
	Compress   bool   `toml:"compress"`
}

// AnalyzeConfig holds the [analyze] section of bayesdb.toml. The ANALYZE
// driver (internal/executor) does not read it: a phrase without CHECKPOINT
// always uses the driver's own one-iteration checkpoint.
type AnalyzeConfig struct {
	DefaultCheckpointIterations int `toml:"defaultcheckpointiterations"`
}

// CatalogConfig bounds the per-connection catalog cache (spec.md §4.3).
type CatalogConfig struct {
	CacheSize int `toml:"cachesize"`
}

// Config is the top-level bayesdb.toml document.
type Config struct {
	DBPath              string        `toml:"dbpath"`
	WizardMode          bool          `toml:"wizardmode"`
	DisableVersionCheck bool          `toml:"disableversioncheck"`
	Log                 LogConfig     `toml:"log"`
	Analyze             AnalyzeConfig `toml:"analyze"`
	Catalog             CatalogConfig `toml:"catalog"`
}

// Default returns the configuration used when no bayesdb.toml is present.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 100,
		},
		Analyze: AnalyzeConfig{
			DefaultCheckpointIterations: 1,
		},
		Catalog: CatalogConfig{
			CacheSize: 1024,
		},
	}
}

// Load reads and decodes a TOML configuration file, starting from Default()
// so that a partial file only overrides what it sets.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays the spec.md §6 environment-variable toggles on top of
// whatever the TOML file (or Default) set, matching "wizard mode" and
// "disable version check" semantics: the env var, when set to "1", always
// wins.
func (c *Config) ApplyEnv() {
	if os.Getenv(EnvWizardMode) == "1" {
		c.WizardMode = true
	}
	if os.Getenv(EnvNoVersionCheck) == "1" {
		c.DisableVersionCheck = true
	}
}
