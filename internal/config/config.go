// Package config loads CLARITY's runtime configuration from defaults,
// an optional JSON file, and environment overrides, in that order of
// increasing precedence — the same three-tier resolution the teacher
// repository's internal/config package uses.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is CLARITY's runtime configuration, per spec §6.
type Config struct {
	CacheDir         string        `json:"cache_dir"`
	ArtifactRoot     string        `json:"artifact_root"`
	RealModel        bool          `json:"real_model"`
	RichMode         bool          `json:"rich_mode"`
	RichLogitsHash   bool          `json:"rich_logits_hash"`
	CacheLockTimeout time.Duration `json:"cache_lock_timeout"`
	RunnerTimeout    time.Duration `json:"runner_timeout"`
}

// Default returns CLARITY's baseline configuration before any file or
// environment overrides are applied.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		CacheDir:         filepath.Join(home, ".clarity_cache"),
		ArtifactRoot:     "demo_artifacts",
		CacheLockTimeout: 30 * time.Second,
		RunnerTimeout:    300 * time.Second,
	}
}

// Truthy reports whether s is one of the recognized truthy tokens
// (case-insensitive): true, 1, yes, on. This is the single shared
// parser spec §6 requires for every environment-variable feature gate.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// Load resolves configuration from Default(), then an optional JSON
// file at configPath (skipped if empty or missing), then environment
// variables.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, err
		}
	}

	loadFromEnv(cfg)
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(b, cfg)
}

func loadFromEnv(cfg *Config) {
	if v, ok := os.LookupEnv("CLARITY_CACHE_DIR"); ok && v != "" {
		cfg.CacheDir = v
	}
	if v, ok := os.LookupEnv("ARTIFACT_ROOT"); ok && v != "" {
		cfg.ArtifactRoot = v
	}
	if v, ok := os.LookupEnv("CLARITY_REAL_MODEL"); ok {
		cfg.RealModel = Truthy(v)
	}
	if v, ok := os.LookupEnv("CLARITY_RICH_MODE"); ok {
		cfg.RichMode = Truthy(v)
	}
	if v, ok := os.LookupEnv("CLARITY_RICH_LOGITS_HASH"); ok {
		cfg.RichLogitsHash = Truthy(v)
	}
	if v, ok := os.LookupEnv("CLARITY_CACHE_LOCK_TIMEOUT_SECONDS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CacheLockTimeout = time.Duration(n) * time.Second
		}
	}
	if v, ok := os.LookupEnv("CLARITY_RUNNER_TIMEOUT_SECONDS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RunnerTimeout = time.Duration(n) * time.Second
		}
	}
}

// RichModeEnabled reports whether rich-mode fields should be expected,
// per spec §6: rich mode requires both CLARITY_REAL_MODEL and
// CLARITY_RICH_MODE to be truthy.
func (c *Config) RichModeEnabled() bool {
	return c.RealModel && c.RichMode
}

// RichLogitsHashEnabled reports whether full logits hashing should be
// expected: all three of CLARITY_REAL_MODEL, CLARITY_RICH_MODE, and
// CLARITY_RICH_LOGITS_HASH must be truthy.
func (c *Config) RichLogitsHashEnabled() bool {
	return c.RichModeEnabled() && c.RichLogitsHash
}
