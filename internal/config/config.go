// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for guide.
//
// Configuration is read from ~/.guideai/config.toml with sensible
// defaults and GUIDEAI_* environment variable overrides. Out-of-range
// numeric values are clamped rather than rejected so a hand-edited
// file never blocks startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/guide-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete guide configuration.
type Config struct {
	Version string `toml:"version"`

	// Backend API settings
	API APIConfig `toml:"api"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Log configuration
	Log LogConfig `toml:"log"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	// BaseURL is the backend API root, e.g. "http://localhost:8000/api"
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the per-request timeout in seconds. Video
	// processing is slow; the default is generous.
	TimeoutSecs int `toml:"timeout_secs"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is "dark", "light", or "auto"
	Theme string `toml:"theme"`
	// MarkdownWidth is the wrap width for rendered answers
	MarkdownWidth int `toml:"markdown_width"`
	// CompactMode reduces transcript padding
	CompactMode bool `toml:"compact_mode"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is "debug", "info", "warn", or "error"
	Level string `toml:"level"`
	// Path overrides the default log location (~/.guideai/guide.log)
	Path string `toml:"path"`
}

// Clamp bounds for numeric settings.
const (
	MinTimeoutSecs = 5
	MaxTimeoutSecs = 900

	MinMarkdownWidth = 40
	MaxMarkdownWidth = 200
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		API: APIConfig{
			BaseURL:     "http://localhost:8000/api",
			TimeoutSecs: 300,
		},
		UI: UIConfig{
			Theme:         "dark",
			MarkdownWidth: 100,
			CompactMode:   false,
		},
		Log: LogConfig{
			Level: "info",
			Path:  "",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the guide configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".guideai"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads configuration from the default config file, applies
// environment overrides, and normalizes the result. A missing file is
// not an error; defaults are used.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Default().normalized(), nil
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from a specific file. Environment
// overrides and normalization still apply.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg.normalized(), nil
}

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("# guide configuration\n\n")
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(sb.String()), 0600)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// applyEnv applies GUIDEAI_* environment variables on top of the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("GUIDEAI_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("GUIDEAI_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.API.TimeoutSecs = n
		}
	}
	if v := os.Getenv("GUIDEAI_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("GUIDEAI_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("GUIDEAI_LOG_PATH"); v != "" {
		c.Log.Path = v
	}
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// normalized clamps numeric settings into their valid ranges and
// replaces unknown enum values with defaults.
func (c *Config) normalized() *Config {
	if c.API.BaseURL == "" {
		c.API.BaseURL = Default().API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")

	if c.API.TimeoutSecs < MinTimeoutSecs {
		c.API.TimeoutSecs = MinTimeoutSecs
	}
	if c.API.TimeoutSecs > MaxTimeoutSecs {
		c.API.TimeoutSecs = MaxTimeoutSecs
	}

	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto":
		c.UI.Theme = strings.ToLower(c.UI.Theme)
	default:
		c.UI.Theme = "dark"
	}

	if c.UI.MarkdownWidth < MinMarkdownWidth {
		c.UI.MarkdownWidth = MinMarkdownWidth
	}
	if c.UI.MarkdownWidth > MaxMarkdownWidth {
		c.UI.MarkdownWidth = MaxMarkdownWidth
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
		c.Log.Level = strings.ToLower(c.Log.Level)
	default:
		c.Log.Level = "info"
	}

	return c
}
