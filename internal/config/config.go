// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for protalk.
//
// TOML format with sensible defaults, environment variable overrides, and
// validation.
//
// Configuration file location:
//   - ~/.protalk/config.toml
//   - Built-in defaults
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/morganforge/protalk-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete protalk configuration.
type Config struct {
	Version string `toml:"version"`

	// Server configuration
	Server ServerConfig `toml:"server"`

	// Chat configuration
	Chat ChatConfig `toml:"chat"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ServerConfig contains backend connection configuration.
type ServerConfig struct {
	// BaseURL is the backend base URL including the API prefix,
	// e.g. "http://127.0.0.1:3000/api".
	BaseURL string `toml:"base_url"`
}

// ChatConfig contains message stream configuration.
type ChatConfig struct {
	// DefaultChannel is the group channel joined on startup.
	DefaultChannel string `toml:"default_channel"`

	// SessionStore selects the session persistence backend: "file" or "sqlite".
	SessionStore string `toml:"session_store"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// Theme is the color theme name: "dark" or "light".
	Theme string `toml:"theme"`

	// ShowTimestamps toggles the hh:mm column in the message log.
	ShowTimestamps bool `toml:"show_timestamps"`
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			BaseURL: "http://127.0.0.1:3000/api",
		},
		Chat: ChatConfig{
			DefaultChannel: "general",
			SessionStore:   "file",
		},
		UI: UIConfig{
			Theme:          "dark",
			ShowTimestamps: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the protalk configuration directory (~/.protalk).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".protalk"), nil
}

// ConfigPath returns the path to the TOML configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// SessionPath returns the path for the file-backed session store.
func SessionPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

// DatabasePath returns the path for the SQLite-backed session store.
func DatabasePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "protalk.db"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration file, falling back to defaults when it does
// not exist. Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadFromPath loads a complete configuration from an explicit path, with
// defaults, env overrides, and validation applied.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default path atomically with 0600
// permissions.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to the given path.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// =============================================================================
// DEFAULTS / OVERRIDES / VALIDATION
// =============================================================================

// SetDefaults fills any empty fields with built-in defaults.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = def.Server.BaseURL
	}
	if c.Chat.DefaultChannel == "" {
		c.Chat.DefaultChannel = def.Chat.DefaultChannel
	}
	if c.Chat.SessionStore == "" {
		c.Chat.SessionStore = def.Chat.SessionStore
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
}

// ApplyEnvOverrides applies PROTALK_* environment variables on top of the
// loaded values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PROTALK_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("PROTALK_CHANNEL"); v != "" {
		c.Chat.DefaultChannel = v
	}
	if v := os.Getenv("PROTALK_SESSION_STORE"); v != "" {
		c.Chat.SessionStore = v
	}
	if v := os.Getenv("PROTALK_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("PROTALK_NO_TIMESTAMPS"); v != "" {
		c.UI.ShowTimestamps = !(v == "1" || strings.ToLower(v) == "true")
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url is not a valid URL: %q", c.Server.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url must be http or https, got %q", u.Scheme)
	}

	switch c.Chat.SessionStore {
	case "file", "sqlite":
	default:
		return fmt.Errorf("chat.session_store must be \"file\" or \"sqlite\", got %q", c.Chat.SessionStore)
	}

	switch c.UI.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("ui.theme must be \"dark\" or \"light\", got %q", c.UI.Theme)
	}

	if strings.TrimSpace(c.Chat.DefaultChannel) == "" {
		return fmt.Errorf("chat.default_channel must not be empty")
	}
	return nil
}
