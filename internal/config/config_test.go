// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
	if cfg.Chat.DefaultChannel != "general" {
		t.Errorf("unexpected default channel: %q", cfg.Chat.DefaultChannel)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = "1"

[server]
base_url = "https://chat.example.com/api"

[chat]
default_channel = "ops"
session_store = "sqlite"

[ui]
theme = "light"
show_timestamps = false
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Server.BaseURL != "https://chat.example.com/api" {
		t.Errorf("unexpected base url: %q", cfg.Server.BaseURL)
	}
	if cfg.Chat.DefaultChannel != "ops" {
		t.Errorf("unexpected channel: %q", cfg.Chat.DefaultChannel)
	}
	if cfg.Chat.SessionStore != "sqlite" {
		t.Errorf("unexpected session store: %q", cfg.Chat.SessionStore)
	}
	if cfg.UI.Theme != "light" || cfg.UI.ShowTimestamps {
		t.Errorf("unexpected ui config: %+v", cfg.UI)
	}
}

// Partial files get the missing fields filled from defaults.
func TestLoadFromPathPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[chat]\ndefault_channel = \"dev\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Chat.DefaultChannel != "dev" {
		t.Errorf("unexpected channel: %q", cfg.Chat.DefaultChannel)
	}
	if cfg.Server.BaseURL != Default().Server.BaseURL {
		t.Errorf("missing fields must fall back to defaults, got %q", cfg.Server.BaseURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PROTALK_SERVER_URL", "http://10.0.0.5:3000/api")
	t.Setenv("PROTALK_CHANNEL", "override")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.BaseURL != "http://10.0.0.5:3000/api" {
		t.Errorf("env override not applied: %q", cfg.Server.BaseURL)
	}
	if cfg.Chat.DefaultChannel != "override" {
		t.Errorf("env override not applied: %q", cfg.Chat.DefaultChannel)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Server.BaseURL = "" }},
		{"not a url", func(c *Config) { c.Server.BaseURL = "::::" }},
		{"bad scheme", func(c *Config) { c.Server.BaseURL = "ftp://example.com" }},
		{"bad session store", func(c *Config) { c.Chat.SessionStore = "redis" }},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }},
		{"blank channel", func(c *Config) { c.Chat.DefaultChannel = "   " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	want := Default()
	want.Chat.DefaultChannel = "saved-channel"
	if err := SaveTOML(want, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 0600", perm)
	}

	got, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if got.Chat.DefaultChannel != "saved-channel" {
		t.Errorf("round trip mismatch: %q", got.Chat.DefaultChannel)
	}
}

// =============================================================================
// WATCHER TESTS
// =============================================================================

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	updated := Default()
	updated.Chat.DefaultChannel = "reloaded"
	if err := SaveTOML(updated, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changed:
		if cfg.Chat.DefaultChannel != "reloaded" {
			t.Errorf("unexpected reloaded channel: %q", cfg.Chat.DefaultChannel)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

// A broken edit keeps the last good config: the callback never fires with an
// invalid config.
func TestWatcherSkipsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) { changed <- cfg })
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("not [valid toml"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changed:
		t.Errorf("callback fired for invalid config: %+v", cfg)
	case <-time.After(watchDebounce * 3):
	}
}
