// Copyright © 2026 Termrelay contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config.go
// Summary: Server configuration loaded from termrelay.json.

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const configName = "termrelay.json"

// Config holds the server settings.
type Config struct {
	// SocketPath is the Unix socket the server listens on.
	SocketPath string `json:"socket_path"`

	// Shell started on each session's PTY. Empty means $SHELL.
	Shell string `json:"shell"`

	// HistoryPath is the SQLite database for scrollback history.
	// Empty disables recording.
	HistoryPath string `json:"history_path"`

	// HistoryRetentionDays prunes lines older than this on startup.
	// Zero keeps everything.
	HistoryRetentionDays int `json:"history_retention_days"`

	// Console suppresses escape sequences for dumb client terminals.
	Console bool `json:"console"`

	// Verbose enables flush metric logging.
	Verbose bool `json:"verbose"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = os.TempDir()
	}
	var historyPath string
	if root, err := configRoot(); err == nil {
		historyPath = filepath.Join(root, "history.db")
	}
	return Config{
		SocketPath:           filepath.Join(runtimeDir, "termrelay.sock"),
		HistoryPath:          historyPath,
		HistoryRetentionDays: 30,
	}
}

func configRoot() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "termrelay"), nil
}

// Path returns the default config file location.
func Path() (string, error) {
	root, err := configRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, configName), nil
}

// Load reads the config at path, filling unset fields with defaults.
// A missing file yields the defaults with no error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), err
	}
	if cfg.SocketPath == "" {
		cfg.SocketPath = Default().SocketPath
	}
	return cfg, nil
}

// Save writes the config as indented JSON, creating directories as
// needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
