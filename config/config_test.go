// Copyright © 2026 Termrelay contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config_test.go
// Summary: Tests for config load/save behavior.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	def := Default()
	if cfg.SocketPath != def.SocketPath {
		t.Errorf("expected default socket path %q, got %q", def.SocketPath, cfg.SocketPath)
	}
	if cfg.HistoryRetentionDays != def.HistoryRetentionDays {
		t.Errorf("expected retention %d, got %d", def.HistoryRetentionDays, cfg.HistoryRetentionDays)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "termrelay.json")
	want := Config{
		SocketPath:           "/tmp/custom.sock",
		Shell:                "/bin/zsh",
		HistoryPath:          "/tmp/history.db",
		HistoryRetentionDays: 7,
		Console:              true,
		Verbose:              true,
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
	if cfg.SocketPath != Default().SocketPath {
		t.Errorf("expected defaults on parse error, got %+v", cfg)
	}
}

func TestLoadFillsEmptySocketPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(path, []byte(`{"shell":"/bin/sh"}`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.SocketPath == "" {
		t.Error("expected socket path to be filled with default")
	}
	if cfg.Shell != "/bin/sh" {
		t.Errorf("expected shell /bin/sh, got %q", cfg.Shell)
	}
}
