// Copyright 2026 Termrelay contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStore_CreateAndClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	st, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := st.Close(); err != nil {
		t.Errorf("failed to close store: %v", err)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file not created")
	}
}

func TestStore_AppendAndTail(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	now := time.Now()
	st.Append(Line{Session: "work", Seq: 0, Timestamp: now, Text: "first"})
	st.Append(Line{Session: "work", Seq: 1, Timestamp: now, Text: "second"})
	st.Append(Line{Session: "other", Seq: 0, Timestamp: now, Text: "elsewhere"})
	st.Flush()

	lines, err := st.Tail("work", 10)
	if err != nil {
		t.Fatalf("tail failed: %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text != "first" || lines[1].Text != "second" {
		t.Errorf("unexpected order: %q, %q", lines[0].Text, lines[1].Text)
	}
}

func TestStore_TailLimit(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	for i := 0; i < 5; i++ {
		st.Append(Line{Session: "s", Seq: int64(i), Text: "line"})
	}
	st.Flush()

	lines, err := st.Tail("s", 3)
	if err != nil {
		t.Fatalf("tail failed: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}

	// The most recent 3, oldest first.
	if lines[0].Seq != 2 || lines[2].Seq != 4 {
		t.Errorf("expected seqs 2..4, got %d..%d", lines[0].Seq, lines[2].Seq)
	}
}

func TestStore_EmptyTextSkipped(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	st.Append(Line{Session: "s", Seq: 0, Text: ""})
	st.Flush()

	lines, err := st.Tail("s", 10)
	if err != nil {
		t.Fatalf("tail failed: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no lines, got %d", len(lines))
	}
}

func TestStore_Prune(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	old := time.Now().Add(-48 * time.Hour)
	st.Append(Line{Session: "s", Seq: 0, Timestamp: old, Text: "stale"})
	st.Append(Line{Session: "s", Seq: 1, Text: "fresh"})
	st.Flush()

	n, err := st.Prune(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned line, got %d", n)
	}

	lines, err := st.Tail("s", 10)
	if err != nil {
		t.Fatalf("tail failed: %v", err)
	}
	if len(lines) != 1 || lines[0].Text != "fresh" {
		t.Errorf("unexpected surviving lines: %+v", lines)
	}
}
