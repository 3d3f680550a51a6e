// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestNewSession(t *testing.T) {
	s := New("tok-123", "user-abc", "Alice")

	if !s.Valid() {
		t.Error("freshly created session must be valid")
	}
	if s.ClientID == "" {
		t.Error("expected a generated client id")
	}
	if s.CreatedAt.IsZero() {
		t.Error("expected a creation timestamp")
	}

	other := New("tok-123", "user-abc", "Alice")
	if other.ClientID == s.ClientID {
		t.Error("client ids must be unique per session")
	}
}

func TestSessionValid(t *testing.T) {
	tests := []struct {
		name  string
		s     Session
		valid bool
	}{
		{"complete", Session{Token: "t", UserID: "u"}, true},
		{"missing token", Session{UserID: "u"}, false},
		{"missing user id", Session{Token: "t"}, false},
		{"zero value", Session{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

// =============================================================================
// FILE STORE TESTS
// =============================================================================

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)

	if _, err := store.Get(); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession from empty store, got %v", err)
	}

	want := New("tok-123", "user-abc", "Alice")
	if err := store.Set(want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Token != want.Token || got.UserID != want.UserID || got.ClientID != want.ClientID {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestFileStorePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permissions not meaningful on Windows")
	}

	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)
	if err := store.Set(New("tok", "user", "n")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("session file permissions = %o, want 0600", perm)
	}
}

func TestFileStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)

	if err := store.Clear(); err != nil {
		t.Errorf("clearing an empty store must not error: %v", err)
	}

	if err := store.Set(New("tok", "user", "n")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := store.Get(); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after Clear, got %v", err)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{{{"), 0600); err != nil {
		t.Fatal(err)
	}

	store := NewFileStore(path)
	if _, err := store.Get(); err == nil {
		t.Error("expected error from corrupt session file")
	}
}

// =============================================================================
// SQLITE STORE TESTS
// =============================================================================

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state", "protalk.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)

	if _, err := store.Get(); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession from empty store, got %v", err)
	}

	want := New("tok-123", "user-abc", "Alice")
	if err := store.Set(want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Token != want.Token || got.UserID != want.UserID || got.Name != want.Name {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

// Set always replaces: the store never holds more than one session.
func TestSQLiteStoreSingleRow(t *testing.T) {
	store := newTestSQLiteStore(t)

	if err := store.Set(New("tok-1", "user-1", "First")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(New("tok-2", "user-2", "Second")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != "user-2" {
		t.Errorf("expected latest session, got %+v", got)
	}
}

func TestSQLiteStoreClear(t *testing.T) {
	store := newTestSQLiteStore(t)

	if err := store.Set(New("tok", "user", "n")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := store.Get(); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after Clear, got %v", err)
	}
}
