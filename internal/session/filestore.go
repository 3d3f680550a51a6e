// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/morganforge/protalk-tui/internal/util"
)

// FileStore persists the session as a JSON file with 0600 permissions.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed session store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get loads the persisted session from disk.
func (f *FileStore) Get() (Session, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("failed to read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("failed to parse session file: %w", err)
	}
	if !s.Valid() {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// Set writes the session atomically. The file holds a bearer token, so it is
// created owner-readable only.
func (f *FileStore) Set(s Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := util.AtomicWriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear removes the session file.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
