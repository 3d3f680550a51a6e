// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// sessionSchema holds exactly one row: the current session. The CHECK keeps
// INSERT OR REPLACE from ever growing the table.
const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	token      TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	client_id  TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// SQLiteStore persists the session in a SQLite database. Preferred over
// FileStore when the client already keeps other state in the same database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a session database at the given
// path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get loads the persisted session.
func (s *SQLiteStore) Get() (Session, error) {
	row := s.db.QueryRow(
		`SELECT token, user_id, name, client_id, created_at FROM sessions WHERE id = 1`)

	var sess Session
	var createdAt string
	err := row.Scan(&sess.Token, &sess.UserID, &sess.Name, &sess.ClientID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		sess.CreatedAt = t
	}
	if !sess.Valid() {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Set replaces the persisted session.
func (s *SQLiteStore) Set(sess Session) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO sessions (id, token, user_id, name, client_id, created_at)
		 VALUES (1, ?, ?, ?, ?, ?)`,
		sess.Token, sess.UserID, sess.Name, sess.ClientID,
		sess.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Clear removes the persisted session.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
