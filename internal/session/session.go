// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the authenticated identity for one run of the client
// and the stores that persist it between runs.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoSession indicates no persisted session exists.
var ErrNoSession = errors.New("no session")

// Session is the credential pair produced by login plus display metadata.
// It is a value object: created once after authentication, never mutated.
// Token authorizes requests; UserID drives message ownership classification.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	ClientID  string    `json:"client_id"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates a session from freshly issued credentials. ClientID is a random
// per-session identifier used for log correlation, not sent to the server.
func New(token, userID, name string) Session {
	return Session{
		Token:     token,
		UserID:    userID,
		Name:      name,
		ClientID:  uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// Valid reports whether the session carries usable credentials.
func (s Session) Valid() bool {
	return s.Token != "" && s.UserID != ""
}

// Store persists a single session between runs. Implementations must treat
// the session as an opaque unit: partial updates are not part of the
// contract.
type Store interface {
	// Get returns the persisted session, or ErrNoSession if none exists.
	Get() (Session, error)

	// Set replaces the persisted session.
	Set(s Session) error

	// Clear removes the persisted session. Clearing an empty store is not
	// an error.
	Clear() error
}
