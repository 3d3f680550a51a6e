// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
)

// =============================================================================
// MESSAGE STORE
// =============================================================================

// MessageStore is an ordered, deduplicated log of chat messages for the
// active channel. It is the single source of truth the presentation layer
// reads.
//
// Ordering is arrival order, not timestamp order: out-of-order network
// delivery is not corrected. No two entries ever share a DedupKey.
//
// The store is owned exclusively by the reconciliation engine for the
// lifetime of one subscription; everything else may only read it.
//
// Thread-safety: appends happen on the subscription's delivery goroutine
// while the UI goroutine reads, so all operations are mutex-protected.
type MessageStore struct {
	mu        sync.Mutex
	messages  []ChatMessage
	seen      map[int64]struct{}
	observers []func(ChatMessage)
}

// NewMessageStore creates an empty store. One store exists per authenticated
// session and is discarded on logout.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		seen: make(map[int64]struct{}),
	}
}

// Append merges a message into the log. Returns true if the message was
// appended, false if its DedupKey was already present (the message is
// silently absorbed — duplicate delivery is not an error).
//
// Each accepted message triggers exactly one notification per registered
// observer, invoked synchronously in registration order.
func (s *MessageStore) Append(msg ChatMessage) bool {
	s.mu.Lock()
	if _, dup := s.seen[msg.DedupKey]; dup {
		s.mu.Unlock()
		return false
	}
	s.seen[msg.DedupKey] = struct{}{}
	s.messages = append(s.messages, msg)
	observers := s.observers
	s.mu.Unlock()

	// Notify outside the lock so observers may read the store.
	for _, fn := range observers {
		fn(msg)
	}
	return true
}

// Contains reports whether a message with the given dedup key is present.
func (s *MessageStore) Contains(dedupKey int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[dedupKey]
	return ok
}

// Messages returns a copy of the log in arrival order.
func (s *MessageStore) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the log.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Observe registers a callback invoked once for each accepted append.
// Observers must not mutate the store.
func (s *MessageStore) Observe(fn func(ChatMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}
