// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine reconciles the server-push event stream into the local
// message store: decode, classify ownership, merge with deduplication.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/morganforge/protalk-tui/internal/api"
	"github.com/morganforge/protalk-tui/internal/model"
	"github.com/morganforge/protalk-tui/internal/session"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Subscription is the handle the engine holds on a live event stream.
type Subscription interface {
	Close()
	Done() <-chan struct{}
}

// EventSource opens event subscriptions. Satisfied by ClientSource in
// production and by fakes in tests.
type EventSource interface {
	Subscribe(ctx context.Context, token string, onEvent func(raw []byte), onError func(err error)) (Subscription, error)
}

// ClientSource adapts an api.Client to the EventSource interface.
type ClientSource struct {
	Client *api.Client
}

// Subscribe opens a subscription via the underlying API client.
func (c ClientSource) Subscribe(ctx context.Context, token string, onEvent func(raw []byte), onError func(err error)) (Subscription, error) {
	sub, err := c.Client.Subscribe(ctx, token, onEvent, onError)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// =============================================================================
// ENGINE
// =============================================================================

var (
	// ErrAlreadyStarted indicates Start was called on a running engine.
	ErrAlreadyStarted = errors.New("engine already started")

	// ErrInvalidSession indicates Start was called without usable credentials.
	ErrInvalidSession = errors.New("invalid session")
)

// Engine drives one subscription into one message store.
//
// Lifecycle: New → Start → Stop. Start is one-shot; a stopped engine is not
// restarted, a new one is created. Stop is idempotent and safe to call on an
// engine that never started.
//
// The engine performs no sends and never writes to the store on the send
// path: a sent message appears only when the server echoes it back through
// the stream, at which point it merges like any other inbound message.
type Engine struct {
	source EventSource
	store  *model.MessageStore

	// onStreamError receives transport-level stream failures. The engine does
	// not reconnect; surfacing the failure is the whole policy.
	onStreamError func(error)

	mu      sync.Mutex
	sub     Subscription
	cancel  context.CancelFunc
	started bool
	userID  string
}

// New creates an engine that merges events from source into store.
func New(source EventSource, store *model.MessageStore) *Engine {
	return &Engine{
		source: source,
		store:  store,
	}
}

// OnStreamError registers the stream failure callback. Must be called before
// Start.
func (e *Engine) OnStreamError(fn func(error)) {
	e.onStreamError = fn
}

// Store returns the message store the engine merges into.
func (e *Engine) Store() *model.MessageStore {
	return e.store
}

// Start opens the event subscription for the given session and begins
// merging inbound events into the store.
func (e *Engine) Start(ctx context.Context, sess session.Session) error {
	if !sess.Valid() {
		return ErrInvalidSession
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}

	subCtx, cancel := context.WithCancel(ctx)
	e.userID = sess.UserID

	sub, err := e.source.Subscribe(subCtx, sess.Token, e.handleEvent, e.handleStreamError)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open event stream: %w", err)
	}

	e.sub = sub
	e.cancel = cancel
	e.started = true
	log.Printf("engine started for user %s", sess.UserID)
	return nil
}

// Stop closes the subscription. Idempotent; a no-op on an engine that never
// started.
func (e *Engine) Stop() {
	e.mu.Lock()
	sub := e.sub
	cancel := e.cancel
	e.sub = nil
	e.cancel = nil
	e.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if cancel != nil {
		cancel()
	}
}

// handleEvent processes one well-formed JSON frame from the subscription.
// Runs on the subscription's delivery goroutine; frames are handled one at a
// time in arrival order, so store merges are sequenced.
func (e *Engine) handleEvent(raw []byte) {
	evt, err := model.DecodeEvent(raw)
	if err != nil {
		// Structurally invalid frame: drop it, keep the stream. The frame
		// content is not logged; it may contain message text.
		log.Printf("dropping undecodable event: %v", err)
		return
	}

	if evt.Kind != model.EventMessage {
		return
	}

	msg := model.NewChatMessage(evt, e.userID)
	e.store.Append(msg)
}

// handleStreamError forwards transport failures to the registered callback.
func (e *Engine) handleStreamError(err error) {
	log.Printf("event stream error: %v", err)
	if e.onStreamError != nil {
		e.onStreamError(err)
	}
}
