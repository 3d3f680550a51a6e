// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the message stream:
// the wire-level event envelope, the derived chat message, and the
// ordered, deduplicated message store.
package model

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// EVENT KIND
// =============================================================================

// EventKind discriminates server event variants. The server currently only
// produces message events, but the kind is modeled as a tagged union so new
// event types can be added without breaking the decoder: unknown tags decode
// to EventIgnored rather than an error.
type EventKind int

const (
	// EventMessage is a chat message delivered to the subscriber.
	EventMessage EventKind = iota

	// EventIgnored is any event whose type the client does not understand.
	// Ignored events are decoded successfully and then dropped by the engine.
	EventIgnored
)

// String returns the string representation of the kind.
func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Wire tags recognized as chat message events. The server emits
// "new_message"; "message" is accepted as the generic form for
// compatibility with older builds.
const (
	eventTypeMessage    = "message"
	eventTypeNewMessage = "new_message"
)

// isMessageTag reports whether a wire tag denotes a chat message event.
func isMessageTag(tag string) bool {
	return tag == eventTypeMessage || tag == eventTypeNewMessage
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// MessagePayload is the message body of a server event.
//
// EncryptedBlob carries the message content. It is plaintext today, but the
// field name is a forward contract: the client treats it as opaque text and
// never parses it. Nonce is a placeholder for a future authenticated
// encryption nonce; it is carried through unchanged and not validated.
type MessagePayload struct {
	EncryptedBlob string  `json:"encrypted_blob"`
	Nonce         string  `json:"nonce"`
	SenderID      string  `json:"sender_id"`
	GroupID       *string `json:"group_id"`
	RecipientID   *string `json:"recipient_id"`
}

// MessageEvent is a decoded server-push event. Immutable after decode.
//
// Timestamp is server-assigned, in seconds since epoch, and is NOT guaranteed
// unique across events: two messages sent within the same second carry the
// same timestamp.
type MessageEvent struct {
	Kind      EventKind
	EventType string
	Payload   MessagePayload
	Timestamp int64
}

// =============================================================================
// DECODER
// =============================================================================

// DecodeError reports a structurally invalid event frame. Decode errors are
// recoverable by contract: the caller drops the frame and keeps the stream
// open.
type DecodeError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode event: %s: %v", e.Reason, e.Err)
	}
	return "decode event: " + e.Reason
}

// Unwrap returns the underlying error, if any.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// eventEnvelope mirrors the wire shape with pointer fields so that missing
// keys are distinguishable from zero values.
type eventEnvelope struct {
	EventType *string         `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp *int64          `json:"timestamp"`
}

// DecodeEvent parses a raw event frame into a MessageEvent.
//
// It validates the presence of event_type, payload, and timestamp. Any
// structural deviation returns a *DecodeError; it never panics past the
// caller, so the subscription's per-frame isolation holds. Unknown event
// types decode to an EventIgnored variant, not an error.
func DecodeEvent(raw []byte) (*MessageEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Reason: "malformed JSON", Err: err}
	}

	if env.EventType == nil {
		return nil, &DecodeError{Reason: "missing event_type"}
	}
	if env.Timestamp == nil {
		return nil, &DecodeError{Reason: "missing timestamp"}
	}

	evt := &MessageEvent{
		EventType: *env.EventType,
		Timestamp: *env.Timestamp,
	}

	if !isMessageTag(*env.EventType) {
		evt.Kind = EventIgnored
		return evt, nil
	}

	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return nil, &DecodeError{Reason: "missing payload"}
	}
	if err := json.Unmarshal(env.Payload, &evt.Payload); err != nil {
		return nil, &DecodeError{Reason: "malformed payload", Err: err}
	}

	evt.Kind = EventMessage
	return evt, nil
}
