// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
)

// =============================================================================
// SUBSCRIPTION CONSTANTS
// =============================================================================

// MaxFrameSize is the maximum allowed size for a single event frame (64KB).
// A frame larger than this is treated as a transport fault, not a decode
// fault, and terminates the stream.
const MaxFrameSize = 64 * 1024

// ErrFrameTooLarge indicates an event frame exceeded MaxFrameSize.
var ErrFrameTooLarge = errors.New("event frame too large")

// =============================================================================
// CONNECTION STATE
// =============================================================================

// ConnState is the lifecycle state of an event subscription.
// Transitions: Idle → Connecting → Open → Closed. Open moves to Closed on
// explicit close, on unrecoverable transport error, or on teardown. There is
// no automatic reconnect; reconnection policy, if any, belongs to the layer
// above Subscribe.
type ConnState int32

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosed
)

// String returns the string representation of the state.
func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event from the stream and returns the event
// type and data. The event type is typically empty for this backend.
// Returns io.EOF when the stream ends, ErrFrameTooLarge when a frame exceeds
// MaxFrameSize.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	var size int

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// Flush a trailing unterminated event before EOF.
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		size += len(line)
		if size > MaxFrameSize {
			return "", nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("event:")) {
			eventType = string(bytes.TrimSpace(line[6:]))
		} else if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Ignore other fields (id:, retry:, comments starting with :).
	}
}

// =============================================================================
// EVENT SUBSCRIPTION
// =============================================================================

// EventHandler receives the data of one well-formed event frame. The bytes
// are valid JSON but otherwise untyped; decoding into a typed event is the
// consumer's job. Invoked on the subscription's delivery goroutine, one frame
// at a time, in arrival order.
type EventHandler func(raw []byte)

// ErrorHandler receives per-frame parse failures (stream continues) and
// transport-level failures (stream is closed). Invoked on the delivery
// goroutine.
type ErrorHandler func(err error)

// EventSubscription is a handle to one live server-push connection.
type EventSubscription struct {
	state     atomic.Int32
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

// State returns the current connection state.
func (s *EventSubscription) State() ConnState {
	return ConnState(s.state.Load())
}

// Done returns a channel closed when the delivery goroutine has exited.
func (s *EventSubscription) Done() <-chan struct{} {
	return s.done
}

// Close tears down the subscription and releases the underlying connection.
// Idempotent: safe to call multiple times, concurrently, or after the
// connection already failed. Never panics. Close may race with an in-flight
// frame; that frame is either delivered first or dropped, both acceptable.
func (s *EventSubscription) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		s.cancel()
	})
}

// closed reports whether Close has been requested.
func (s *EventSubscription) isClosed() bool {
	return s.State() == StateClosed
}

// Subscribe opens one long-lived server-push connection scoped to the given
// token, via GET /messages/events?token={token}.
//
// Each inbound frame is checked to be well-formed JSON and handed raw to
// onEvent. A malformed frame is reported to onError and dropped; one bad
// frame never drops the stream. Transport failures (including server-side
// stream end) are reported to onError once and close the subscription; there
// is no automatic reconnect.
//
// The returned subscription must be closed to release the connection.
func (c *Client) Subscribe(ctx context.Context, token string, onEvent EventHandler, onError ErrorHandler) (*EventSubscription, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	if onEvent == nil {
		return nil, errors.New("nil event handler")
	}

	streamCtx, cancel := context.WithCancel(ctx)

	sub := &EventSubscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	sub.state.Store(int32(StateConnecting))

	streamURL := c.baseURL + "/messages/events?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, streamURL, nil)
	if err != nil {
		cancel()
		sub.state.Store(int32(StateClosed))
		close(sub.done)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	// Streaming client: no client-side timeout, lifetime bound to streamCtx.
	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		cancel()
		sub.state.Store(int32(StateClosed))
		close(sub.done)
		return nil, fmt.Errorf("subscribe failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := readResponse(resp)
		resp.Body.Close()
		cancel()
		sub.state.Store(int32(StateClosed))
		close(sub.done)
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	sub.state.Store(int32(StateOpen))
	go sub.deliver(resp.Body, onEvent, onError)

	return sub, nil
}

// deliver is the subscription's read loop. Each frame is processed
// synchronously to completion before the next is read, so delivery order is
// exactly transport arrival order.
func (s *EventSubscription) deliver(body io.ReadCloser, onEvent EventHandler, onError ErrorHandler) {
	defer close(s.done)
	defer body.Close()

	reader := NewSSEReader(body)
	for {
		_, data, err := reader.ReadEvent()
		if err != nil {
			// A close requested by the caller is not an error; anything else
			// (EOF included: the stream is unbounded by contract) is a
			// transport failure worth surfacing.
			if !s.isClosed() {
				s.state.Store(int32(StateClosed))
				if onError != nil {
					onError(fmt.Errorf("event stream terminated: %w", err))
				}
			}
			return
		}

		if s.isClosed() {
			// Teardown raced with this frame; drop it.
			return
		}

		if len(data) == 0 {
			continue
		}

		// Isolated-failure policy: a frame that is not JSON at all is
		// reported and dropped without touching the connection.
		if !json.Valid(data) {
			if onError != nil {
				onError(fmt.Errorf("malformed event frame (%d bytes)", len(data)))
			}
			continue
		}

		onEvent(data)
	}
}
