// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the iProTalk backend:
// credential exchange (login/register), the outbound send gateway, and the
// server-push event subscription.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is the base URL for a local development backend.
	DefaultBaseURL = "http://127.0.0.1:3000/api"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// Response size limit prevents memory exhaustion on a misbehaving server.
	MaxResponseSize = 2 * 1024 * 1024 // 2MB

	// sendNoncePlaceholder is the fixed nonce sent with outbound messages.
	// The payload shape reserves this field for a future authenticated
	// encryption nonce; until then the server expects this sentinel.
	sendNoncePlaceholder = "test-nonce"
)

// Outbound send rate: small burst, gentle sustained rate. This is a guard
// against accidental flooding (key repeat, scripts), not a retry policy.
const (
	sendRateLimit = rate.Limit(5)
	sendRateBurst = 10
)

var (
	// sharedHTTPClient is used for request/response calls.
	// Connection pooling reduces TCP handshake overhead; TLS 1.2 minimum.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for the event stream. No client timeout:
	// the subscription is unbounded and lifetime is controlled via context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// Error variables for common API failures.
var (
	// ErrNotAuthenticated indicates no bearer token is configured.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAuthFailed indicates the server rejected the credentials or token.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")
)

// APIError represents an error response from the backend.
type APIError struct {
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for the iProTalk backend API. The zero value is not
// usable; create one with NewClient.
//
// A Client is safe for concurrent use. The token is set once after login and
// read-only afterwards; callers that re-authenticate should create a new
// Client.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	sendLimiter *rate.Limiter
}

// NewClient creates a client for the given base URL (including any path
// prefix, e.g. "https://chat.example.com/api").
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  sharedHTTPClient,
		sendLimiter: rate.NewLimiter(sendRateLimit, sendRateBurst),
	}
}

// WithToken sets the bearer token and returns the client.
func (c *Client) WithToken(token string) *Client {
	c.token = token
	return c
}

// WithHTTPClient overrides the HTTP client, primarily for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the configured bearer token.
func (c *Client) Token() string {
	return c.token
}

// IsAuthenticated returns true if a bearer token is configured.
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// setHeaders sets the common headers for API requests. The Authorization
// header is only attached when a token is present.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "protalk-tui/0.1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// logRequest logs an API request without exposing sensitive data.
// Headers (auth) and bodies (message content) are never logged.
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs an API response status and duration, never the body.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API response: %d (%v)", resp.StatusCode, duration)
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to Go errors.
func handleErrorResponse(statusCode int, body []byte) error {
	msg := strings.TrimSpace(string(body))

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if msg != "" {
			return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
		}
		return ErrAuthFailed
	case http.StatusTooManyRequests:
		if msg != "" {
			return fmt.Errorf("%w: %s", ErrRateLimited, msg)
		}
		return ErrRateLimited
	default:
		return &APIError{Message: msg, Status: statusCode}
	}
}

// postJSON issues a single POST with a JSON body and returns the response
// body on 2xx. No retries: callers that need resilience layer it above.
func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	c.logRequest(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}
	return body, nil
}

// =============================================================================
// AUTH COLLABORATOR
// =============================================================================

// AuthResponse is the credential pair returned by login and register.
// The reconciliation core only consumes (Token, UserID); Name is for display.
type AuthResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// loginRequest is the wire body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// registerRequest is the wire body for POST /auth/register.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Login exchanges credentials for a token via POST /auth/login.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body, err := c.postJSON(ctx, "/auth/login", loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	var auth AuthResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, fmt.Errorf("failed to parse auth response: %w", err)
	}
	return &auth, nil
}

// Register creates an account via POST /auth/register and returns the same
// credential pair as Login.
func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	body, err := c.postJSON(ctx, "/auth/register", registerRequest{Email: email, Password: password, Name: name})
	if err != nil {
		return nil, err
	}
	var auth AuthResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, fmt.Errorf("failed to parse auth response: %w", err)
	}
	return &auth, nil
}

// =============================================================================
// SEND GATEWAY
// =============================================================================

// messagePayload is the wire body for POST /messages/group/{gid}.
type messagePayload struct {
	EncryptedBlob string  `json:"encrypted_blob"`
	Nonce         string  `json:"nonce"`
	SenderID      string  `json:"sender_id"`
	GroupID       string  `json:"group_id"`
	RecipientID   *string `json:"recipient_id"`
}

// SendGroupMessage posts one message to a group channel. Fire-and-forget:
// exactly one attempt, failure is propagated to the caller and no local state
// changes either way. The sender sees its own message only when the server
// echoes it back through the event stream.
//
// The message text travels in encrypted_blob as opaque text (plaintext
// today); the nonce field carries a fixed placeholder until the encrypted
// mode exists.
func (c *Client) SendGroupMessage(ctx context.Context, channelID, text, senderID string) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	// Burst guard on the send path. Waits, never drops.
	if err := c.sendLimiter.Wait(ctx); err != nil {
		return err
	}

	payload := messagePayload{
		EncryptedBlob: text,
		Nonce:         sendNoncePlaceholder,
		SenderID:      senderID,
		GroupID:       channelID,
		RecipientID:   nil,
	}

	_, err := c.postJSON(ctx, "/messages/group/"+url.PathEscape(channelID), payload)
	return err
}
