// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// =============================================================================
// AUTH TESTS
// =============================================================================

func TestLoginSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/auth/login" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if req.Email != "alice@example.com" || req.Password != "hunter2" {
			t.Errorf("unexpected credentials: %q / %q", req.Email, req.Password)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AuthResponse{
			Token:  "tok-123",
			UserID: "user-abc",
			Name:   "Alice",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	auth, err := client.Login(context.Background(), "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if auth.Token != "tok-123" || auth.UserID != "user-abc" || auth.Name != "Alice" {
		t.Errorf("unexpected auth response: %+v", auth)
	}
}

func TestLoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Login(context.Background(), "alice@example.com", "wrong")
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
}

func TestRegisterSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/register" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if req.Name != "Bob" {
			t.Errorf("unexpected name: %q", req.Name)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AuthResponse{Token: "tok-456", UserID: "user-bob", Name: "Bob"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	auth, err := client.Register(context.Background(), "bob@example.com", "secret", "Bob")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if auth.UserID != "user-bob" {
		t.Errorf("unexpected user id: %q", auth.UserID)
	}
}

// =============================================================================
// SEND GATEWAY TESTS
// =============================================================================

func TestSendGroupMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/group/general" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-123" {
			t.Errorf("unexpected auth header: %q", auth)
		}

		var payload messagePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if payload.EncryptedBlob != "hello" {
			t.Errorf("unexpected blob: %q", payload.EncryptedBlob)
		}
		if payload.Nonce != "test-nonce" {
			t.Errorf("unexpected nonce: %q", payload.Nonce)
		}
		if payload.SenderID != "user-abc" {
			t.Errorf("unexpected sender: %q", payload.SenderID)
		}
		if payload.GroupID != "general" {
			t.Errorf("unexpected group: %q", payload.GroupID)
		}
		if payload.RecipientID != nil {
			t.Errorf("expected nil recipient, got %v", *payload.RecipientID)
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL).WithToken("tok-123")
	if err := client.SendGroupMessage(context.Background(), "general", "hello", "user-abc"); err != nil {
		t.Fatalf("SendGroupMessage failed: %v", err)
	}
}

func TestSendRequiresToken(t *testing.T) {
	calls := atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.SendGroupMessage(context.Background(), "general", "hello", "user-abc")
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
	if calls.Load() != 0 {
		t.Error("unauthenticated send must not reach the server")
	}
}

// A failed send is one attempt, one error. No retry.
func TestSendFailureSingleAttempt(t *testing.T) {
	calls := atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.Copy(io.Discard, r.Body)
		http.Error(w, "backend down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL).WithToken("tok-123")
	err := client.SendGroupMessage(context.Background(), "general", "hello", "user-abc")
	if err == nil {
		t.Fatal("expected error from failed send")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("unexpected status: %d", apiErr.Status)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", calls.Load())
	}
}

func TestSendRateLimitedByServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL).WithToken("tok-123")
	err := client.SendGroupMessage(context.Background(), "general", "hello", "user-abc")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestSendEscapesChannelID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/messages/group/a%2Fb" {
			t.Errorf("channel id not escaped: %s", r.URL.EscapedPath())
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL).WithToken("tok-123")
	if err := client.SendGroupMessage(context.Background(), "a/b", "hello", "user-abc"); err != nil {
		t.Fatalf("SendGroupMessage failed: %v", err)
	}
}
