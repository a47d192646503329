// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(url).WithTimeout(5 * time.Second)
}

func TestCreateTask(t *testing.T) {
	var gotBody createTaskRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/tasks", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"task_id": "task_42"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	taskID, err := client.CreateTask(context.Background(), "list the files", []Turn{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	})

	require.NoError(t, err)
	assert.Equal(t, "task_42", taskID)
	assert.Equal(t, "list the files", gotBody.Prompt)
	assert.Len(t, gotBody.Transcript, 2)
}

func TestCreateTaskEmptyTaskID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateTask(context.Background(), "hi", nil)
	assert.Error(t, err)
}

func TestCreateTaskNotConfigured(t *testing.T) {
	_, err := NewClient("").CreateTask(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "unauthorized maps to auth failed",
			status:  http.StatusUnauthorized,
			body:    `{"error": {"code": "bad_token", "message": "invalid token"}}`,
			wantErr: ErrAuthFailed,
		},
		{
			name:    "not found maps to task not found",
			status:  http.StatusNotFound,
			body:    `{"error": {"code": "no_task", "message": "no such task"}}`,
			wantErr: ErrTaskNotFound,
		},
		{
			name:    "429 maps to rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"error": {"code": "slow_down", "message": "too fast"}}`,
			wantErr: ErrRateLimited,
		},
		{
			name:    "5xx maps to backend down",
			status:  http.StatusBadGateway,
			body:    `{"error": {"code": "upstream", "message": "gateway"}}`,
			wantErr: ErrBackendDown,
		},
		{
			name:    "unparseable 401 still maps",
			status:  http.StatusUnauthorized,
			body:    `not json`,
			wantErr: ErrAuthFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).CreateTask(context.Background(), "hi", nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAPIErrorType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": {"code": "bad_prompt", "message": "prompt rejected"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateTask(context.Background(), "hi", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad_prompt", apiErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "prompt rejected")
}

func TestNoRetryOnServerError(t *testing.T) {
	// A 5xx must fail immediately; requests are single-shot.
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateTask(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrBackendDown)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRespondApproval(t *testing.T) {
	var gotPath string
	var gotBody approvalRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	err := client.RespondApproval(context.Background(), "task_1", "ap_9", true, "looks safe")
	require.NoError(t, err)
	assert.Equal(t, "/v1/tasks/task_1/approvals/ap_9", gotPath)
	assert.Equal(t, "approve", gotBody.Decision)
	assert.Equal(t, "looks safe", gotBody.Note)

	err = client.RespondApproval(context.Background(), "task_1", "ap_10", false, "")
	require.NoError(t, err)
	assert.Equal(t, "deny", gotBody.Decision)
}

func TestRespondApprovalRequiresIDs(t *testing.T) {
	client := newTestClient("http://localhost:1")
	assert.Error(t, client.RespondApproval(context.Background(), "", "ap_1", true, ""))
	assert.Error(t, client.RespondApproval(context.Background(), "task_1", "", true, ""))
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/healthz", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.NoError(t, newTestClient(server.URL).Health(context.Background()))
}

func TestHealthUnreachable(t *testing.T) {
	// Reserved port, nothing listening.
	err := newTestClient("http://127.0.0.1:1").Health(context.Background())
	assert.ErrorIs(t, err, ErrBackendDown)
}

func TestAuthHeaderSent(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"task_id": "t"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL).WithToken("secret-token")
	_, err := client.CreateTask(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server detects client disconnect and
		// cancels the request context; otherwise Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := newTestClient(server.URL).CreateTask(ctx, "hi", nil)
	assert.Error(t, err)
}
