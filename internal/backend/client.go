// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

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
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the task backend API.
const (
	// DefaultTimeout is the default timeout for non-streaming API requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 4 * 1024 * 1024 // 4MB limit

	// mutateRatePerSecond bounds how fast the client fires mutating calls
	// (task creation, approval decisions) at the backend.
	mutateRatePerSecond = 2
	mutateBurst         = 4
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for all non-streaming backend requests.
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

	// sharedStreamingClient is used for the event stream (no timeout,
	// context-controlled).
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
		// No timeout for streaming - controlled via context
	}
)

// Error variables for common backend errors.
var (
	// ErrNotConfigured indicates the backend URL is not set.
	ErrNotConfigured = errors.New("backend URL not configured")

	// ErrAuthFailed indicates authentication failed (invalid or expired token).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrTaskNotFound indicates the task ID does not exist on the backend.
	ErrTaskNotFound = errors.New("task not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrBackendDown indicates the backend returned a 5xx or refused the
	// connection.
	ErrBackendDown = errors.New("backend unavailable")
)

// APIError represents a structured error response from the backend.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// apiErrorResponse is the backend's error envelope.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// Turn is one prior turn of transcript context sent with a task request.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// createTaskRequest is the body for POST /v1/tasks.
type createTaskRequest struct {
	Prompt     string `json:"prompt"`
	Transcript []Turn `json:"transcript,omitempty"`
}

// createTaskResponse is the 202 body for POST /v1/tasks.
type createTaskResponse struct {
	TaskID string `json:"task_id"`
}

// approvalRequest is the body for posting an approval decision.
type approvalRequest struct {
	Decision string `json:"decision"` // "approve" or "deny"
	Note     string `json:"note,omitempty"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for the task-execution backend.
//
// Requests are single-shot: errors are returned to the caller as-is and
// surface in the UI as a chat bubble. There is deliberately no retry loop
// here.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	timeout   time.Duration

	// limiter paces mutating calls so a stuck submit key can't hammer
	// the backend.
	limiter *rate.Limiter
}

// NewClient creates a client for the backend at baseURL.
//
// An empty token is allowed; the backend decides whether auth is required.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: "taskchat/0.3.0",
		timeout:   DefaultTimeout,
		limiter:   rate.NewLimiter(rate.Limit(mutateRatePerSecond), mutateBurst),
	}
}

// WithToken sets the bearer token for authenticated backends.
func (c *Client) WithToken(token string) *Client {
	c.token = strings.TrimSpace(token)
	return c
}

// WithTimeout sets the timeout for non-streaming requests.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// IsConfigured returns true if the client has a backend URL.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// setHeaders sets the required headers for backend requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// logRequest logs an API request without exposing sensitive data.
// SECURITY: never log headers (may contain auth) or bodies (prompt text).
func logRequest(req *http.Request) {
	log.Printf("backend request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs status and duration only.
func logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("backend response: %d (%v)", resp.StatusCode, duration)
}

// =============================================================================
// OPERATIONS
// =============================================================================

// CreateTask submits a prompt with transcript context and returns the
// server-issued task ID. The client never invents task IDs.
func (c *Client) CreateTask(ctx context.Context, prompt string, history []Turn) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := c.doJSON(ctx, http.MethodPost, "/v1/tasks", createTaskRequest{
		Prompt:     prompt,
		Transcript: history,
	}, http.StatusAccepted)
	if err != nil {
		return "", err
	}

	var resp createTaskResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse task response: %w", err)
	}
	if resp.TaskID == "" {
		return "", errors.New("backend returned empty task_id")
	}
	return resp.TaskID, nil
}

// RespondApproval posts the user's decision for a pending approval.
func (c *Client) RespondApproval(ctx context.Context, taskID, approvalID string, approve bool, note string) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	if taskID == "" || approvalID == "" {
		return errors.New("task and approval IDs are required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	decision := "deny"
	if approve {
		decision = "approve"
	}

	path := fmt.Sprintf("/v1/tasks/%s/approvals/%s", taskID, approvalID)
	_, err := c.doJSON(ctx, http.MethodPost, path, approvalRequest{
		Decision: decision,
		Note:     note,
	}, http.StatusOK)
	return err
}

// Health checks whether the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendDown, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned %d", ErrBackendDown, resp.StatusCode)
	}
	return nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// doJSON performs a single JSON request and returns the response body.
// SECURITY: clears the Authorization header after the request so the
// outgoing request can be logged safely.
func (c *Client) doJSON(ctx context.Context, method, path string, payload any, wantStatus int) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	logRequest(req)

	start := time.Now()
	resp, err := sharedHTTPClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendDown, err)
	}
	defer resp.Body.Close()
	logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != wantStatus {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}
	return body, nil
}

// readResponse reads the response body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to typed Go errors.
func handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		typed := &APIError{
			Code:    apiErr.Error.Code,
			Message: apiErr.Error.Message,
			Status:  statusCode,
		}

		switch statusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrAuthFailed, typed.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrTaskNotFound, typed.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, typed.Message)
		default:
			if statusCode >= 500 {
				return fmt.Errorf("%w: %s", ErrBackendDown, typed.Message)
			}
			return typed
		}
	}

	// Fallback for unparseable error responses
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrTaskNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		if statusCode >= 500 {
			return ErrBackendDown
		}
		return &APIError{
			Message: strings.TrimSpace(string(body)),
			Status:  statusCode,
		}
	}
}
