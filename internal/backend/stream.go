// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxChunkSize is the maximum allowed size for a single SSE event (64KB).
const MaxChunkSize = 64 * 1024

// eventChanBuffer is the buffer of the decoded-event channel. Large enough
// to absorb a render stall without blocking the read loop for long.
const eventChanBuffer = 64

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
// name and joined data payload. An empty line terminates an event; comment
// lines and unknown fields (id:, retry:) are skipped. Returns io.EOF when
// the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	var size int

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// If we have data, return it before EOF
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		size += len(line)
		if size > MaxChunkSize {
			return "", nil, fmt.Errorf("event too large: %d bytes", size)
		}

		// Trim trailing newline and carriage return (CRLF tolerance)
		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if len(dataLines) > 0 || eventType != "" {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
		case bytes.HasPrefix(line, []byte("data:")):
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Ignore other fields (id:, retry:, comments starting with :)
	}
}

// =============================================================================
// EVENT STREAM
// =============================================================================

// StreamEvents opens the task's event stream and returns a channel of
// decoded events.
//
// A single goroutine reads the SSE body sequentially and forwards decoded
// events in arrival order. The channel closes after a done or error event,
// on EOF, or when ctx is cancelled; abandoning the read loop via ctx is the
// only cancellation mechanism. There is no reconnect.
//
// Transport failures mid-stream are delivered as a final Event with Err set
// before the channel closes.
func (c *Client) StreamEvents(ctx context.Context, taskID string) (<-chan Event, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if taskID == "" {
		return nil, ErrTaskNotFound
	}

	path := fmt.Sprintf("/v1/tasks/%s/events", taskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// PERFORMANCE: shared streaming client, no timeout (context-controlled)
	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendDown, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	events := make(chan Event, eventChanBuffer)
	go c.readLoop(ctx, resp.Body, events)
	return events, nil
}

// readLoop is the single sequential reader for one task stream.
func (c *Client) readLoop(ctx context.Context, body io.ReadCloser, events chan<- Event) {
	defer close(events)
	defer body.Close()

	reader := NewSSEReader(body)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		kind, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return
			}
			// Cancellation closes the body under the reader; that is the
			// expected teardown path, not an error worth surfacing.
			if ctx.Err() != nil {
				return
			}
			c.deliver(ctx, events, Event{Err: err})
			return
		}

		ev, ok := decodeEvent(kind, data)
		if !ok {
			// Unknown kinds and malformed payloads are skipped, not fatal.
			continue
		}

		if !c.deliver(ctx, events, ev) {
			return
		}

		if ev.Terminal() {
			return
		}
	}
}

// deliver sends an event unless the context is done first.
func (c *Client) deliver(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
