// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReaderBasicEvent(t *testing.T) {
	input := "event: message\ndata: {\"text\": \"hi\"}\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	kind, data, err := reader.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "message", kind)
	assert.JSONEq(t, `{"text": "hi"}`, string(data))

	_, _, err = reader.ReadEvent()
	assert.Equal(t, io.EOF, err)
}

func TestSSEReaderMultipleEvents(t *testing.T) {
	input := "event: status\ndata: {\"state\":\"working\"}\n\n" +
		"event: done\ndata: {\"task_id\":\"t1\"}\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	kind, _, err := reader.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "status", kind)

	kind, _, err = reader.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "done", kind)
}

func TestSSEReaderCRLF(t *testing.T) {
	input := "event: status\r\ndata: {\"state\":\"queued\"}\r\n\r\n"
	reader := NewSSEReader(strings.NewReader(input))

	kind, data, err := reader.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "status", kind)
	assert.JSONEq(t, `{"state":"queued"}`, string(data))
}

func TestSSEReaderMultilineData(t *testing.T) {
	input := "data: line one\ndata: line two\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", string(data))
}

func TestSSEReaderSkipsCommentsAndIDs(t *testing.T) {
	input := ": keepalive\nid: 7\nretry: 500\nevent: status\ndata: {\"state\":\"working\"}\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	kind, data, err := reader.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "status", kind)
	assert.NotEmpty(t, data)
}

func TestSSEReaderDataBeforeEOF(t *testing.T) {
	// Stream cut off without trailing blank line.
	input := "event: message\ndata: {\"message_id\":\"m1\"}"
	reader := NewSSEReader(strings.NewReader(input))

	kind, data, err := reader.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "message", kind)
	assert.NotEmpty(t, data)
}

func TestSSEReaderOversizedEvent(t *testing.T) {
	input := "data: " + strings.Repeat("x", MaxChunkSize+1) + "\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, _, err := reader.ReadEvent()
	assert.Error(t, err)
}

// =============================================================================
// EVENT DECODE TESTS
// =============================================================================

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		data     string
		wantOK   bool
		wantKind EventKind
	}{
		{
			name:     "message frame",
			kind:     "message",
			data:     `{"message_id":"m1","role":"assistant","text":"hi","partial":true}`,
			wantOK:   true,
			wantKind: EventMessage,
		},
		{
			name:     "approval request",
			kind:     "approval",
			data:     `{"approval_id":"ap1","title":"Run command","command":"ls"}`,
			wantOK:   true,
			wantKind: EventApproval,
		},
		{
			name:     "status transition",
			kind:     "status",
			data:     `{"state":"working"}`,
			wantOK:   true,
			wantKind: EventStatus,
		},
		{
			name:     "done",
			kind:     "done",
			data:     `{"task_id":"t1","result":"ok","stop_reason":"complete"}`,
			wantOK:   true,
			wantKind: EventDone,
		},
		{
			name:     "error",
			kind:     "error",
			data:     `{"code":"internal","message":"boom"}`,
			wantOK:   true,
			wantKind: EventError,
		},
		{
			name:   "unknown kind skipped",
			kind:   "heartbeat",
			data:   `{}`,
			wantOK: false,
		},
		{
			name:   "malformed payload skipped",
			kind:   "message",
			data:   `{not json`,
			wantOK: false,
		},
		{
			name:   "message without id skipped",
			kind:   "message",
			data:   `{"text":"orphan"}`,
			wantOK: false,
		},
		{
			name:   "status without state skipped",
			kind:   "status",
			data:   `{}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := decodeEvent(tt.kind, []byte(tt.data))
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKind, ev.Kind)
			}
		})
	}
}

func TestEventTerminal(t *testing.T) {
	assert.True(t, Event{Kind: EventDone}.Terminal())
	assert.True(t, Event{Kind: EventError}.Terminal())
	assert.True(t, Event{Err: io.ErrUnexpectedEOF}.Terminal())
	assert.False(t, Event{Kind: EventMessage}.Terminal())
	assert.False(t, Event{Kind: EventStatus}.Terminal())
}

// =============================================================================
// STREAM INTEGRATION TESTS
// =============================================================================

// sseHandler serves a fixed SSE script for one task.
func sseHandler(t *testing.T, script string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, script)
	}
}

func collectEvents(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for stream to close")
		}
	}
}

func TestStreamEventsFullLifecycle(t *testing.T) {
	script := "event: status\ndata: {\"state\":\"queued\"}\n\n" +
		"event: status\ndata: {\"state\":\"working\"}\n\n" +
		"event: message\ndata: {\"message_id\":\"m1\",\"role\":\"assistant\",\"text\":\"Hel\",\"partial\":true}\n\n" +
		"event: message\ndata: {\"message_id\":\"m1\",\"role\":\"assistant\",\"text\":\"lo\",\"partial\":true}\n\n" +
		"event: message\ndata: {\"message_id\":\"m1\",\"role\":\"assistant\",\"text\":\"Hello\",\"partial\":false}\n\n" +
		"event: done\ndata: {\"task_id\":\"t1\",\"stop_reason\":\"complete\"}\n\n"

	server := httptest.NewServer(sseHandler(t, script))
	defer server.Close()

	ch, err := newTestClient(server.URL).StreamEvents(context.Background(), "t1")
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.Len(t, events, 6)
	assert.Equal(t, EventStatus, events[0].Kind)
	assert.Equal(t, "queued", events[0].Status.State)
	assert.Equal(t, EventMessage, events[2].Kind)
	assert.True(t, events[2].Message.Partial)
	assert.False(t, events[4].Message.Partial)
	assert.Equal(t, "Hello", events[4].Message.Text)
	assert.Equal(t, EventDone, events[5].Kind)
}

func TestStreamEventsStopsAfterDone(t *testing.T) {
	// Anything after the terminal event must not be delivered.
	script := "event: done\ndata: {\"task_id\":\"t1\"}\n\n" +
		"event: message\ndata: {\"message_id\":\"late\",\"text\":\"ghost\"}\n\n"

	server := httptest.NewServer(sseHandler(t, script))
	defer server.Close()

	ch, err := newTestClient(server.URL).StreamEvents(context.Background(), "t1")
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.Len(t, events, 1)
	assert.Equal(t, EventDone, events[0].Kind)
}

func TestStreamEventsErrorEvent(t *testing.T) {
	script := "event: error\ndata: {\"code\":\"task_failed\",\"message\":\"tool crashed\"}\n\n"

	server := httptest.NewServer(sseHandler(t, script))
	defer server.Close()

	ch, err := newTestClient(server.URL).StreamEvents(context.Background(), "t1")
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Kind)
	assert.Equal(t, "task_failed", events[0].Error.Code)
}

func TestStreamEventsSkipsUnknownKinds(t *testing.T) {
	script := "event: heartbeat\ndata: {}\n\n" +
		"event: message\ndata: {bad json\n\n" +
		"event: status\ndata: {\"state\":\"working\"}\n\n" +
		"event: done\ndata: {}\n\n"

	server := httptest.NewServer(sseHandler(t, script))
	defer server.Close()

	ch, err := newTestClient(server.URL).StreamEvents(context.Background(), "t1")
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.Len(t, events, 2)
	assert.Equal(t, EventStatus, events[0].Kind)
	assert.Equal(t, EventDone, events[1].Kind)
}

func TestStreamEventsEOFWithoutDone(t *testing.T) {
	// Server hangs up mid-task: channel closes cleanly, no phantom events.
	script := "event: status\ndata: {\"state\":\"working\"}\n\n"

	server := httptest.NewServer(sseHandler(t, script))
	defer server.Close()

	ch, err := newTestClient(server.URL).StreamEvents(context.Background(), "t1")
	require.NoError(t, err)

	events := collectEvents(t, ch)
	require.Len(t, events, 1)
	assert.Equal(t, EventStatus, events[0].Kind)
}

func TestStreamEventsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "event: status\ndata: {\"state\":\"working\"}\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Hold the stream open until the client goes away.
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := newTestClient(server.URL).StreamEvents(ctx, "t1")
	require.NoError(t, err)

	// Drain the first event, then abandon the stream.
	select {
	case ev := <-ch:
		assert.Equal(t, EventStatus, ev.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("no first event")
	}
	cancel()

	// Channel must close without surfacing a cancellation error event.
	events := collectEvents(t, ch)
	for _, ev := range events {
		assert.NoError(t, ev.Err)
	}
}

func TestStreamEventsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"code": "no_task", "message": "unknown task"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).StreamEvents(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestStreamEventsRequiresTaskID(t *testing.T) {
	_, err := newTestClient("http://localhost:1").StreamEvents(context.Background(), "")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
