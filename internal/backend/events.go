// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "encoding/json"

// =============================================================================
// EVENT KINDS
// =============================================================================

// EventKind identifies one of the five event types the backend emits.
type EventKind string

const (
	// EventMessage carries a partial or final message frame.
	EventMessage EventKind = "message"

	// EventApproval asks the user to approve or deny an action.
	EventApproval EventKind = "approval"

	// EventStatus reports a task state transition.
	EventStatus EventKind = "status"

	// EventDone closes the stream after the task completed.
	EventDone EventKind = "done"

	// EventError closes the stream after the task failed.
	EventError EventKind = "error"
)

// =============================================================================
// EVENT PAYLOADS
// =============================================================================

// MessageEvent is a frame of assistant output. Partial frames grow the
// message; the final frame (Partial=false) carries the full text and is
// authoritative.
type MessageEvent struct {
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	Partial   bool   `json:"partial"`
}

// ApprovalEvent asks the user to approve an action before the backend
// proceeds. The task pauses until a decision is posted back.
type ApprovalEvent struct {
	ApprovalID string `json:"approval_id"`
	Title      string `json:"title"`
	Command    string `json:"command"`
	Detail     string `json:"detail,omitempty"`
}

// StatusEvent reports the task's lifecycle state:
// queued, working, awaiting_approval, done, failed.
type StatusEvent struct {
	State string `json:"state"`
}

// DoneEvent is the terminal event of a successful stream.
type DoneEvent struct {
	TaskID     string `json:"task_id"`
	Result     string `json:"result,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// ErrorEvent is the terminal event of a failed stream.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// EVENT UNION
// =============================================================================

// Event is one decoded event from the task stream. Exactly one payload
// pointer is set for the matching Kind. Err is set instead when the stream
// itself failed (network error, oversized frame); such events have no Kind.
type Event struct {
	Kind EventKind

	Message  *MessageEvent
	Approval *ApprovalEvent
	Status   *StatusEvent
	Done     *DoneEvent
	Error    *ErrorEvent

	Err error `json:"-"`
}

// Terminal returns true if this event ends the stream.
func (e Event) Terminal() bool {
	return e.Kind == EventDone || e.Kind == EventError || e.Err != nil
}

// decodeEvent parses the data payload for a named event kind.
// Unknown kinds and malformed payloads return ok=false and are skipped by
// the read loop; a bad frame must never kill the stream.
func decodeEvent(kind string, data []byte) (Event, bool) {
	switch EventKind(kind) {
	case EventMessage:
		var p MessageEvent
		if err := json.Unmarshal(data, &p); err != nil || p.MessageID == "" {
			return Event{}, false
		}
		return Event{Kind: EventMessage, Message: &p}, true

	case EventApproval:
		var p ApprovalEvent
		if err := json.Unmarshal(data, &p); err != nil || p.ApprovalID == "" {
			return Event{}, false
		}
		return Event{Kind: EventApproval, Approval: &p}, true

	case EventStatus:
		var p StatusEvent
		if err := json.Unmarshal(data, &p); err != nil || p.State == "" {
			return Event{}, false
		}
		return Event{Kind: EventStatus, Status: &p}, true

	case EventDone:
		var p DoneEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, false
		}
		return Event{Kind: EventDone, Done: &p}, true

	case EventError:
		var p ErrorEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, false
		}
		return Event{Kind: EventError, Error: &p}, true

	default:
		return Event{}, false
	}
}
