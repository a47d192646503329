// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea messages exchanged between async commands
// and the update loop. Every message that originates from a task stream
// carries the task ID so stale messages from an abandoned task can be
// discarded.
package chat

import (
	"time"

	"github.com/jeranaias/taskchat-tui/internal/backend"
)

// =============================================================================
// TASK LIFECYCLE MESSAGES
// =============================================================================

// TaskStartedMsg is sent after the task was created and its event stream
// opened. On failure Err is set and the other fields are zero.
type TaskStartedMsg struct {
	TaskID string
	Events <-chan backend.Event
	Err    error
}

// StreamEventMsg wraps one decoded event from the task stream.
type StreamEventMsg struct {
	TaskID string
	Event  backend.Event
}

// StreamClosedMsg is sent when the event channel closes.
type StreamClosedMsg struct {
	TaskID string
}

// StreamTickMsg drives batched flushing of streamed partial text.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// APPROVAL MESSAGES
// =============================================================================

// ApprovalPostedMsg reports the result of posting an approval decision back
// to the backend.
type ApprovalPostedMsg struct {
	TaskID     string
	ApprovalID string
	Approved   bool
	Err        error
}

// =============================================================================
// BACKEND STATUS MESSAGES
// =============================================================================

// BackendStatusMsg reports the result of a health check.
type BackendStatusMsg struct {
	Healthy bool
	Err     error
}

// =============================================================================
// PERSISTENCE MESSAGES
// =============================================================================

// TranscriptSavedMsg reports the result of saving a completed transcript.
type TranscriptSavedMsg struct {
	TranscriptID string
	Err          error
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// StatusFlashMsg shows a temporary line in the status area.
type StatusFlashMsg struct {
	Text string
}

// ClearStatusFlashMsg clears the temporary status line.
type ClearStatusFlashMsg struct{}
