// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// MaxTurns is the maximum number of turns to keep in a transcript.
// When exceeded, old turns are pruned to prevent unbounded memory growth.
const MaxTurns = 1000

// =============================================================================
// TASK STATE
// =============================================================================

// TaskState mirrors the backend's task status values.
type TaskState string

const (
	TaskIdle             TaskState = ""
	TaskQueued           TaskState = "queued"
	TaskWorking          TaskState = "working"
	TaskAwaitingApproval TaskState = "awaiting_approval"
	TaskDone             TaskState = "done"
	TaskFailed           TaskState = "failed"
)

// Terminal returns true when the state ends the task's event stream.
func (s TaskState) Terminal() bool {
	return s == TaskDone || s == TaskFailed
}

// DisplayName returns a short human-readable label for the status bar.
func (s TaskState) DisplayName() string {
	switch s {
	case TaskIdle:
		return "idle"
	case TaskQueued:
		return "queued"
	case TaskWorking:
		return "working"
	case TaskAwaitingApproval:
		return "awaiting approval"
	case TaskDone:
		return "done"
	case TaskFailed:
		return "failed"
	default:
		return string(s)
	}
}

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript holds a complete chat exchange with history and metadata.
//
// TaskID is the server-issued identifier of the task currently in flight;
// it is empty between tasks. The transcript is a plain in-memory value, not
// persisted while a task is running.
type Transcript struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Current task
	TaskID    string    `json:"task_id,omitempty"`
	TaskState TaskState `json:"task_state,omitempty"`

	// Turns
	Turns []*Message `json:"turns"`
}

// NewTranscript creates a new transcript with a generated ID.
func NewTranscript() *Transcript {
	return &Transcript{
		ID:        "chat_" + uuid.NewString(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Turns:     make([]*Message, 0),
	}
}

// =============================================================================
// TURN MANAGEMENT
// =============================================================================

// Add appends a turn to the transcript.
func (t *Transcript) Add(msg *Message) {
	t.Turns = append(t.Turns, msg)
	t.UpdatedAt = time.Now()
	t.updateTitle()
	t.pruneOldTurns()
}

// AddUserMessage creates and appends a user turn.
func (t *Transcript) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	t.Add(msg)
	return msg
}

// AddSystemMessage creates and appends a system turn.
func (t *Transcript) AddSystemMessage(content string) *Message {
	msg := NewSystemMessage(content)
	t.Add(msg)
	return msg
}

// Last returns the most recent turn, or nil if empty.
func (t *Transcript) Last() *Message {
	if len(t.Turns) == 0 {
		return nil
	}
	return t.Turns[len(t.Turns)-1]
}

// ByID returns a turn by its ID, or nil.
func (t *Transcript) ByID(id string) *Message {
	for _, msg := range t.Turns {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// History returns the turns for display.
func (t *Transcript) History() []*Message {
	return t.Turns
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.Turns)
}

// IsEmpty returns true if there are no turns.
func (t *Transcript) IsEmpty() bool {
	return len(t.Turns) == 0
}

// Clear removes all turns and forgets the current task.
func (t *Transcript) Clear() {
	t.Turns = make([]*Message, 0)
	t.TaskID = ""
	t.TaskState = TaskIdle
	t.UpdatedAt = time.Now()
}

// =============================================================================
// STREAM SPLICE OPERATIONS
// =============================================================================
// These are the transcript's reducer primitives: the stream folds events
// into the transcript exclusively through them, so ordering stays
// append-only except for in-place growth and approval resolution.

// UpsertStreaming appends partial text to the streaming turn with the given
// backend message ID, creating a new streaming turn if the ID is unknown.
// Returns the turn and whether it was newly created.
func (t *Transcript) UpsertStreaming(messageID string, role Role, text string) (*Message, bool) {
	if msg := t.ByID(messageID); msg != nil {
		msg.AppendPartial(text)
		t.UpdatedAt = time.Now()
		return msg, false
	}

	msg := NewStreamingMessage(messageID, role)
	msg.AppendPartial(text)
	t.Add(msg)
	return msg, true
}

// FinalizeMessage closes the streaming turn with the given backend message
// ID. A non-empty finalText replaces the accumulated partial content. If the
// ID is unknown a complete turn is appended, so a lone final frame still
// lands in the transcript.
func (t *Transcript) FinalizeMessage(messageID string, role Role, finalText string, stats *Statistics) *Message {
	msg := t.ByID(messageID)
	if msg == nil {
		msg = NewStreamingMessage(messageID, role)
		t.Add(msg)
	}
	msg.Finalize(finalText, stats)
	t.UpdatedAt = time.Now()
	return msg
}

// FinalizeOpenStreams closes every still-streaming turn, keeping whatever
// partial content accumulated. Used on cancel and on stream teardown.
func (t *Transcript) FinalizeOpenStreams(suffix string) {
	for _, msg := range t.Turns {
		if msg.IsStreaming {
			msg.AppendPartial(suffix)
			msg.Finalize("", nil)
		}
	}
	t.UpdatedAt = time.Now()
}

// SpliceApproval appends a pending approval turn. Any earlier approval turn
// still pending is resolved as superseded first: the backend only ever waits
// on its most recent request.
func (t *Transcript) SpliceApproval(approvalID, title, action, detail string) *Message {
	for _, msg := range t.Turns {
		if msg.IsPendingApproval() {
			msg.Approval = ApprovalSuperseded
		}
	}

	msg := NewApprovalMessage(approvalID, title, action, detail)
	t.Add(msg)
	return msg
}

// ResolveApproval marks the approval turn with the given approval ID as
// granted or denied, in place. Returns the turn, or nil if no such pending
// approval exists.
func (t *Transcript) ResolveApproval(approvalID string, granted bool) *Message {
	for _, msg := range t.Turns {
		if msg.Role == RoleApproval && msg.ApprovalID == approvalID && msg.Approval == ApprovalPending {
			if granted {
				msg.Approval = ApprovalGranted
			} else {
				msg.Approval = ApprovalDenied
			}
			t.UpdatedAt = time.Now()
			return msg
		}
	}
	return nil
}

// PendingApproval returns the current pending approval turn, or nil.
func (t *Transcript) PendingApproval() *Message {
	for i := len(t.Turns) - 1; i >= 0; i-- {
		if t.Turns[i].IsPendingApproval() {
			return t.Turns[i]
		}
	}
	return nil
}

// AppendError appends the single user-visible error turn for a failed
// stream. Errors surface as one system bubble, never as a modal.
func (t *Transcript) AppendError(text string) *Message {
	return t.AddSystemMessage("Error: " + text)
}

// =============================================================================
// TASK BINDING
// =============================================================================

// BindTask records the server-issued task ID for the task now in flight.
func (t *Transcript) BindTask(taskID string) {
	t.TaskID = taskID
	t.TaskState = TaskQueued
	t.UpdatedAt = time.Now()
}

// ReleaseTask clears the in-flight task binding.
func (t *Transcript) ReleaseTask() {
	t.TaskID = ""
	t.UpdatedAt = time.Now()
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user turn if not set.
func (t *Transcript) updateTitle() {
	if t.Title != "" {
		return
	}
	for _, msg := range t.Turns {
		if msg.Role == RoleUser {
			t.Title = msg.Preview(50)
			return
		}
	}
}

// GetTitle returns the transcript title or a default.
func (t *Transcript) GetTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return "New Chat"
}

// =============================================================================
// PRUNING
// =============================================================================

// pruneOldTurns drops the oldest turns once the transcript exceeds MaxTurns.
// System turns are preserved so error context survives pruning.
func (t *Transcript) pruneOldTurns() {
	if len(t.Turns) <= MaxTurns {
		return
	}

	var system []*Message
	var other []*Message
	for _, msg := range t.Turns {
		if msg.Role == RoleSystem {
			system = append(system, msg)
		} else {
			other = append(other, msg)
		}
	}

	if len(other) > MaxTurns {
		other = other[len(other)-MaxTurns:]
	}

	t.Turns = make([]*Message, 0, len(system)+len(other))
	t.Turns = append(t.Turns, system...)
	t.Turns = append(t.Turns, other...)
}
