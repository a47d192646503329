// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/taskchat-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleApproval  Role = "approval"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Backend"
	case RoleSystem:
		return "System"
	case RoleApproval:
		return "Approval"
	default:
		return string(r)
	}
}

// =============================================================================
// APPROVAL STATE
// =============================================================================

// ApprovalState tracks the lifecycle of a request-approval turn.
type ApprovalState string

const (
	ApprovalPending    ApprovalState = "pending"
	ApprovalGranted    ApprovalState = "granted"
	ApprovalDenied     ApprovalState = "denied"
	ApprovalSuperseded ApprovalState = "superseded"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in a transcript.
//
// For streaming assistant turns the ID is the backend's message_id, so the
// event reducer can address the turn by wire identity. Locally created turns
// (user input, system notes) get a client-generated UUID.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`

	// Approval fields (only set for RoleApproval turns)
	ApprovalID     string        `json:"approval_id,omitempty"`
	ApprovalTitle  string        `json:"approval_title,omitempty"`
	ApprovalAction string        `json:"approval_action,omitempty"`
	ApprovalDetail string        `json:"approval_detail,omitempty"`
	Approval       ApprovalState `json:"approval_state,omitempty"`

	// Timing metrics (for assistant turns)
	TTFT          time.Duration `json:"ttft_ns,omitempty"`
	TotalDuration time.Duration `json:"total_duration_ns,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewStreamingMessage creates an assistant message that will grow from
// partial stream frames. The ID is the backend's message_id.
func NewStreamingMessage(messageID string, role Role) *Message {
	if role == "" {
		role = RoleAssistant
	}
	return &Message{
		ID:          messageID,
		Role:        role,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// NewApprovalMessage creates a pending approval turn from an approval
// request event.
func NewApprovalMessage(approvalID, title, action, detail string) *Message {
	msg := NewMessage(RoleApproval, title)
	msg.ApprovalID = approvalID
	msg.ApprovalTitle = title
	msg.ApprovalAction = action
	msg.ApprovalDetail = detail
	msg.Approval = ApprovalPending
	return msg
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendPartial appends partial-frame text to a streaming message.
func (m *Message) AppendPartial(text string) {
	if m.IsStreaming {
		m.streamContent.WriteString(text)
	}
}

// Finalize completes a streaming message.
//
// A non-empty finalText is authoritative: the backend's final frame carries
// the full message text and replaces whatever partial content accumulated.
// An empty finalText keeps the accumulated content (stream ended without a
// final frame, e.g. cancel).
func (m *Message) Finalize(finalText string, stats *Statistics) {
	if !m.IsStreaming {
		return
	}

	if finalText != "" {
		m.Content = finalText
	} else {
		m.Content = m.streamContent.String()
	}
	m.streamContent.Reset()
	m.IsStreaming = false

	if stats != nil {
		m.TTFT = stats.TTFT
		m.TotalDuration = stats.TotalDuration
	}
}

// GetDisplayContent returns the content to display (streaming or final).
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := strings.ReplaceAll(m.GetDisplayContent(), "\n", " ")
	return util.TruncateRunes(content, maxLen)
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// IsPendingApproval returns true for an approval turn still awaiting a
// decision.
func (m *Message) IsPendingApproval() bool {
	return m.Role == RoleApproval && m.Approval == ApprovalPending
}

// =============================================================================
// STATISTICS TYPE
// =============================================================================

// Statistics holds timing information for one streamed response.
type Statistics struct {
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	TTFT          time.Duration
	TotalDuration time.Duration
}

// NewStatistics creates a new Statistics with the start time set.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime: time.Now(),
	}
}

// RecordFirstToken records when the first partial frame was received.
func (s *Statistics) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize computes the final statistics.
func (s *Statistics) Finalize() {
	s.EndTime = time.Now()
	s.TotalDuration = s.EndTime.Sub(s.StartTime)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique local message ID.
func generateID() string {
	return "msg_" + uuid.NewString()
}
