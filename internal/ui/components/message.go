// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/taskchat-tui/internal/model"
	"github.com/jeranaias/taskchat-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE BUBBLE COMPONENT
// =============================================================================

// MessageBubble renders one transcript turn as a styled bubble.
type MessageBubble struct {
	Message       *model.Message
	Width         int
	ShowTimestamp bool
	ShowStats     bool
	Streaming     bool
	theme         *styles.Theme
}

// NewMessageBubble creates a new MessageBubble.
func NewMessageBubble(msg *model.Message, theme *styles.Theme) *MessageBubble {
	if msg == nil {
		return &MessageBubble{
			Message: &model.Message{Role: model.RoleSystem, Content: ""},
			Width:   80,
			theme:   theme,
		}
	}
	return &MessageBubble{
		Message:       msg,
		Width:         80,
		ShowTimestamp: true,
		ShowStats:     true,
		Streaming:     msg.IsStreaming,
		theme:         theme,
	}
}

// SetWidth sets the bubble width.
func (b *MessageBubble) SetWidth(width int) {
	b.Width = width
}

// View renders the message bubble.
func (b *MessageBubble) View() string {
	switch b.Message.Role {
	case model.RoleUser:
		return b.renderUserBubble()
	case model.RoleAssistant:
		return b.renderAssistantBubble()
	case model.RoleSystem:
		return b.renderSystemBubble()
	case model.RoleApproval:
		return b.renderApprovalBubble()
	default:
		return b.renderGenericBubble()
	}
}

// ==========================================================================
// USER BUBBLE - Blue tones, right-aligned feel
// ==========================================================================

func (b *MessageBubble) renderUserBubble() string {
	content := b.Message.GetDisplayContent()
	if content == "" {
		content = "..."
	}

	maxContentWidth := b.Width - 12
	if maxContentWidth < 20 {
		maxContentWidth = 20
	}
	wrappedContent := wordWrap(content, maxContentWidth)
	contentWidth := minInt(maxLineWidth(wrappedContent)+4, b.Width-8)

	bubbleStyle := lipgloss.NewStyle().
		Foreground(styles.UserBubbleFg).
		Background(styles.UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.UserBubbleBorder).
		Padding(0, 2).
		Width(contentWidth)

	bubble := bubbleStyle.Render(wrappedContent)

	roleStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)
	header := roleStyle.Render("you")
	if ts := b.renderTimestamp(); ts != "" {
		header += " " + ts
	}

	// Right-align the bubble with a left margin
	leftMargin := b.Width - contentWidth - 4
	if leftMargin < 0 {
		leftMargin = 0
	}
	marginStyle := lipgloss.NewStyle().MarginLeft(leftMargin)

	return lipgloss.JoinVertical(
		lipgloss.Right,
		marginStyle.Render(header),
		marginStyle.Render(bubble),
	)
}

// ==========================================================================
// ASSISTANT BUBBLE - Purple/violet tones, left-aligned
// ==========================================================================

func (b *MessageBubble) renderAssistantBubble() string {
	var content string
	maxContentWidth := b.Width - 12
	if maxContentWidth < 20 {
		maxContentWidth = 20
	}

	if b.Streaming {
		// Streaming: plain text with highlighted code fences, plus cursor.
		// Full markdown re-rendering per frame would flicker badly.
		content = ParseCodeBlocks(b.Message.GetDisplayContent(), maxContentWidth)
		content += b.renderStreamingCursor()
	} else {
		content = strings.TrimRight(RenderMarkdown(b.Message.GetDisplayContent(), maxContentWidth), "\n")
	}

	if content == "" {
		content = "..."
	}

	contentWidth := minInt(maxLineWidth(content)+4, b.Width-8)

	bubbleStyle := lipgloss.NewStyle().
		Foreground(styles.AssistantBubbleFg).
		Background(styles.AssistantBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.AssistantBubbleBorder).
		Padding(0, 2).
		Width(contentWidth).
		MarginRight(4)

	bubble := bubbleStyle.Render(content)

	roleStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)
	header := roleStyle.Render("backend")
	if ts := b.renderTimestamp(); ts != "" {
		header += " " + ts
	}

	result := lipgloss.JoinVertical(lipgloss.Left, header, bubble)

	if b.ShowStats && !b.Streaming && b.Message.TotalDuration > 0 {
		result = lipgloss.JoinVertical(lipgloss.Left, result, b.renderStats())
	}

	return result
}

// ==========================================================================
// SYSTEM BUBBLE - Amber/yellow tones, centered
// ==========================================================================

func (b *MessageBubble) renderSystemBubble() string {
	content := b.Message.GetDisplayContent()
	if content == "" {
		content = "System message"
	}

	maxContentWidth := b.Width - 20
	if maxContentWidth < 30 {
		maxContentWidth = 30
	}
	wrappedContent := wordWrap(content, maxContentWidth)
	contentWidth := minInt(maxLineWidth(wrappedContent)+4, b.Width-16)

	// Error notices get the rose treatment, other system notes stay amber.
	isError := strings.HasPrefix(content, "Error:")

	bubbleStyle := lipgloss.NewStyle().
		Foreground(styles.SystemBubbleFg).
		Background(styles.SystemBubbleBg).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(styles.SystemBubbleBorder).
		Padding(0, 2).
		Width(contentWidth).
		Align(lipgloss.Center)

	if isError {
		bubbleStyle = bubbleStyle.
			Foreground(styles.ApprovalDeniedFg).
			Background(styles.ApprovalDeniedBg).
			BorderForeground(styles.Rose)
	}

	bubble := bubbleStyle.Render(wrappedContent)

	centerStyle := lipgloss.NewStyle().
		Width(b.Width).
		Align(lipgloss.Center)

	labelStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)
	label := "system"
	if isError {
		label = "error"
	}
	header := labelStyle.Render(label)
	if ts := b.renderTimestamp(); ts != "" {
		header += " " + ts
	}

	return lipgloss.JoinVertical(
		lipgloss.Center,
		centerStyle.Render(header),
		centerStyle.Render(bubble),
	)
}

// ==========================================================================
// APPROVAL BUBBLE - Amber pending, Emerald granted, Rose denied
// ==========================================================================

func (b *MessageBubble) renderApprovalBubble() string {
	maxContentWidth := b.Width - 14
	if maxContentWidth < 30 {
		maxContentWidth = 30
	}

	var fg, bg lipgloss.AdaptiveColor
	var border lipgloss.AdaptiveColor
	var badge string

	switch b.Message.Approval {
	case model.ApprovalGranted:
		fg, bg, border = styles.ApprovalGrantedFg, styles.ApprovalGrantedBg, styles.Emerald
		badge = styles.StatusIndicators.Success + " approved"
	case model.ApprovalDenied:
		fg, bg, border = styles.ApprovalDeniedFg, styles.ApprovalDeniedBg, styles.Rose
		badge = styles.StatusIndicators.Error + " denied"
	case model.ApprovalSuperseded:
		fg, bg, border = styles.ApprovalPendingFg, styles.ApprovalPendingBg, styles.OverlayDim
		badge = "superseded"
	default:
		fg, bg, border = styles.ApprovalPendingFg, styles.ApprovalPendingBg, styles.Amber
		badge = styles.StatusIndicators.Warning + " awaiting decision"
	}

	titleStyle := lipgloss.NewStyle().Foreground(fg).Bold(true)
	commandStyle := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextPrimary).
		Padding(0, 1)
	detailStyle := lipgloss.NewStyle().Foreground(styles.TextSecondary)
	badgeStyle := lipgloss.NewStyle().Foreground(fg).Italic(true)

	var parts []string
	parts = append(parts, titleStyle.Render(b.Message.ApprovalTitle))
	if b.Message.ApprovalAction != "" {
		parts = append(parts, commandStyle.Render(Truncate(b.Message.ApprovalAction, maxContentWidth-2)))
	}
	if b.Message.ApprovalDetail != "" {
		parts = append(parts, detailStyle.Render(wordWrap(b.Message.ApprovalDetail, maxContentWidth)))
	}
	parts = append(parts, badgeStyle.Render(badge))

	inner := strings.Join(parts, "\n")
	contentWidth := minInt(maxLineWidth(inner)+4, b.Width-8)

	bubble := lipgloss.NewStyle().
		Foreground(fg).
		Background(bg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 2).
		Width(contentWidth).
		Render(inner)

	labelStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)
	header := labelStyle.Render("approval")
	if ts := b.renderTimestamp(); ts != "" {
		header += " " + ts
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, bubble)
}

// ==========================================================================
// GENERIC BUBBLE - Fallback for unknown roles
// ==========================================================================

func (b *MessageBubble) renderGenericBubble() string {
	content := b.Message.GetDisplayContent()
	if content == "" {
		content = "..."
	}

	maxContentWidth := b.Width - 10
	if maxContentWidth < 20 {
		maxContentWidth = 20
	}
	wrappedContent := wordWrap(content, maxContentWidth)

	return lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(0, 2).
		Render(wrappedContent)
}

// ==========================================================================
// HELPER METHODS
// ==========================================================================

// renderTimestamp renders a dimmed timestamp.
func (b *MessageBubble) renderTimestamp() string {
	if !b.ShowTimestamp {
		return ""
	}
	ts := b.Message.Timestamp
	if ts.IsZero() {
		return ""
	}

	timestampStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)

	now := time.Now()
	var formatted string
	if ts.Year() == now.Year() && ts.YearDay() == now.YearDay() {
		formatted = ts.Format("3:04 PM")
	} else {
		formatted = ts.Format("Jan 2, 3:04 PM")
	}

	return timestampStyle.Render(formatted)
}

// renderStats renders the response timing line.
func (b *MessageBubble) renderStats() string {
	statsStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		PaddingLeft(2)

	var parts []string
	if b.Message.TTFT > 0 {
		parts = append(parts, "first token "+b.Message.TTFT.Round(time.Millisecond).String())
	}
	parts = append(parts, "total "+b.Message.TotalDuration.Round(time.Millisecond).String())

	return statsStyle.Render(strings.Join(parts, " | "))
}

// renderStreamingCursor renders the streaming cursor.
func (b *MessageBubble) renderStreamingCursor() string {
	return lipgloss.NewStyle().
		Foreground(styles.Purple).
		Blink(true).
		Render("_")
}

// =============================================================================
// MESSAGE LIST COMPONENT
// =============================================================================

// MessageList renders the full transcript as a vertical stack of bubbles.
type MessageList struct {
	Messages       []*model.Message
	Width          int
	ShowTimestamps bool
	ShowStats      bool
	theme          *styles.Theme
}

// NewMessageList creates a new MessageList.
func NewMessageList(theme *styles.Theme) *MessageList {
	return &MessageList{
		Messages:       []*model.Message{},
		Width:          80,
		ShowTimestamps: true,
		ShowStats:      true,
		theme:          theme,
	}
}

// SetMessages sets the messages to display.
func (ml *MessageList) SetMessages(messages []*model.Message) {
	ml.Messages = messages
}

// SetWidth sets the list width.
func (ml *MessageList) SetWidth(width int) {
	ml.Width = width
}

// View renders all messages.
func (ml *MessageList) View() string {
	if len(ml.Messages) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true).
			Width(ml.Width).
			Align(lipgloss.Center).
			Padding(2, 0)

		return emptyStyle.Render("No messages yet. Describe a task to get started.")
	}

	var bubbles []string
	for _, msg := range ml.Messages {
		bubble := NewMessageBubble(msg, ml.theme)
		bubble.SetWidth(ml.Width)
		bubble.ShowTimestamp = ml.ShowTimestamps
		bubble.ShowStats = ml.ShowStats
		bubbles = append(bubbles, bubble.View())
	}

	return strings.Join(bubbles, "\n")
}
