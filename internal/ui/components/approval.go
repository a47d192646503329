// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/taskchat-tui/internal/model"
	"github.com/jeranaias/taskchat-tui/internal/ui/styles"
)

// =============================================================================
// APPROVAL PANEL
// =============================================================================

// ApprovalDecisionMsg is emitted when the user decides on a pending approval.
type ApprovalDecisionMsg struct {
	ApprovalID string
	Approved   bool
	Note       string
}

// Button options
const (
	ButtonApprove = 0
	ButtonDeny    = 1
	ButtonCount   = 2
)

// ApprovalPanel displays a modal dialog for a backend approval request.
// The task is paused on the backend side until a decision is posted back.
type ApprovalPanel struct {
	// The pending approval turn being decided
	approval *model.Message

	// UI state
	visible  bool
	selected int
	note     string
	editing  bool
	width    int
	height   int

	theme *styles.Theme
}

// NewApprovalPanel creates a new approval panel.
func NewApprovalPanel(theme *styles.Theme) *ApprovalPanel {
	return &ApprovalPanel{
		theme:    theme,
		selected: ButtonApprove,
	}
}

// Show displays the panel for a pending approval turn.
func (p *ApprovalPanel) Show(approval *model.Message) {
	p.approval = approval
	p.visible = true
	p.selected = ButtonApprove
	p.note = ""
	p.editing = false
}

// Hide hides the panel.
func (p *ApprovalPanel) Hide() {
	p.visible = false
	p.approval = nil
	p.note = ""
	p.editing = false
}

// IsVisible returns whether the panel is visible.
func (p *ApprovalPanel) IsVisible() bool {
	return p.visible
}

// ApprovalID returns the ID of the approval being decided, or empty.
func (p *ApprovalPanel) ApprovalID() string {
	if p.approval == nil {
		return ""
	}
	return p.approval.ApprovalID
}

// SetSize updates the panel dimensions.
func (p *ApprovalPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// =============================================================================
// BUBBLE TEA METHODS
// =============================================================================

// Update handles key events for the approval panel.
// Returns a command and whether the event was consumed.
func (p *ApprovalPanel) Update(msg tea.Msg) (tea.Cmd, bool) {
	if !p.visible {
		return nil, false
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, false
	}

	if p.editing {
		return p.updateNote(keyMsg), true
	}

	switch keyMsg.String() {
	case "left", "h", "shift+tab":
		p.selected = (p.selected - 1 + ButtonCount) % ButtonCount
		return nil, true

	case "right", "l", "tab":
		p.selected = (p.selected + 1) % ButtonCount
		return nil, true

	case "enter", " ":
		return p.decide(p.selected == ButtonApprove), true

	case "y":
		return p.decide(true), true

	case "n", "esc":
		return p.decide(false), true

	case "e":
		// Attach a note to the decision
		p.editing = true
		return nil, true
	}

	return nil, true
}

// updateNote handles key events while editing the decision note.
func (p *ApprovalPanel) updateNote(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter", "esc":
		p.editing = false
	case "backspace":
		if len(p.note) > 0 {
			runes := []rune(p.note)
			p.note = string(runes[:len(runes)-1])
		}
	default:
		if msg.Type == tea.KeyRunes {
			p.note += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			p.note += " "
		}
	}
	return nil
}

// decide resolves the approval and emits the decision message.
func (p *ApprovalPanel) decide(approved bool) tea.Cmd {
	approvalID := p.ApprovalID()
	note := p.note
	p.Hide()

	return func() tea.Msg {
		return ApprovalDecisionMsg{
			ApprovalID: approvalID,
			Approved:   approved,
			Note:       note,
		}
	}
}

// =============================================================================
// RENDERING
// =============================================================================

// View renders the approval panel centered in the available space.
func (p *ApprovalPanel) View() string {
	if !p.visible || p.approval == nil {
		return ""
	}

	boxWidth := minInt(p.width-8, 72)
	if boxWidth < 40 {
		boxWidth = 40
	}
	innerWidth := boxWidth - 6

	var sections []string

	title := p.approval.ApprovalTitle
	if title == "" {
		title = "Approval required"
	}
	sections = append(sections, p.theme.ApprovalTitle.Render(title))

	if p.approval.ApprovalAction != "" {
		sections = append(sections, "")
		sections = append(sections, p.theme.ApprovalCommand.Render(Truncate(p.approval.ApprovalAction, innerWidth-2)))
	}

	if p.approval.ApprovalDetail != "" {
		sections = append(sections, "")
		sections = append(sections, p.theme.ApprovalDetail.Render(wordWrap(p.approval.ApprovalDetail, innerWidth)))
	}

	sections = append(sections, "")
	sections = append(sections, p.renderButtons())

	if p.editing {
		noteStyle := lipgloss.NewStyle().Foreground(styles.TextPrimary)
		sections = append(sections, "")
		sections = append(sections, p.theme.ApprovalDetail.Render("note: ")+noteStyle.Render(p.note+"_"))
	} else if p.note != "" {
		sections = append(sections, "")
		sections = append(sections, p.theme.ApprovalDetail.Render("note: "+p.note))
	}

	sections = append(sections, "")
	hintStyle := lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
	sections = append(sections, hintStyle.Render("y approve | n deny | e edit note | arrows + enter"))

	box := p.theme.ApprovalBox.
		Width(boxWidth).
		Render(strings.Join(sections, "\n"))

	if p.width > 0 && p.height > 0 {
		return lipgloss.Place(p.width, p.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

// renderButtons renders the Approve / Deny button row.
func (p *ApprovalPanel) renderButtons() string {
	labels := []string{"Approve", "Deny"}
	var buttons []string

	for i, label := range labels {
		if i == p.selected {
			buttons = append(buttons, p.theme.ApprovalButtonActive.Render(label))
		} else {
			buttons = append(buttons, p.theme.ApprovalButton.Render(label))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}
