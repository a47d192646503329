// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/taskchat-tui/internal/model"
	"github.com/jeranaias/taskchat-tui/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel...", Truncate("hello world", 6))
	assert.Equal(t, "", Truncate("", 10))
}

func TestWordWrap(t *testing.T) {
	wrapped := wordWrap("the quick brown fox jumps over the lazy dog", 15)
	for _, line := range splitLines(wrapped) {
		assert.LessOrEqual(t, maxLineWidth(line), 15)
	}
}

func TestWordWrapLongWord(t *testing.T) {
	// A single word longer than the width must not loop forever.
	wrapped := wordWrap("abcdefghijklmnopqrstuvwxyz", 10)
	assert.NotEmpty(t, wrapped)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}

// =============================================================================
// CODE BLOCKS
// =============================================================================

func TestParseCodeBlocks(t *testing.T) {
	input := "Here is code:\n```go\nfmt.Println(\"hi\")\n```\nAnd after."
	out := ParseCodeBlocks(input, 80)
	assert.Contains(t, out, "Println")
	assert.Contains(t, out, "Here is code:")
	assert.Contains(t, out, "And after.")
}

func TestParseCodeBlocksUnclosedFence(t *testing.T) {
	// Streaming content can end mid-fence; it must still render.
	input := "Running:\n```sh\nls -la"
	out := ParseCodeBlocks(input, 80)
	assert.Contains(t, out, "ls -la")
}

// =============================================================================
// APPROVAL PANEL
// =============================================================================

func pendingApproval() *model.Message {
	tr := model.NewTranscript()
	return tr.SpliceApproval("apr_1", "Run command", "rm -rf build/", "Removes the build directory")
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func decisionFrom(t *testing.T, cmd tea.Cmd) ApprovalDecisionMsg {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(ApprovalDecisionMsg)
	require.True(t, ok, "expected ApprovalDecisionMsg")
	return msg
}

func TestApprovalPanelApproveKey(t *testing.T) {
	panel := NewApprovalPanel(styles.NewTheme())
	panel.Show(pendingApproval())

	cmd, handled := panel.Update(keyPress("y"))
	assert.True(t, handled)

	decision := decisionFrom(t, cmd)
	assert.Equal(t, "apr_1", decision.ApprovalID)
	assert.True(t, decision.Approved)
	assert.False(t, panel.IsVisible())
}

func TestApprovalPanelDenyKey(t *testing.T) {
	panel := NewApprovalPanel(styles.NewTheme())
	panel.Show(pendingApproval())

	cmd, handled := panel.Update(keyPress("n"))
	assert.True(t, handled)

	decision := decisionFrom(t, cmd)
	assert.False(t, decision.Approved)
}

func TestApprovalPanelEscDenies(t *testing.T) {
	panel := NewApprovalPanel(styles.NewTheme())
	panel.Show(pendingApproval())

	cmd, handled := panel.Update(keyPress("esc"))
	assert.True(t, handled)

	decision := decisionFrom(t, cmd)
	assert.False(t, decision.Approved)
}

func TestApprovalPanelButtonCycle(t *testing.T) {
	panel := NewApprovalPanel(styles.NewTheme())
	panel.Show(pendingApproval())

	// Tab moves selection to Deny; enter confirms it.
	_, handled := panel.Update(keyPress("tab"))
	assert.True(t, handled)

	cmd, _ := panel.Update(keyPress("enter"))
	decision := decisionFrom(t, cmd)
	assert.False(t, decision.Approved)
}

func TestApprovalPanelNote(t *testing.T) {
	panel := NewApprovalPanel(styles.NewTheme())
	panel.Show(pendingApproval())

	_, _ = panel.Update(keyPress("e"))
	_, _ = panel.Update(keyPress("o"))
	_, _ = panel.Update(keyPress("k"))
	_, _ = panel.Update(keyPress("enter")) // leave note editing

	cmd, _ := panel.Update(keyPress("y"))
	decision := decisionFrom(t, cmd)
	assert.True(t, decision.Approved)
	assert.Equal(t, "ok", decision.Note)
}

func TestApprovalPanelIgnoredWhenHidden(t *testing.T) {
	panel := NewApprovalPanel(styles.NewTheme())

	cmd, handled := panel.Update(keyPress("y"))
	assert.False(t, handled)
	assert.Nil(t, cmd)
}
