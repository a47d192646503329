// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines keyboard bindings for the chat interface, along with
// context-aware help text generation.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	Submit   key.Binding
	Cancel   key.Binding
	Help     key.Binding
	Quit     key.Binding
	Clear    key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp/C-u", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn/C-d", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("Home", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("End", "go to bottom"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel task"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+h"),
			key.WithHelp("C-h", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "ctrl+c"),
			key.WithHelp("C-q", "quit"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear transcript"),
		),
	}
}

// ShortHelp returns the most commonly used shortcuts.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel, k.Help, k.Quit}
}

// FullHelp returns all key bindings grouped for the help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Home, k.End},
		{k.Submit, k.Cancel, k.Clear},
		{k.Help, k.Quit},
	}
}

// =============================================================================
// HELP TEXT DATA
// =============================================================================

// HelpContext represents the UI context for filtering help items.
type HelpContext string

const (
	// ContextReady is the default state, waiting for input
	ContextReady HelpContext = "ready"
	// ContextStreaming is when a task's event stream is open
	ContextStreaming HelpContext = "streaming"
	// ContextApproval is when an approval decision is pending
	ContextApproval HelpContext = "approval"
)

// HelpItem is a single help entry with key, description, and context.
type HelpItem struct {
	Key      string
	Desc     string
	Contexts []HelpContext
}

// GetHelpItems returns all help items for the help overlay.
func GetHelpItems() []HelpItem {
	all := []HelpContext{ContextReady, ContextStreaming, ContextApproval}
	readyOnly := []HelpContext{ContextReady}
	streamingOnly := []HelpContext{ContextStreaming}
	approvalOnly := []HelpContext{ContextApproval}
	notApproval := []HelpContext{ContextReady, ContextStreaming}

	return []HelpItem{
		{"up/down", "Scroll transcript", notApproval},
		{"PgUp/PgDn", "Page up / down", notApproval},
		{"Home/End", "Jump to top / bottom", notApproval},

		{"Enter", "Send message", readyOnly},
		{"Esc", "Cancel running task", streamingOnly},
		{"C-l", "Clear transcript", readyOnly},

		{"y", "Approve request", approvalOnly},
		{"n", "Deny request", approvalOnly},
		{"e", "Edit decision note", approvalOnly},

		{"/help", "Show slash commands", readyOnly},
		{"C-h", "Toggle help", all},
		{"C-q", "Quit", all},
	}
}

// GetHelpItemsForContext returns help items filtered for the given context.
func GetHelpItemsForContext(ctx HelpContext) []HelpItem {
	var filtered []HelpItem
	for _, item := range GetHelpItems() {
		for _, itemCtx := range item.Contexts {
			if itemCtx == ctx {
				filtered = append(filtered, item)
				break
			}
		}
	}
	return filtered
}
