// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/taskchat-tui/internal/backend"
	"github.com/jeranaias/taskchat-tui/internal/model"
	"github.com/jeranaias/taskchat-tui/internal/ui/components"
	"github.com/jeranaias/taskchat-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady            State = iota // Ready for input
	StateStreaming                     // Task running, event stream open
	StateAwaitingApproval              // Stream paused on an approval request
	StateError                         // Last task failed; input is focused again
)

// acceptsInput returns true when the user can type and submit a new prompt.
func (s State) acceptsInput() bool {
	return s == StateReady || s == StateError
}

// =============================================================================
// HISTORY STORE
// =============================================================================

// HistoryStore persists completed transcripts. In-flight tasks are never
// persisted; Save is only called after a task finishes or on explicit /save.
type HistoryStore interface {
	Save(t *model.Transcript) error
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures a new chat model.
type Options struct {
	Client   *backend.Client
	Theme    *styles.Theme
	History  HistoryStore // optional
	AutoSave bool
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// State
	state State

	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int
	ready  bool // viewport sized at least once

	// Conversation
	transcript *model.Transcript

	// Backend
	client   *backend.Client
	history  HistoryStore
	autoSave bool

	// In-flight task. Events carrying any other task ID are stale and
	// dropped.
	activeTaskID string
	eventCh      <-chan backend.Event
	taskStats    *model.Statistics

	// Streaming optimization
	streamBuf *StreamBuffer
	cancelMgr *cancelManager // Pointer to avoid copying the mutex on Update

	// UI components
	viewport      viewport.Model
	input         textinput.Model
	spin          components.Spinner
	header        *components.Header
	statusBar     *components.StatusBar
	msgList       *components.MessageList
	approvalPanel *components.ApprovalPanel

	// Key bindings
	keyMap KeyMap

	// Transient UI state
	showHelp    bool
	statusFlash string
}

// New creates a new chat model.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe a task..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	header := components.NewHeader(theme)
	statusBar := components.NewStatusBar(theme)
	if opts.Client != nil {
		header.BackendURL = opts.Client.BaseURL()
		statusBar.BackendURL = opts.Client.BaseURL()
	}

	return Model{
		state:         StateReady,
		theme:         theme,
		transcript:    model.NewTranscript(),
		client:        opts.Client,
		history:       opts.History,
		autoSave:      opts.AutoSave,
		streamBuf:     NewStreamBuffer(),
		cancelMgr:     newCancelManager(),
		viewport:      vp,
		input:         ti,
		spin:          components.NewSpinner(theme),
		header:        header,
		statusBar:     statusBar,
		msgList:       components.NewMessageList(theme),
		approvalPanel: components.NewApprovalPanel(theme),
		keyMap:        DefaultKeyMap(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		healthCheckCmd(m.client),
	)
}

// Transcript returns the current transcript. Used by main for shutdown
// handling and by tests.
func (m Model) Transcript() *model.Transcript {
	return m.transcript
}

// State returns the current UI state.
func (m Model) State() State {
	return m.state
}

// =============================================================================
// LAYOUT
// =============================================================================

// setSize recomputes component dimensions after a window resize.
func (m *Model) setSize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	headerHeight := 1
	statusHeight := 1
	inputHeight := 3
	viewportHeight := height - headerHeight - statusHeight - inputHeight
	if viewportHeight < 3 {
		viewportHeight = 3
	}

	m.viewport.Width = width
	m.viewport.Height = viewportHeight
	m.input.Width = width - 6

	m.header.SetWidth(width)
	m.statusBar.SetWidth(width)
	m.msgList.SetWidth(width)
	m.approvalPanel.SetSize(width, viewportHeight)

	m.ready = true
	m.refreshViewport()
}

// refreshViewport re-renders the transcript into the viewport.
func (m *Model) refreshViewport() {
	atBottom := m.viewport.AtBottom()

	m.msgList.SetMessages(m.transcript.History())
	m.viewport.SetContent(m.msgList.View())

	// Follow the stream unless the user scrolled up to read history.
	if atBottom || m.state == StateStreaming {
		m.viewport.GotoBottom()
	}
}

// syncStatusBar mirrors the transcript's task state into the status bar.
func (m *Model) syncStatusBar() {
	m.statusBar.TaskState = m.transcript.TaskState
	m.statusBar.TaskID = m.transcript.TaskID
	m.statusBar.Spinner = m.spin.Frame()
	m.header.ChatTitle = m.transcript.GetTitle()
}

// =============================================================================
// TASK TEARDOWN
// =============================================================================

// finishTask returns the view to an input-accepting state after the stream
// ended for any reason. The final state is StateReady for done/cancel and
// StateError after a failure.
func (m *Model) finishTask(final State) {
	m.cancelTask()
	m.streamBuf.Reset()
	m.spin.Stop()
	m.activeTaskID = ""
	m.eventCh = nil
	m.taskStats = nil
	m.approvalPanel.Hide()
	m.transcript.ReleaseTask()
	m.state = final
	m.input.Focus()
}

// maybeAutoSave persists the transcript after a completed task when
// auto-save is enabled.
func (m *Model) maybeAutoSave() tea.Cmd {
	if !m.autoSave || m.history == nil || m.transcript.IsEmpty() {
		return nil
	}
	return saveTranscriptCmd(m.history, m.transcript)
}

// flashStatus shows a transient status line for a few seconds.
func flashStatusCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return ClearStatusFlashMsg{}
	})
}
