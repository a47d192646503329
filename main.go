// taskchat TUI - A terminal chat front-end for a remote task-execution backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/taskchat-tui/internal/backend"
	"github.com/jeranaias/taskchat-tui/internal/config"
	"github.com/jeranaias/taskchat-tui/internal/storage"
	"github.com/jeranaias/taskchat-tui/internal/ui/chat"
	"github.com/jeranaias/taskchat-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--version", "-v", "version":
			fmt.Printf("taskchat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown argument: %s\n\n", arg)
			printUsage()
			os.Exit(2)
		}
	}

	// The TUI owns the terminal, so log output goes to a file instead.
	cleanup := setupLogging()
	defer cleanup()

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "taskchat requires an interactive terminal")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.SetGlobal(cfg)

	client := backend.NewClient(cfg.Backend.URL).
		WithToken(cfg.Backend.Token).
		WithTimeout(time.Duration(cfg.Backend.TimeoutSecs) * time.Second)

	// History storage is optional: a failure to open the database degrades
	// to an in-memory-only session rather than blocking startup.
	var history chat.HistoryStore
	if cfg.History.Enabled {
		store, err := openHistory(cfg)
		if err != nil {
			log.Printf("history disabled: %v", err)
		} else {
			defer store.Close()
			history = store
		}
	}

	m := chat.New(chat.Options{
		Client:   client,
		Theme:    styles.NewThemeNamed(cfg.UI.Theme),
		History:  history,
		AutoSave: cfg.History.AutoSave,
	})

	// Live-reload config edits while the TUI runs. Backend changes take
	// effect on the next task.
	watcher, err := config.Watch(nil)
	if err != nil {
		log.Printf("config watch unavailable: %v", err)
	} else {
		defer watcher.Close()
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running taskchat: %v\n", err)
		os.Exit(1)
	}
}

// openHistory opens the transcript store at its configured location.
func openHistory(cfg *config.Config) (*storage.History, error) {
	return storage.Open(storage.Options{
		Path:           cfg.History.Path,
		MaxTranscripts: cfg.History.MaxTranscripts,
	})
}

// setupLogging redirects the standard logger to ~/.taskchat/taskchat.log.
// Returns a cleanup function that closes the log file.
func setupLogging() func() {
	dir, err := config.ConfigDir()
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}

	f, err := os.OpenFile(filepath.Join(dir, "taskchat.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}

	log.SetOutput(f)
	log.SetFlags(log.LstdFlags)
	return func() { f.Close() }
}

func printUsage() {
	fmt.Print(`taskchat - terminal chat for a remote task backend

Usage:
  taskchat              Start the TUI
  taskchat --version    Print version information
  taskchat --help       Show this help

Configuration lives at ~/.taskchat/config.toml. Environment overrides:
  TASKCHAT_BACKEND_URL  Backend base URL
  TASKCHAT_TOKEN        Bearer token
  TASKCHAT_THEME        UI theme (dark, light, auto)
  TASKCHAT_AUTOSAVE     Auto-save completed transcripts (true/false)
`)
}
