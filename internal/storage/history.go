// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/taskchat-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound indicates the requested transcript does not exist.
	ErrNotFound = errors.New("transcript not found")

	// ErrInFlight indicates an attempt to save a transcript whose task is
	// still running. Only completed transcripts are persisted.
	ErrInFlight = errors.New("transcript has a task in flight")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	turn_count INTEGER NOT NULL,
	turns      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcripts_updated ON transcripts(updated_at DESC);
`

// =============================================================================
// HISTORY STORE
// =============================================================================

// History is a SQLite-backed store of completed transcripts.
type History struct {
	db      *sql.DB
	maxKeep int
}

// Summary is a transcript listing row without the turns payload.
type Summary struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	TurnCount int
}

// Options configures the history store.
type Options struct {
	// Path is the database file location. Empty uses the default under
	// ~/.taskchat/history.db.
	Path string
	// MaxTranscripts bounds the store; older transcripts are pruned on
	// save. Zero means no bound.
	MaxTranscripts int
}

// DefaultPath returns the default history database location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".taskchat", "history.db"), nil
}

// Open opens (and if needed creates) the history database.
func Open(opts Options) (*History, error) {
	path := opts.Path
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &History{db: db, maxKeep: opts.MaxTranscripts}, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// =============================================================================
// SAVE / LOAD
// =============================================================================

// Save upserts a completed transcript. Saving again after more turns were
// exchanged replaces the stored copy.
func (h *History) Save(t *model.Transcript) error {
	if t.TaskID != "" {
		return ErrInFlight
	}

	turns, err := json.Marshal(t.History())
	if err != nil {
		return fmt.Errorf("failed to encode turns: %w", err)
	}

	_, err = h.db.Exec(`
		INSERT INTO transcripts (id, title, created_at, updated_at, turn_count, turns)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			updated_at = excluded.updated_at,
			turn_count = excluded.turn_count,
			turns      = excluded.turns`,
		t.ID, t.GetTitle(), t.CreatedAt.UnixNano(), t.UpdatedAt.UnixNano(), t.Len(), string(turns))
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	return h.prune()
}

// Load returns a stored transcript by ID.
func (h *History) Load(id string) (*model.Transcript, error) {
	row := h.db.QueryRow(`
		SELECT id, title, created_at, updated_at, turns
		FROM transcripts WHERE id = ?`, id)

	var (
		t                model.Transcript
		created, updated int64
		turnsJSON        string
	)
	if err := row.Scan(&t.ID, &t.Title, &created, &updated, &turnsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	t.CreatedAt = time.Unix(0, created)
	t.UpdatedAt = time.Unix(0, updated)
	if err := json.Unmarshal([]byte(turnsJSON), &t.Turns); err != nil {
		return nil, fmt.Errorf("failed to decode turns: %w", err)
	}
	return &t, nil
}

// List returns transcript summaries, most recently updated first.
func (h *History) List(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := h.db.Query(`
		SELECT id, title, created_at, updated_at, turn_count
		FROM transcripts
		ORDER BY updated_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s                Summary
			created, updated int64
		)
		if err := rows.Scan(&s.ID, &s.Title, &created, &updated, &s.TurnCount); err != nil {
			return nil, fmt.Errorf("failed to scan transcript row: %w", err)
		}
		s.CreatedAt = time.Unix(0, created)
		s.UpdatedAt = time.Unix(0, updated)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a stored transcript.
func (h *History) Delete(id string) error {
	res, err := h.db.Exec(`DELETE FROM transcripts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored transcripts.
func (h *History) Count() (int, error) {
	var n int
	err := h.db.QueryRow(`SELECT COUNT(*) FROM transcripts`).Scan(&n)
	return n, err
}

// prune drops the oldest transcripts beyond the configured bound.
func (h *History) prune() error {
	if h.maxKeep <= 0 {
		return nil
	}

	_, err := h.db.Exec(`
		DELETE FROM transcripts WHERE id NOT IN (
			SELECT id FROM transcripts ORDER BY updated_at DESC LIMIT ?
		)`, h.maxKeep)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return nil
}
