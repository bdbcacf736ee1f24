// Package store persists agent state across runs: exploration tiles,
// compacted turn history, goals, progress milestones, and session
// metadata. Backed by SQLite; turn snapshots are deliberately not
// stored, only the light action/reasoning/outcome fields.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/MJE43/red-agent-go/internal/explore"
	"github.com/MJE43/red-agent-go/internal/goals"
	"github.com/MJE43/red-agent-go/internal/history"
	"github.com/MJE43/red-agent-go/internal/progress"
)

// Store is the SQLite-backed persistence layer. Only the loop driver
// writes to it.
type Store struct {
	db *sql.DB
}

// Session describes one agent run.
type Session struct {
	ID        uuid.UUID `json:"id"`
	StartedAt time.Time `json:"started_at"`
	LastSeen  time.Time `json:"last_seen_at"`
	Turns     int       `json:"turns"`
}

// New opens or creates the database at path and runs migrations. Use
// ":memory:" for tests.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			last_seen_at TIMESTAMP NOT NULL,
			turns INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS tiles (
			zone INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			PRIMARY KEY (zone, x, y)
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			number INTEGER PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			action TEXT,
			reasoning TEXT,
			outcome TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS digests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			first_turn INTEGER NOT NULL,
			last_turn INTEGER NOT NULL,
			text TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS goals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tier TEXT NOT NULL,
			description TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			completed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS progress (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			state TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tiles_zone ON tiles(zone)`,
		`CREATE INDEX IF NOT EXISTS idx_digests_first ON digests(first_turn)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("store: migration failed: %w", err)
		}
	}
	return nil
}

// --------- Sessions ---------

// CreateSession records the start of a run.
func (s *Store) CreateSession(sess Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, started_at, last_seen_at, turns) VALUES (?, ?, ?, ?)`,
		sess.ID.String(), sess.StartedAt, sess.StartedAt, sess.Turns,
	)
	if err != nil {
		return fmt.Errorf("store: create session: %w", err)
	}
	return nil
}

// TouchSession updates a session's turn counter and last-seen time.
func (s *Store) TouchSession(id uuid.UUID, turns int) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET turns = ?, last_seen_at = ? WHERE id = ?`,
		turns, time.Now().UTC(), id.String(),
	)
	if err != nil {
		return fmt.Errorf("store: touch session: %w", err)
	}
	return nil
}

// Sessions lists all recorded sessions, newest first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, last_seen_at, turns FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var id string
		if err := rows.Scan(&id, &sess.StartedAt, &sess.LastSeen, &sess.Turns); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		sess.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("store: session id %q: %w", id, err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// --------- Exploration tiles ---------

// ReplaceTiles rewrites one zone's visited tiles.
func (s *Store) ReplaceTiles(zone int, tiles []explore.Tile) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tiles WHERE zone = ?`, zone); err != nil {
		return fmt.Errorf("store: clear zone %d: %w", zone, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO tiles (zone, x, y) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare tile insert: %w", err)
	}
	defer stmt.Close()

	for _, tile := range tiles {
		if _, err := stmt.Exec(zone, tile.X, tile.Y); err != nil {
			return fmt.Errorf("store: insert tile (%d,%d): %w", tile.X, tile.Y, err)
		}
	}
	return tx.Commit()
}

// LoadTiles returns every zone's persisted tiles.
func (s *Store) LoadTiles() (map[int][]explore.Tile, error) {
	rows, err := s.db.Query(`SELECT zone, x, y FROM tiles ORDER BY zone, x, y`)
	if err != nil {
		return nil, fmt.Errorf("store: query tiles: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]explore.Tile)
	for rows.Next() {
		var zone int
		var tile explore.Tile
		if err := rows.Scan(&zone, &tile.X, &tile.Y); err != nil {
			return nil, fmt.Errorf("store: scan tile: %w", err)
		}
		out[zone] = append(out[zone], tile)
	}
	return out, rows.Err()
}

// --------- Turn history ---------

// ReplaceHistory rewrites the persisted digests and detailed turns.
// Turn snapshots are not stored.
func (s *Store) ReplaceHistory(digests []history.Digest, turns []history.Turn) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM digests`); err != nil {
		return fmt.Errorf("store: clear digests: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM turns`); err != nil {
		return fmt.Errorf("store: clear turns: %w", err)
	}

	for _, d := range digests {
		if _, err := tx.Exec(
			`INSERT INTO digests (first_turn, last_turn, text) VALUES (?, ?, ?)`,
			d.FirstTurn, d.LastTurn, d.Text,
		); err != nil {
			return fmt.Errorf("store: insert digest: %w", err)
		}
	}

	stmt, err := tx.Prepare(
		`INSERT INTO turns (number, timestamp, action, reasoning, outcome) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare turn insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range turns {
		if _, err := stmt.Exec(t.Number, t.Timestamp, t.Action, t.Reasoning, t.Outcome); err != nil {
			return fmt.Errorf("store: insert turn %d: %w", t.Number, err)
		}
	}
	return tx.Commit()
}

// LoadHistory returns the persisted digests and detailed turns, oldest
// first. Restored turns carry no snapshot.
func (s *Store) LoadHistory() ([]history.Digest, []history.Turn, error) {
	rows, err := s.db.Query(`SELECT first_turn, last_turn, text FROM digests ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("store: query digests: %w", err)
	}
	defer rows.Close()

	var digests []history.Digest
	for rows.Next() {
		var d history.Digest
		if err := rows.Scan(&d.FirstTurn, &d.LastTurn, &d.Text); err != nil {
			return nil, nil, fmt.Errorf("store: scan digest: %w", err)
		}
		digests = append(digests, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	turnRows, err := s.db.Query(
		`SELECT number, timestamp, action, reasoning, outcome FROM turns ORDER BY number`)
	if err != nil {
		return nil, nil, fmt.Errorf("store: query turns: %w", err)
	}
	defer turnRows.Close()

	var turns []history.Turn
	for turnRows.Next() {
		var t history.Turn
		var action, reasoning, outcome sql.NullString
		if err := turnRows.Scan(&t.Number, &t.Timestamp, &action, &reasoning, &outcome); err != nil {
			return nil, nil, fmt.Errorf("store: scan turn: %w", err)
		}
		t.Action = action.String
		t.Reasoning = reasoning.String
		t.Outcome = outcome.String
		turns = append(turns, t)
	}
	return digests, turns, turnRows.Err()
}

// --------- Goals ---------

// ReplaceGoals rewrites the persisted goal ledger.
func (s *Store) ReplaceGoals(list []goals.Goal) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM goals`); err != nil {
		return fmt.Errorf("store: clear goals: %w", err)
	}

	for _, g := range list {
		completed := 0
		if g.Completed {
			completed = 1
		}
		var completedAt any
		if g.CompletedAt != nil {
			completedAt = *g.CompletedAt
		}
		if _, err := tx.Exec(
			`INSERT INTO goals (tier, description, created_at, completed, completed_at) VALUES (?, ?, ?, ?, ?)`,
			g.Tier, g.Description, g.CreatedAt, completed, completedAt,
		); err != nil {
			return fmt.Errorf("store: insert goal: %w", err)
		}
	}
	return tx.Commit()
}

// LoadGoals returns the persisted goal ledger in insertion order.
func (s *Store) LoadGoals() ([]goals.Goal, error) {
	rows, err := s.db.Query(
		`SELECT tier, description, created_at, completed, completed_at FROM goals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: query goals: %w", err)
	}
	defer rows.Close()

	var out []goals.Goal
	for rows.Next() {
		var g goals.Goal
		var completed int
		var completedAt sql.NullTime
		if err := rows.Scan(&g.Tier, &g.Description, &g.CreatedAt, &completed, &completedAt); err != nil {
			return nil, fmt.Errorf("store: scan goal: %w", err)
		}
		g.Completed = completed == 1
		if completedAt.Valid {
			t := completedAt.Time
			g.CompletedAt = &t
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// --------- Progress ---------

// SaveProgress upserts the single progress-state row.
func (s *Store) SaveProgress(state progress.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: encode progress: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO progress (id, state) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state`,
		string(raw),
	)
	if err != nil {
		return fmt.Errorf("store: save progress: %w", err)
	}
	return nil
}

// LoadProgress returns the persisted progress state. A missing row
// yields the zero state and ok=false.
func (s *Store) LoadProgress() (progress.State, bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT state FROM progress WHERE id = 1`).Scan(&raw)
	if err == sql.ErrNoRows {
		return progress.State{}, false, nil
	}
	if err != nil {
		return progress.State{}, false, fmt.Errorf("store: load progress: %w", err)
	}
	var state progress.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return progress.State{}, false, fmt.Errorf("store: decode progress: %w", err)
	}
	return state, true, nil
}
