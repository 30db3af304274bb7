// Package store persists touch sessions and events to SQLite, off the
// real-time path: the pipeline never blocks on a write here (spec §6,
// "optional recording for replay/analysis"). It mirrors the teacher's
// internal/db package — database/sql over modernc.org/sqlite, schema
// managed with golang-migrate against an embedded migration set — pared
// down to the two tables this system actually needs.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is a thin wrapper over a SQLite connection holding recorded
// touch sessions and events.
type Store struct {
	db *sql.DB
}

// Open connects to (creating if absent) the SQLite database at path and
// applies any pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrateUp() error {
	sourceDriver, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: load embedded migrations: %w", err)
	}
	dbDriver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("store: sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("store: create migrator: %w", err)
	}
	m.Log = migrateLogger{}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: apply migrations: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) { log.Printf("[store migrate] "+format, v...) }
func (migrateLogger) Verbose() bool                          { return false }

// StartSession records the beginning of a recording session for a
// screen and returns its generated id.
func (s *Store) StartSession(screenID int, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO sessions (id, screen_id, started_at) VALUES (?, ?, ?)`, id, screenID, startedAt)
	if err != nil {
		return "", fmt.Errorf("store: start session: %w", err)
	}
	return id, nil
}

// EndSession marks a session as finished.
func (s *Store) EndSession(sessionID string, endedAt time.Time) error {
	_, err := s.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, endedAt, sessionID)
	if err != nil {
		return fmt.Errorf("store: end session %q: %w", sessionID, err)
	}
	return nil
}

// RecordedEvent is one touch lifecycle event attributed to a session,
// ready for insertion.
type RecordedEvent struct {
	SessionID  string
	TrackID    int64
	Kind       string
	U, V       float64
	VU, VV     float64
	ObservedAt time.Time
}

// RecordEvent inserts one touch event row.
func (s *Store) RecordEvent(ev RecordedEvent) error {
	_, err := s.db.Exec(
		`INSERT INTO touch_events (session_id, track_id, kind, u, v, vu, vv, observed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.SessionID, ev.TrackID, ev.Kind, ev.U, ev.V, ev.VU, ev.VV, ev.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("store: record event: %w", err)
	}
	return nil
}

// EventsForSession returns every event recorded for a session, in
// observation order — the input touchreplay charts from.
func (s *Store) EventsForSession(sessionID string) ([]RecordedEvent, error) {
	rows, err := s.db.Query(
		`SELECT session_id, track_id, kind, u, v, vu, vv, observed_at FROM touch_events WHERE session_id = ? ORDER BY observed_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query events: %w", err)
	}
	defer rows.Close()

	var events []RecordedEvent
	for rows.Next() {
		var ev RecordedEvent
		if err := rows.Scan(&ev.SessionID, &ev.TrackID, &ev.Kind, &ev.U, &ev.V, &ev.VU, &ev.VV, &ev.ObservedAt); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
