// Package store provides SQLite-backed notification history.
//
// The history is an audit trail only: the daemon never reads it back to
// rebuild its cursor or pool state, so a restart still starts from scratch.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nas-notifier/nas-notifier/internal/event"
)

// tsLayout is fixed width so timestamps compare correctly as TEXT.
// RFC3339Nano drops trailing zeros, which breaks lexical order.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps an SQLite connection for event history.
type DB struct {
	db *sql.DB
}

// Open opens or creates an SQLite database at the given path.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single writer connection to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Insert stores a new event in the database.
func (d *DB) Insert(ev *event.Event) error {
	_, err := d.db.Exec(`
		INSERT INTO events (id, host, timestamp, kind, summary, ip, line, source, pool, health, notified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID,
		ev.Host,
		ev.Timestamp.UTC().Format(tsLayout),
		string(ev.Kind),
		ev.Summary,
		ev.IP,
		ev.Line,
		ev.Source,
		ev.Pool,
		ev.Health,
		false,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// MarkNotified marks an event as delivered.
func (d *DB) MarkNotified(id string) error {
	_, err := d.db.Exec(`UPDATE events SET notified = TRUE WHERE id = ?`, id)
	return err
}

// QueryFilter controls which events are returned by Query.
type QueryFilter struct {
	Since time.Time
	Until time.Time
	Kind  string
	Limit int
}

// Query returns events matching the filter, ordered by timestamp descending.
func (d *DB) Query(f QueryFilter) ([]*event.Event, error) {
	query := `SELECT id, host, timestamp, kind, summary, ip, line, source, pool, health
		FROM events WHERE 1=1`
	var args []interface{}

	if !f.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, f.Since.UTC().Format(tsLayout))
	}
	if !f.Until.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, f.Until.UTC().Format(tsLayout))
	}
	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, f.Kind)
	}

	query += " ORDER BY timestamp DESC"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Count returns the total number of stored events.
func (d *DB) Count() (int64, error) {
	var n int64
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return n, nil
}

// Purge deletes events older than the given retention duration.
func (d *DB) Purge(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(tsLayout)
	result, err := d.db.Exec(`DELETE FROM events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging old events: %w", err)
	}
	return result.RowsAffected()
}

func scanEvent(rows *sql.Rows) (*event.Event, error) {
	var ev event.Event
	var tsStr string
	var ip, line, source, pool, health sql.NullString

	err := rows.Scan(
		&ev.ID,
		&ev.Host,
		&tsStr,
		&ev.Kind,
		&ev.Summary,
		&ip,
		&line,
		&source,
		&pool,
		&health,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning event row: %w", err)
	}

	ev.Timestamp, _ = time.Parse(time.RFC3339Nano, tsStr)
	ev.IP = ip.String
	ev.Line = line.String
	ev.Source = source.String
	ev.Pool = pool.String
	ev.Health = health.String

	return &ev, nil
}

func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id        TEXT PRIMARY KEY,
			host      TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			kind      TEXT NOT NULL,
			summary   TEXT NOT NULL,
			ip        TEXT,
			line      TEXT,
			source    TEXT,
			pool      TEXT,
			health    TEXT,
			notified  BOOLEAN DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind, timestamp)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Debug("database schema up to date")
	return nil
}
