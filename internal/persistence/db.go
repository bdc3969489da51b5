// Package persistence provides SQLite-based game storage: the current save
// plus an append-only history of settled days and events.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/poopster/internal/daycycle"
	"github.com/talgya/poopster/internal/engine"
)

// SaveKey is the fixed key the current game is stored under.
const SaveKey = "poopster_game_state"

// DB wraps a SQLite connection for game persistence.
type DB struct {
	conn *sqlx.DB
}

var _ engine.Store = (*DB)(nil)

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		key TEXT PRIMARY KEY,
		blob BLOB NOT NULL,
		checksum TEXT NOT NULL,
		day INTEGER NOT NULL,
		saved_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS day_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day INTEGER NOT NULL,
		weather TEXT NOT NULL,
		revenue REAL NOT NULL,
		expenses REAL NOT NULL,
		profit REAL NOT NULL,
		serviced INTEGER NOT NULL,
		missed INTEGER NOT NULL,
		churned INTEGER NOT NULL,
		leads INTEGER NOT NULL,
		detail_json TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_day ON events(day);
	CREATE INDEX IF NOT EXISTS idx_day_results_day ON day_results(day);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveGame replaces the stored game.
func (db *DB) SaveGame(s engine.Saved) error {
	blob, sum, err := encodeSave(s)
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(
		"INSERT OR REPLACE INTO saves (key, blob, checksum, day, saved_at) VALUES (?, ?, ?, ?, ?)",
		SaveKey, blob, sum, s.Day, s.SavedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	slog.Debug("game saved", "day", s.Day, "bytes", len(blob))
	return nil
}

// LoadGame returns the stored game, or nil when there is none. A damaged
// save is reported with ErrCorrupt.
func (db *DB) LoadGame() (*engine.Saved, error) {
	var row struct {
		Blob     []byte `db:"blob"`
		Checksum string `db:"checksum"`
	}
	err := db.conn.Get(&row, "SELECT blob, checksum FROM saves WHERE key = ?", SaveKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read save: %w", err)
	}

	s, err := decodeSave(row.Blob, row.Checksum)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RecordDay appends a settled day to the history.
func (db *DB) RecordDay(r *daycycle.Result) error {
	detail, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal day %d: %w", r.Day, err)
	}

	_, err = db.conn.Exec(`INSERT INTO day_results
		(day, weather, revenue, expenses, profit, serviced, missed, churned, leads, detail_json, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Day, string(r.Weather), r.Revenue, r.Expenses, r.Profit,
		r.Serviced, r.Missed, len(r.Churned), len(r.NewLeads),
		string(detail), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert day %d: %w", r.Day, err)
	}
	return nil
}

// RecordEvents appends events to the database.
func (db *DB) RecordEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (day, description, category) VALUES (?, ?, ?)",
			e.Day, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT day, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// DayRow is one settled day in the history table.
type DayRow struct {
	Day      int     `db:"day" json:"day"`
	Weather  string  `db:"weather" json:"weather"`
	Revenue  float64 `db:"revenue" json:"revenue"`
	Expenses float64 `db:"expenses" json:"expenses"`
	Profit   float64 `db:"profit" json:"profit"`
	Serviced int     `db:"serviced" json:"houses_serviced"`
	Missed   int     `db:"missed" json:"houses_missed"`
	Churned  int     `db:"churned" json:"churned"`
	Leads    int     `db:"leads" json:"new_leads"`
}

// DayHistory returns the most recent N settled days, newest first.
func (db *DB) DayHistory(limit int) ([]DayRow, error) {
	var rows []DayRow
	err := db.conn.Select(&rows,
		`SELECT day, weather, revenue, expenses, profit, serviced, missed, churned, leads
		 FROM day_results ORDER BY id DESC LIMIT ?`,
		limit,
	)
	return rows, err
}

// ClearHistory drops the day and event history, used when a game is reset.
func (db *DB) ClearHistory() error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM day_results"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM events"); err != nil {
		return err
	}
	return tx.Commit()
}
