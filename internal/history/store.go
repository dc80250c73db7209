package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/plotdeck/plotdeck/internal/logging"
)

// SchemaVersion tracks the current database schema version.
// Bump this when adding migrations.
const SchemaVersion = 1

var log = logging.ForComponent(logging.CompHistory)

// Store persists the commands and plot statements sent to sessions, so past
// work survives the processes that produced it. Thread-safe within one
// process; WAL mode + busy timeout keep concurrent CLI invocations safe.
type Store struct {
	db *sql.DB
}

// Entry is one recorded line of session activity.
type Entry struct {
	ID        int64
	SessionID int
	Kind      string // "command", "plot", "data", "exec", "dump"
	Text      string
	CreatedAt time.Time
}

// Open creates or opens the history database at dbPath with WAL mode and a
// busy timeout, and applies pending migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("history: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}

	// WAL mode: allows concurrent readers while writing
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: wal mode: %w", err)
	}

	// Busy timeout: wait up to 5s if another process holds a lock
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug("history store opened", "path", dbPath)
	return s, nil
}

// Close checkpoints WAL and closes the database.
func (s *Store) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

func (s *Store) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("history: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("history: create metadata: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL,
			kind       TEXT NOT NULL,
			text       TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("history: create entries: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_entries_session ON entries (session_id, id)
	`); err != nil {
		return fmt.Errorf("history: create index: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)
	`, fmt.Sprintf("%d", SchemaVersion)); err != nil {
		return fmt.Errorf("history: set schema version: %w", err)
	}

	return tx.Commit()
}

// Record appends one entry. It satisfies the session registry's Recorder.
func (s *Store) Record(sessionID int, kind, text string) error {
	_, err := s.db.Exec(
		"INSERT INTO entries (session_id, kind, text, created_at) VALUES (?, ?, ?, ?)",
		sessionID, kind, text, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

// Recent returns the newest n entries, oldest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, kind, text, created_at
		FROM (
			SELECT id, session_id, kind, text, created_at
			FROM entries ORDER BY id DESC LIMIT ?
		) ORDER BY id
	`, n)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	return scanEntries(rows)
}

// BySession returns every entry recorded for one session, oldest first.
func (s *Store) BySession(sessionID int) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, kind, text, created_at
		FROM entries WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("history: by session: %w", err)
	}
	return scanEntries(rows)
}

// Purge deletes entries older than the cutoff and returns how many went.
func (s *Store) Purge(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	res, err := s.db.Exec("DELETE FROM entries WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: purge: %w", err)
	}
	return res.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		var createdUnix int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Text, &createdUnix); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(createdUnix, 0)
		result = append(result, e)
	}
	return result, rows.Err()
}
