package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"
)

const (
	// maxZeroResultRows bounds the persisted zero-result history.
	maxZeroResultRows = 100

	// defaultLockTimeout bounds how long a write waits for another process.
	defaultLockTimeout = 5 * time.Second
	lockRetryDelay     = 25 * time.Millisecond
)

// Store persists telemetry aggregates.
type Store interface {
	// AddCounters adds deltas to the named daily counters.
	AddCounters(date string, deltas map[string]int64) error
	// Counters sums counters over an inclusive date range.
	Counters(from, to string) (map[string]int64, error)
	// UpsertTermCounts adds deltas to term frequencies.
	UpsertTermCounts(terms map[string]int64) error
	// TopTerms returns the most frequent terms.
	TopTerms(limit int) ([]TermCount, error)
	// AddZeroResultQuery appends to the zero-result history, keeping the newest rows.
	AddZeroResultQuery(query string, at time.Time) error
	// ZeroResultQueries returns recent zero-result queries, newest first.
	ZeroResultQueries(limit int) ([]string, error)
	// Close releases the underlying resources.
	Close() error
}

// SQLiteStore implements Store on a single SQLite file.
//
// Every stdio client starts its own server process, so several processes
// may share one telemetry file. Writes hold an exclusive flock on
// <path>.lock for their duration.
type SQLiteStore struct {
	db          *sql.DB
	lock        *flock.Flock
	lockTimeout time.Duration
}

// OpenSQLiteStore opens (creating if needed) the telemetry database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create telemetry directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure telemetry db: %w", err)
	}

	s := &SQLiteStore{
		db:          db,
		lock:        flock.New(path + ".lock"),
		lockTimeout: defaultLockTimeout,
	}
	if err := s.withWriteLock(func() error { return initSchema(db) }); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	-- Daily counters: searches, live, fallback, failure:<reason>, latency:<bucket>
	CREATE TABLE IF NOT EXISTS daily_counters (
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, name)
	);

	CREATE TABLE IF NOT EXISTS query_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 1,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

	-- Zero-result queries (bounded history)
	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// withWriteLock runs fn while holding the cross-process lock.
func (s *SQLiteStore) withWriteLock(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire telemetry lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire telemetry lock: held by another process")
	}
	defer func() { _ = s.lock.Unlock() }()

	return fn()
}

// AddCounters adds deltas to the named counters for date.
func (s *SQLiteStore) AddCounters(date string, deltas map[string]int64) error {
	if len(deltas) == 0 {
		return nil
	}
	return s.withWriteLock(func() error { return s.addCounters(date, deltas) })
}

func (s *SQLiteStore) addCounters(date string, deltas map[string]int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_counters (date, name, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, name) DO UPDATE SET count = count + excluded.count
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for name, delta := range deltas {
		if _, err := stmt.Exec(date, name, delta); err != nil {
			return fmt.Errorf("insert counter %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Counters sums counters over the inclusive date range [from, to].
func (s *SQLiteStore) Counters(from, to string) (map[string]int64, error) {
	rows, err := s.db.Query(`
		SELECT name, SUM(count) AS total
		FROM daily_counters
		WHERE date >= ? AND date <= ?
		GROUP BY name
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query counters: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[name] = count
	}
	return counts, rows.Err()
}

// UpsertTermCounts adds deltas to term frequencies.
func (s *SQLiteStore) UpsertTermCounts(terms map[string]int64) error {
	if len(terms) == 0 {
		return nil
	}
	return s.withWriteLock(func() error { return s.upsertTermCounts(terms) })
}

func (s *SQLiteStore) upsertTermCounts(terms map[string]int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO query_terms (term, count, last_seen)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(term) DO UPDATE SET
			count = count + excluded.count,
			last_seen = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for term, count := range terms {
		if _, err := stmt.Exec(term, count); err != nil {
			return fmt.Errorf("upsert term count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TopTerms returns the most frequent terms, ties broken alphabetically.
func (s *SQLiteStore) TopTerms(limit int) ([]TermCount, error) {
	rows, err := s.db.Query(`
		SELECT term, count FROM query_terms
		ORDER BY count DESC, term ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	defer rows.Close()

	var terms []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

func (s *SQLiteStore) AddZeroResultQuery(query string, at time.Time) error {
	return s.withWriteLock(func() error {
		if _, err := s.db.Exec(`INSERT INTO zero_result_queries (query, timestamp) VALUES (?, ?)`,
			query, at.UTC()); err != nil {
			return fmt.Errorf("insert zero-result query: %w", err)
		}

		if _, err := s.db.Exec(`
			DELETE FROM zero_result_queries
			WHERE id NOT IN (SELECT id FROM zero_result_queries ORDER BY id DESC LIMIT ?)
		`, maxZeroResultRows); err != nil {
			return fmt.Errorf("trim zero-result queries: %w", err)
		}
		return nil
	})
}

// ZeroResultQueries returns recent zero-result queries, newest first.
func (s *SQLiteStore) ZeroResultQueries(limit int) ([]string, error) {
	rows, err := s.db.Query(`SELECT query FROM zero_result_queries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
