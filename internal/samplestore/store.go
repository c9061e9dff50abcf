// Package samplestore implements C1: the append-only moderation sample
// table with a per-database connection pool, backed by
// modernc.org/sqlite (pure-Go, no cgo).
package samplestore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Sample is one labeled moderation example (per §3).
type Sample struct {
	ID        int64
	Text      string
	Label     int
	Category  string
	CreatedAt time.Time
}

// pool is a process-wide registry of *sql.DB keyed by database path, so
// every profile's store reuses one connection pool rather than opening
// a fresh one per request, through database/sql's own pooling
// (database/sql already serializes writes against a single-writer
// SQLite file correctly when MaxOpenConns is capped).
var (
	poolMu sync.Mutex
	pools  = map[string]*sql.DB{}
)

func openPooled(dbPath string) (*sql.DB, error) {
	poolMu.Lock()
	defer poolMu.Unlock()

	if db, ok := pools[dbPath]; ok {
		return db, nil
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sample store %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(10)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		label INTEGER NOT NULL,
		category TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init samples table: %w", err)
	}

	pools[dbPath] = db
	return db, nil
}

// CloseAll closes every pooled database; used by process shutdown and by
// tests that need a clean registry between cases.
func CloseAll() {
	poolMu.Lock()
	defer poolMu.Unlock()
	for path, db := range pools {
		db.Close()
		delete(pools, path)
	}
}

// Store wraps the pooled *sql.DB for one profile's history.db.
type Store struct {
	db *sql.DB
}

// Open returns a Store backed by the pooled connection for dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := openPooled(dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Save appends one sample. Append-only per §3; rows are removed only by
// DeleteByText (maintenance) and CleanupExcessSamples' oldest-first trim.
func (s *Store) Save(ctx context.Context, text string, label int, category string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO samples (text, label, category) VALUES (?, ?, ?)`, text, label, category)
	if err != nil {
		return 0, fmt.Errorf("save sample: %w", err)
	}
	return res.LastInsertId()
}

// Count returns the total sample count.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`).Scan(&n)
	return n, err
}

// IDs returns up to limit sample ids, most recent first.
func (s *Store) IDs(ctx context.Context, limit int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM samples ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LoadByIDs loads the samples with the given ids, order unspecified.
func (s *Store) LoadByIDs(ctx context.Context, ids []int64) ([]Sample, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT id, text, label, category, created_at FROM samples WHERE id IN (%s)`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var sm Sample
		var category sql.NullString
		if err := rows.Scan(&sm.ID, &sm.Text, &sm.Label, &category, &sm.CreatedAt); err != nil {
			return nil, err
		}
		sm.Category = category.String
		out = append(out, sm)
	}
	return out, rows.Err()
}

// CleanupExcessSamples trims the store to maxItems, oldest-first, ahead
// of a training run (per §4.5 step 1).
func (s *Store) CleanupExcessSamples(ctx context.Context, maxItems int) error {
	total, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if total <= maxItems {
		return nil
	}

	excess := total - maxItems
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM samples WHERE id IN (SELECT id FROM samples ORDER BY created_at ASC, id ASC LIMIT ?)`, excess)
	return err
}

// DeleteByText removes every sample whose text matches exactly. A
// maintenance capability the core exposes for external tooling to bind
// to, per §12 (the CLI itself is out of scope).
func (s *Store) DeleteByText(ctx context.Context, text string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM samples WHERE text = ?`, text)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
