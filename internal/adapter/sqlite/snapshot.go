// Package sqlite keeps a local snapshot of the thread set so the CLI has
// something to load when the remote endpoint is unavailable.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

// Snapshot stores the whole thread set as JSON rows in a SQLite file.
type Snapshot struct {
	db *sql.DB
}

// Open opens or creates the snapshot database at path.
func Open(path string) (*Snapshot, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}

	s := &Snapshot{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate snapshot: %w", err)
	}
	return s, nil
}

func (s *Snapshot) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS threads (
		id         TEXT PRIMARY KEY,
		position   INTEGER NOT NULL,
		body       TEXT NOT NULL,
		saved_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	);
	CREATE INDEX IF NOT EXISTS idx_threads_position ON threads(position);
	`)
	return err
}

// Close closes the database.
func (s *Snapshot) Close() error {
	return s.db.Close()
}

// SaveThreads replaces the snapshot with threads.
func (s *Snapshot) SaveThreads(ctx context.Context, threads []domain.Thread) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM threads`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO threads (id, position, body) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range threads {
		body, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("thread %s marshal: %w", t.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, t.ID, i, string(body)); err != nil {
			return fmt.Errorf("thread %s insert: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadThreads returns one page of the snapshot in saved order. Pages start
// at 1.
func (s *Snapshot) LoadThreads(ctx context.Context, page, limit int) (domain.ThreadPage, error) {
	if page < 1 {
		page = 1
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM threads`).Scan(&total); err != nil {
		return domain.ThreadPage{}, fmt.Errorf("count snapshot: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM threads ORDER BY position LIMIT ? OFFSET ?`,
		limit, (page-1)*limit,
	)
	if err != nil {
		return domain.ThreadPage{}, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	threads := []domain.Thread{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return domain.ThreadPage{}, fmt.Errorf("scan snapshot: %w", err)
		}
		var t domain.Thread
		if err := json.Unmarshal([]byte(body), &t); err != nil {
			return domain.ThreadPage{}, fmt.Errorf("decode snapshot: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return domain.ThreadPage{}, fmt.Errorf("query snapshot: %w", err)
	}

	return domain.ThreadPage{Threads: threads, Total: total}, nil
}
