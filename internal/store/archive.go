// Package store archives generated corpora in a local SQLite database so a
// run can be listed, inspected and re-emitted later.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"querygen/internal/corpus"
	"querygen/internal/logging"
)

var (
	// ErrRunNotFound is returned when no run matches an ID or prefix.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when an ID prefix matches several runs.
	ErrAmbiguousRun = errors.New("ambiguous run id")
)

// Run is the metadata of one archived corpus.
type Run struct {
	ID            string
	Seed          int64
	Parallel      bool
	CatalogDigest string
	Sources       []string
	Total         int
	Stats         []corpus.CategoryStats
	CreatedAt     time.Time
}

// Store manages the run archive.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open creates or opens the archive at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.StoreDebug("opened archive %s", path)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		parallel INTEGER NOT NULL DEFAULT 0,
		catalog_digest TEXT NOT NULL,
		sources_json TEXT,
		stats_json TEXT,
		total INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

	CREATE TABLE IF NOT EXISTS records (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		query TEXT NOT NULL,
		category TEXT NOT NULL,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_records_query ON records(run_id, query);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun stores a run and its records in one transaction. An empty run.ID is
// replaced by a new UUID; Total is set from len(records).
func (s *Store) SaveRun(ctx context.Context, run *Run, records []corpus.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryStore, "SaveRun")
	defer timer.StopWithThreshold(2 * time.Second)

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Total = len(records)

	sourcesJSON, err := json.Marshal(run.Sources)
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seed, parallel, catalog_digest, sources_json, stats_json, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Seed, run.Parallel, run.CatalogDigest, string(sourcesJSON), string(statsJSON), run.Total, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (run_id, position, query, category) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, run.ID, i, r.Query, r.Category); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	logging.Store("archived run %s: %d records", run.ID, run.Total)
	return nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seed, parallel, catalog_digest, sources_json, stats_json, total, created_at
		FROM runs
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose ID equals or starts with id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRun(ctx, id)
}

func (s *Store) getRun(ctx context.Context, id string) (*Run, error) {
	if id == "" {
		return nil, ErrRunNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seed, parallel, catalog_digest, sources_json, stats_json, total, created_at
		FROM runs
		WHERE id = ? OR substr(id, 1, length(?)) = ?
		ORDER BY id
		LIMIT 2
	`, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	}
}

// LoadRecords returns a run's records in their original output order.
func (s *Store) LoadRecords(ctx context.Context, id string) ([]corpus.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := s.getRun(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT query, category FROM records WHERE run_id = ? ORDER BY position
	`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	defer rows.Close()

	out := make([]corpus.Record, 0, run.Total)
	for rows.Next() {
		var r corpus.Record
		if err := rows.Scan(&r.Query, &r.Category); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(out) != run.Total {
		logging.StoreWarn("run %s: expected %d records, found %d", run.ID, run.Total, len(out))
	}
	return out, nil
}

// DeleteRun removes a run and its records.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.getRun(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	logging.Store("deleted run %s", run.ID)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run         Run
		sourcesJSON sql.NullString
		statsJSON   sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Seed, &run.Parallel, &run.CatalogDigest,
		&sourcesJSON, &statsJSON, &run.Total, &run.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if sourcesJSON.Valid && sourcesJSON.String != "" {
		if err := json.Unmarshal([]byte(sourcesJSON.String), &run.Sources); err != nil {
			return nil, fmt.Errorf("run %s: bad sources: %w", run.ID, err)
		}
	}
	if statsJSON.Valid && statsJSON.String != "" {
		if err := json.Unmarshal([]byte(statsJSON.String), &run.Stats); err != nil {
			return nil, fmt.Errorf("run %s: bad stats: %w", run.ID, err)
		}
	}
	return &run, nil
}
