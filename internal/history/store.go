// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a SQLite log of conversion runs. Only metadata is
// stored (names, statuses, page and character counts). Extracted text and
// PDF bytes never reach the database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pdf2txt/pkg/types"
)

const defaultListLimit = 50

// Mode names the output a run produced.
type Mode string

const (
	ModeArchive Mode = "zip"
	ModeMerged  Mode = "merged"
	ModePreview Mode = "preview"
	ModeBoth    Mode = "both"
)

// Run is one recorded conversion request.
type Run struct {
	ID          string                    `json:"id" yaml:"id"`
	Mode        Mode                      `json:"mode" yaml:"mode"`
	Backend     string                    `json:"backend" yaml:"backend"`
	CreatedAt   time.Time                 `json:"created_at" yaml:"created_at"`
	OutputBytes int64                     `json:"output_bytes" yaml:"output_bytes"`
	Summary     types.Summary             `json:"summary" yaml:"summary"`
	Documents   []types.ConvertedDocument `json:"documents" yaml:"documents"`
}

// NewRun describes batch as a run with a fresh ID.
func NewRun(mode Mode, backend string, batch types.Batch, outputBytes int64) Run {
	created := batch.ConvertedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return Run{
		ID:          uuid.NewString(),
		Mode:        mode,
		Backend:     backend,
		CreatedAt:   created,
		OutputBytes: outputBytes,
		Summary:     batch.Summary(),
		Documents:   batch.Documents,
	}
}

// Store manages the run history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// created_at holds unix nanoseconds so ordering and pruning compare numbers.
func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			backend TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			output_bytes INTEGER NOT NULL,
			converted INTEGER NOT NULL,
			partial INTEGER NOT NULL,
			failed INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_documents (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			source_name TEXT NOT NULL,
			text_file_name TEXT NOT NULL,
			status TEXT NOT NULL,
			pages INTEGER NOT NULL,
			failed_pages INTEGER NOT NULL,
			chars INTEGER NOT NULL,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores run and its documents in one transaction.
func (s *Store) Record(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, mode, backend, created_at, output_bytes, converted, partial, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Mode), run.Backend, run.CreatedAt.UnixNano(),
		run.OutputBytes, run.Summary.Converted, run.Summary.Partial, run.Summary.Failed,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_documents (run_id, position, source_name, text_file_name, status, pages, failed_pages, chars)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, d := range run.Documents {
		_, err := stmt.ExecContext(ctx,
			run.ID, i, d.SourceName, d.TextFileName, string(d.Status), d.Pages, d.FailedPages, d.Chars,
		)
		if err != nil {
			return fmt.Errorf("inserting document %d of run %s: %w", i, run.ID, err)
		}
	}

	return tx.Commit()
}

// List returns up to limit runs, newest first, with their documents in
// batch order. A limit of 0 or less uses the default of 50.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, backend, created_at, output_bytes, converted, partial, failed
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			mode    string
			created int64
		)
		if err := rows.Scan(&r.ID, &mode, &r.Backend, &created, &r.OutputBytes,
			&r.Summary.Converted, &r.Summary.Partial, &r.Summary.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Mode = Mode(mode)
		r.CreatedAt = time.Unix(0, created).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for i := range runs {
		docs, err := s.documents(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Documents = docs
	}
	return runs, nil
}

func (s *Store) documents(ctx context.Context, runID string) ([]types.ConvertedDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_name, text_file_name, status, pages, failed_pages, chars
		 FROM run_documents WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying documents of run %s: %w", runID, err)
	}
	defer rows.Close()

	var docs []types.ConvertedDocument
	for rows.Next() {
		var d types.ConvertedDocument
		var status string
		if err := rows.Scan(&d.SourceName, &d.TextFileName, &status, &d.Pages, &d.FailedPages, &d.Chars); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.Status = types.ConversionStatus(status)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Prune deletes runs created before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	return res.RowsAffected()
}
