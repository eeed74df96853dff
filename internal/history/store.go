package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// _ import for sqlite driver registration
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// ErrRunNotFound is returned by Get for an unknown run id
var ErrRunNotFound = errors.New("run not found")

const timeLayout = time.RFC3339Nano

// Store provides access to the run history database
type Store struct {
	db *sql.DB
}

// Open ensures the parent directory exists, opens the SQLite database at
// path and creates the schema if it does not exist
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := ApplyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// ApplyMigrations applies the embedded schema to db
func ApplyMigrations(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a run with all of its action outcomes and returns the run id
func (s *Store) Record(ctx context.Context, run *Run) (int64, error) {
	trx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = trx.Rollback() }()

	res, err := trx.ExecContext(ctx,
		`INSERT INTO runs (preset, baseline, head, dry_run, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.Preset, run.Baseline, run.Head, run.DryRun,
		run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, a := range run.Actions {
		if _, err := trx.ExecContext(ctx,
			`INSERT INTO action_results (run_id, position, name, status, output, error, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i+1, a.Name, string(a.Status), a.Output, a.Error, a.Duration.Milliseconds()); err != nil {
			return 0, fmt.Errorf("insert action result: %w", err)
		}
	}

	if err := trx.Commit(); err != nil {
		return 0, err
	}
	run.ID = id
	return id, nil
}

// Recent returns up to limit runs, newest first, with their actions
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, preset, baseline, head, dry_run, started_at, finished_at FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// rows must be closed before the action queries on a single connection
	_ = rows.Close()

	for i := range runs {
		if err := s.attachActions(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Get returns one run by id
func (s *Store) Get(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, preset, baseline, head, dry_run, started_at, finished_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachActions(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Prune keeps the newest keep runs and deletes the rest, returning how many runs were removed
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	trx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = trx.Rollback() }()

	const older = `SELECT id FROM runs ORDER BY id DESC LIMIT -1 OFFSET ?`
	if _, err := trx.ExecContext(ctx, `DELETE FROM action_results WHERE run_id IN (`+older+`)`, keep); err != nil {
		return 0, fmt.Errorf("prune action results: %w", err)
	}
	res, err := trx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+older+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, trx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var started, finished string
	if err := row.Scan(&run.ID, &run.Preset, &run.Baseline, &run.Head, &run.DryRun, &started, &finished); err != nil {
		return nil, err
	}
	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("run %d: bad started_at: %w", run.ID, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, fmt.Errorf("run %d: bad finished_at: %w", run.ID, err)
	}
	return &run, nil
}

func (s *Store) attachActions(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, status, output, error, duration_ms FROM action_results WHERE run_id = ? ORDER BY position ASC`, run.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	run.Actions = nil
	for rows.Next() {
		var a ActionRecord
		var status string
		var ms int64
		if err := rows.Scan(&a.Name, &status, &a.Output, &a.Error, &ms); err != nil {
			return err
		}
		a.Status = Status(status)
		a.Duration = time.Duration(ms) * time.Millisecond
		run.Actions = append(run.Actions, a)
	}
	return rows.Err()
}
