// Package history keeps an append-only ledger of completed runs in a
// local SQLite database. Execution never reads the ledger; runs stay
// independent of each other and the ledger exists purely for auditing.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Run is one recorded pipeline execution.
type Run struct {
	ID              string
	Branch          string
	Commit          string
	StartedAt       time.Time
	FinishedAt      time.Time
	TotalSteps      int
	Passed          int
	Failed          int
	Masked          int
	Skipped         int
	ExitCode        int
	CoveragePercent *float64
}

// Store provides durable storage for the run ledger.
type Store struct {
	db *sql.DB
}

// Open creates or opens the ledger database at path. WAL mode and a
// busy timeout are applied; the connection pool is capped at one
// connection because SQLite allows a single writer.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect history database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one run to the ledger.
func (s *Store) Record(ctx context.Context, run Run) error {
	var coverage sql.NullFloat64
	if run.CoveragePercent != nil {
		coverage = sql.NullFloat64{Float64: *run.CoveragePercent, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, branch, commit_sha, started_at, finished_at,
			total_steps, passed, failed, masked, skipped, exit_code, coverage_percent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Branch, run.Commit,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.TotalSteps, run.Passed, run.Failed, run.Masked, run.Skipped,
		run.ExitCode, coverage)
	if err != nil {
		return fmt.Errorf("record run %q: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branch, commit_sha, started_at, finished_at,
			total_steps, passed, failed, masked, skipped, exit_code, coverage_percent
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run              Run
			started, stopped string
			coverage         sql.NullFloat64
		)
		if err := rows.Scan(&run.ID, &run.Branch, &run.Commit, &started, &stopped,
			&run.TotalSteps, &run.Passed, &run.Failed, &run.Masked, &run.Skipped,
			&run.ExitCode, &coverage); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at for run %q: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, stopped); err != nil {
			return nil, fmt.Errorf("parse finished_at for run %q: %w", run.ID, err)
		}
		if coverage.Valid {
			v := coverage.Float64
			run.CoveragePercent = &v
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
