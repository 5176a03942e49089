// Package auditstore persists one row per solve run to a local SQLite
// ledger, so a planner can answer "what did we solve last time, and did the
// input change since then" without re-running the solver. It uses the same
// pure-Go modernc.org/sqlite driver and pragma set the rest of the corpus
// reaches for, rather than a cgo-dependent one.
package auditstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS solve_runs (
	run_id             TEXT PRIMARY KEY,
	planning_reference TEXT NOT NULL,
	input_hash         TEXT NOT NULL,
	status             TEXT NOT NULL,
	hard_violations    INTEGER NOT NULL,
	soft_penalty       REAL NOT NULL,
	unassigned_slots   INTEGER NOT NULL,
	total_slots        INTEGER NOT NULL,
	started_at         TEXT NOT NULL,
	ended_at           TEXT NOT NULL,
	duration_seconds   REAL NOT NULL,
	solver_version     TEXT NOT NULL,
	output_path        TEXT NOT NULL DEFAULT '',
	warnings_json      TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_solve_runs_reference ON solve_runs(planning_reference);
CREATE INDEX IF NOT EXISTS idx_solve_runs_input_hash ON solve_runs(input_hash);
`

// Store wraps the run-history ledger.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite ledger at path and applies
// its schema. Callers must Close the returned Store.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit store directory: %w", err)
		}
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run is one recorded solve, the ledger's unit of persistence.
type Run struct {
	RunID             string
	PlanningReference string
	InputHash         string
	Status            string
	HardViolations    int
	SoftPenalty       float64
	UnassignedSlots   int
	TotalSlots        int
	StartedAt         time.Time
	EndedAt           time.Time
	DurationSeconds   float64
	SolverVersion     string
	OutputPath        string
	Warnings          []string
}

// Record inserts a completed run. Run IDs are expected to be unique (the
// caller mints a fresh google/uuid per invocation), so this is a plain
// insert rather than an upsert.
func (s *Store) Record(ctx context.Context, run Run) error {
	warningsJSON, err := json.Marshal(run.Warnings)
	if err != nil {
		return fmt.Errorf("marshal run warnings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO solve_runs (
			run_id, planning_reference, input_hash, status,
			hard_violations, soft_penalty, unassigned_slots, total_slots,
			started_at, ended_at, duration_seconds, solver_version,
			output_path, warnings_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.PlanningReference, run.InputHash, run.Status,
		run.HardViolations, run.SoftPenalty, run.UnassignedSlots, run.TotalSlots,
		run.StartedAt.Format(time.RFC3339), run.EndedAt.Format(time.RFC3339),
		run.DurationSeconds, run.SolverVersion, run.OutputPath, string(warningsJSON),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// LastForReference returns the most recent recorded run for a planning
// reference, or nil if none exists yet.
func (s *Store) LastForReference(ctx context.Context, planningReference string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, planning_reference, input_hash, status,
			hard_violations, soft_penalty, unassigned_slots, total_slots,
			started_at, ended_at, duration_seconds, solver_version,
			output_path, warnings_json
		FROM solve_runs
		WHERE planning_reference = ?
		ORDER BY started_at DESC
		LIMIT 1`, planningReference)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// History returns the most recent limit runs for a planning reference,
// newest first.
func (s *Store) History(ctx context.Context, planningReference string, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, planning_reference, input_hash, status,
			hard_violations, soft_penalty, unassigned_slots, total_slots,
			started_at, ended_at, duration_seconds, solver_version,
			output_path, warnings_json
		FROM solve_runs
		WHERE planning_reference = ?
		ORDER BY started_at DESC
		LIMIT ?`, planningReference, limit)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRunRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row *sql.Row) (*Run, error) {
	return scanAny(row)
}

func scanRunRows(rows *sql.Rows) (*Run, error) {
	return scanAny(rows)
}

func scanAny(row scanner) (*Run, error) {
	var run Run
	var startedAtStr, endedAtStr, warningsJSON string

	err := row.Scan(
		&run.RunID, &run.PlanningReference, &run.InputHash, &run.Status,
		&run.HardViolations, &run.SoftPenalty, &run.UnassignedSlots, &run.TotalSlots,
		&startedAtStr, &endedAtStr, &run.DurationSeconds, &run.SolverVersion,
		&run.OutputPath, &warningsJSON,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt, _ = time.Parse(time.RFC3339, startedAtStr)
	run.EndedAt, _ = time.Parse(time.RFC3339, endedAtStr)
	if warningsJSON != "" {
		_ = json.Unmarshal([]byte(warningsJSON), &run.Warnings)
	}

	return &run, nil
}
