// Package store persists per-run outcomes in a local SQLite ledger and
// assembles the merged xsdir directory index the downstream transport codes
// read. The ledger replaces the append-only COMPLETED/FAILED text files of
// older processing scripts with something queryable.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// schema contains the DDL executed on first open. Using IF NOT EXISTS makes
// it safe to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    nuclide     TEXT NOT NULL,
    library     TEXT NOT NULL,
    status      TEXT NOT NULL,
    exit_code   INTEGER NOT NULL DEFAULT 0,
    warning     INTEGER NOT NULL DEFAULT 0,
    diagnostic  TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMP,
    finished_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS artifacts (
    run_id      TEXT NOT NULL,
    temperature REAL NOT NULL,
    ace_path    TEXT NOT NULL,
    xsdir_path  TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, temperature)
);
`

// RunRecord is one ledger row.
type RunRecord struct {
	ID         string
	Nuclide    string
	Library    string
	Status     string
	ExitCode   int
	Warning    bool
	Diagnostic string
	Started    time.Time
	Finished   time.Time
}

// Artifact is one produced ACE file and its directory entry.
type Artifact struct {
	RunID       string
	Temperature float64
	ACEPath     string
	XSDirPath   string
}

// Ledger records run outcomes in a SQLite database in WAL mode.
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at dbPath, enables WAL mode
// and a busy timeout, and creates the schema if needed.
func Open(ctx context.Context, dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("ledger: open database: %w", err)
	}

	// SQLite supports a single writer; one pooled connection avoids
	// SQLITE_BUSY contention between connections that each need their own
	// PRAGMA setup.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordRun upserts a run's outcome.
func (l *Ledger) RecordRun(ctx context.Context, r RunRecord) error {
	const q = `
		INSERT INTO runs (id, nuclide, library, status, exit_code, warning, diagnostic, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			exit_code = excluded.exit_code,
			warning = excluded.warning,
			diagnostic = excluded.diagnostic,
			finished_at = excluded.finished_at`
	_, err := l.db.ExecContext(ctx, q, r.ID, r.Nuclide, r.Library, r.Status,
		r.ExitCode, r.Warning, r.Diagnostic, r.Started, r.Finished)
	if err != nil {
		return fmt.Errorf("ledger: record run %s (%s): %w", r.ID, r.Nuclide, err)
	}
	return nil
}

// RecordArtifact registers one produced ACE file for a run.
func (l *Ledger) RecordArtifact(ctx context.Context, a Artifact) error {
	const q = `
		INSERT INTO artifacts (run_id, temperature, ace_path, xsdir_path)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, temperature) DO UPDATE SET
			ace_path = excluded.ace_path,
			xsdir_path = excluded.xsdir_path`
	if _, err := l.db.ExecContext(ctx, q, a.RunID, a.Temperature, a.ACEPath, a.XSDirPath); err != nil {
		return fmt.Errorf("ledger: record artifact for %s at %g K: %w", a.RunID, a.Temperature, err)
	}
	return nil
}

// Runs returns all recorded runs ordered by nuclide name.
func (l *Ledger) Runs(ctx context.Context) ([]RunRecord, error) {
	return l.query(ctx, `SELECT id, nuclide, library, status, exit_code, warning, diagnostic, started_at, finished_at
		FROM runs ORDER BY nuclide`)
}

// Failed returns all runs that did not succeed, ordered by nuclide name.
func (l *Ledger) Failed(ctx context.Context) ([]RunRecord, error) {
	return l.query(ctx, `SELECT id, nuclide, library, status, exit_code, warning, diagnostic, started_at, finished_at
		FROM runs WHERE status != 'succeeded' ORDER BY nuclide`)
}

// Artifacts returns the artifacts of a run in ascending temperature order.
func (l *Ledger) Artifacts(ctx context.Context, runID string) ([]Artifact, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, temperature, ace_path, xsdir_path FROM artifacts WHERE run_id = ? ORDER BY temperature`, runID)
	if err != nil {
		return nil, fmt.Errorf("ledger: list artifacts for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.RunID, &a.Temperature, &a.ACEPath, &a.XSDirPath); err != nil {
			return nil, fmt.Errorf("ledger: scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (l *Ledger) query(ctx context.Context, q string) ([]RunRecord, error) {
	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ledger: query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Nuclide, &r.Library, &r.Status,
			&r.ExitCode, &r.Warning, &r.Diagnostic, &r.Started, &r.Finished); err != nil {
			return nil, fmt.Errorf("ledger: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
