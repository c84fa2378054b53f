// Package historical provides a queryable, append-only ledger of past
// sweep and report runs (SPEC_FULL.md §4.E). It is read-only with
// respect to the deterministic core: nothing in the codec, runner,
// sweep, or report packages depends on it, and it never participates
// in any content hash. Timestamps recorded here always come from a
// sweep manifest or report metadata field, never the wall clock, so
// the ledger stays reproducible from a fixed artifact tree.
package historical

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/m-cahill/clarity/internal/clarityerr"
)

// Run is one recorded sweep or report run.
type Run struct {
	ID                 int64
	CaseID             string
	SweepManifestHash  string
	CaseHash           string
	RecordedAt         string
	ESI                float64
	Drift              float64
}

// Index is a SQLite-backed ledger of case runs, indexed by case ID and
// by the hashes that identify its sweep manifest and artifact case.
type Index struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if absent) the ledger database at
// filepath.Join(dataDir, "historical_index.db").
func Open(dataDir string) (*Index, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "failed to create historical data directory %s", dataDir)
	}

	dbPath := filepath.Join(dataDir, "historical_index.db")
	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=5000&_journal_mode=WAL&_sync=NORMAL")
	if err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "failed to open historical index at %s", dbPath)
	}

	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			sweep_manifest_hash TEXT NOT NULL,
			case_hash TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			baseline_esi REAL NOT NULL,
			baseline_drift REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_case_id ON runs(case_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_case_hash ON runs(case_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_sweep_manifest_hash ON runs(sweep_manifest_hash)`,
	}
	for _, q := range queries {
		if _, err := idx.db.Exec(q); err != nil {
			return clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "failed to migrate historical index schema")
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// RecordRun appends a run to the ledger. recordedAt must come from the
// sweep manifest or report metadata's own timestamp field.
func (idx *Index) RecordRun(ctx context.Context, run Run) (int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	result, err := idx.db.ExecContext(ctx, `
		INSERT INTO runs (case_id, sweep_manifest_hash, case_hash, recorded_at, baseline_esi, baseline_drift)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.CaseID, run.SweepManifestHash, run.CaseHash, run.RecordedAt, run.ESI, run.Drift)
	if err != nil {
		return 0, clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "failed to record run for case %s", run.CaseID)
	}
	return result.LastInsertId()
}

// RunsForCase returns every recorded run for caseID, ordered oldest to
// newest by insertion order.
func (idx *Index) RunsForCase(ctx context.Context, caseID string) ([]Run, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.QueryContext(ctx, `
		SELECT id, case_id, sweep_manifest_hash, case_hash, recorded_at, baseline_esi, baseline_drift
		FROM runs
		WHERE case_id = ?
		ORDER BY id ASC
	`, caseID)
	if err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "failed to query runs for case %s", caseID)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// RunsByCaseHash returns every recorded run sharing caseHash, across
// every case ID — used to detect when two case directories are
// byte-identical under the content-addressed cache key.
func (idx *Index) RunsByCaseHash(ctx context.Context, caseHash string) ([]Run, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.QueryContext(ctx, `
		SELECT id, case_id, sweep_manifest_hash, case_hash, recorded_at, baseline_esi, baseline_drift
		FROM runs
		WHERE case_hash = ?
		ORDER BY id ASC
	`, caseHash)
	if err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "failed to query runs for case hash %s", caseHash)
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CaseID, &r.SweepManifestHash, &r.CaseHash, &r.RecordedAt, &r.ESI, &r.Drift); err != nil {
			return nil, clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "failed to scan run row")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "failed to iterate run rows")
	}
	return runs, nil
}
