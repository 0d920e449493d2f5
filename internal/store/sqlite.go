package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// DBFile is the database file name inside the store directory.
const DBFile = "runs.db"

// SQLiteRunStore implements RunStore using SQLite for persistence.
type SQLiteRunStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore creates the database at dir/runs.db.
func NewSQLiteRunStore(ctx context.Context, dir string) (*SQLiteRunStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	dbPath := filepath.Join(dir, DBFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string {
	return s.dbPath
}

// SaveRun writes the run and its snapshots in one transaction.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}
	prepare(run)

	configJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_snapshots WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, replicate, created_at, days, steps, final_strength, config, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			scenario = excluded.scenario,
			replicate = excluded.replicate,
			created_at = excluded.created_at,
			days = excluded.days,
			steps = excluded.steps,
			final_strength = excluded.final_strength,
			config = excluded.config,
			report = excluded.report`,
		run.ID, run.Scenario, run.Replicate, run.CreatedAt.Format(timeFormat),
		run.Days, run.Steps, run.FinalStrength, string(configJSON), string(reportJSON))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_snapshots (run_id, step, day, strength, mineral, crosslink_density, matrix_strength, crosslinks, stage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, snap := range run.Snapshots {
		if _, err := stmt.ExecContext(ctx, run.ID, i, snap.Day, snap.Strength, snap.Mineral,
			snap.CrosslinkDensity, snap.MatrixStrength, snap.Crosslinks, snap.Stage); err != nil {
			return fmt.Errorf("failed to insert snapshot %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run and its snapshots by ID.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, replicate, created_at, days, steps, final_strength, config, report
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT day, strength, mineral, crosslink_density, matrix_strength, crosslinks, stage
		FROM run_snapshots WHERE run_id = ? ORDER BY step`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.Day, &snap.Strength, &snap.Mineral, &snap.CrosslinkDensity,
			&snap.MatrixStrength, &snap.Crosslinks, &snap.Stage); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		run.Snapshots = append(run.Snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, scenario, replicate, created_at, days, steps, final_strength, config, report
		FROM runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run        Run
		createdAt  string
		configJSON string
		reportJSON string
	)
	if err := row.Scan(&run.ID, &run.Scenario, &run.Replicate, &createdAt, &run.Days,
		&run.Steps, &run.FinalStrength, &configJSON, &reportJSON); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = t
	if err := json.Unmarshal([]byte(configJSON), &run.Config); err != nil {
		return nil, fmt.Errorf("invalid config JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(reportJSON), &run.Report); err != nil {
		return nil, fmt.Errorf("invalid report JSON: %w", err)
	}
	return &run, nil
}

var _ RunStore = (*SQLiteRunStore)(nil)
