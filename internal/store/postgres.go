package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const postgresDriver = "pgx"

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	scenario TEXT NOT NULL,
	replicate INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	days DOUBLE PRECISION NOT NULL,
	steps INTEGER NOT NULL,
	final_strength DOUBLE PRECISION NOT NULL,
	config JSONB NOT NULL,
	report JSONB NOT NULL,
	snapshots JSONB NOT NULL
)`

// PostgresRunStore persists runs to Postgres. Snapshots are kept as a JSONB
// array on the run row.
type PostgresRunStore struct {
	db *sql.DB
}

// NewPostgresRunStore opens the database at dsn and ensures the runs table exists.
func NewPostgresRunStore(ctx context.Context, dsn string) (*PostgresRunStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	openMu.Lock()
	db, err := sqlOpen(postgresDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure runs table: %w", err)
	}
	return &PostgresRunStore{db: db}, nil
}

// SaveRun upserts the run row.
func (s *PostgresRunStore) SaveRun(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}
	prepare(run)

	configJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	snapshots := run.Snapshots
	if snapshots == nil {
		snapshots = []Snapshot{}
	}
	snapshotsJSON, err := json.Marshal(snapshots)
	if err != nil {
		return fmt.Errorf("marshal snapshots: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO runs
		(id, scenario, replicate, created_at, days, steps, final_strength, config, report, snapshots)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			scenario = EXCLUDED.scenario,
			replicate = EXCLUDED.replicate,
			created_at = EXCLUDED.created_at,
			days = EXCLUDED.days,
			steps = EXCLUDED.steps,
			final_strength = EXCLUDED.final_strength,
			config = EXCLUDED.config,
			report = EXCLUDED.report,
			snapshots = EXCLUDED.snapshots`,
		run.ID, run.Scenario, run.Replicate, run.CreatedAt, run.Days, run.Steps,
		run.FinalStrength, configJSON, reportJSON, snapshotsJSON)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run and its snapshots by ID.
func (s *PostgresRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var (
		run                                  Run
		configJSON, reportJSON, snapshotJSON []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, scenario, replicate, created_at, days, steps,
		final_strength, config, report, snapshots FROM runs WHERE id = $1`, id).
		Scan(&run.ID, &run.Scenario, &run.Replicate, &run.CreatedAt, &run.Days, &run.Steps,
			&run.FinalStrength, &configJSON, &reportJSON, &snapshotJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select run: %w", err)
	}
	if err := decodeRunJSON(&run, configJSON, reportJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshotJSON, &run.Snapshots); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	run.CreatedAt = run.CreatedAt.UTC()
	return &run, nil
}

// ListRuns returns runs newest first.
func (s *PostgresRunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, scenario, replicate, created_at, days, steps, final_strength, config, report
		FROM runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			run                    Run
			configJSON, reportJSON []byte
		)
		if err := rows.Scan(&run.ID, &run.Scenario, &run.Replicate, &run.CreatedAt, &run.Days,
			&run.Steps, &run.FinalStrength, &configJSON, &reportJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := decodeRunJSON(&run, configJSON, reportJSON); err != nil {
			return nil, err
		}
		run.CreatedAt = run.CreatedAt.UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the database connection.
func (s *PostgresRunStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *PostgresRunStore) DB() *sql.DB { return s.db }

func decodeRunJSON(run *Run, configJSON, reportJSON []byte) error {
	if err := json.Unmarshal(configJSON, &run.Config); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := json.Unmarshal(reportJSON, &run.Report); err != nil {
		return fmt.Errorf("decode report: %w", err)
	}
	return nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

var _ RunStore = (*PostgresRunStore)(nil)
