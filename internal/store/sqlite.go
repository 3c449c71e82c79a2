package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/adreport-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	command    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_phases (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	started_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS failed_units (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	level      TEXT NOT NULL,
	account    TEXT NOT NULL,
	day        TEXT NOT NULL,
	attempts   INTEGER NOT NULL,
	error      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_command ON runs(command);
CREATE INDEX IF NOT EXISTS idx_run_phases_run_id ON run_phases(run_id);
CREATE INDEX IF NOT EXISTS idx_failed_units_run_id ON failed_units(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, command string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, command, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Command:   command,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, command, status, result, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: run %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, command, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Command != "" {
		query += ` AND command = ?`
		args = append(args, filter.Command)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, runID, name, string(model.PhaseStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert phase for run %s", runID)
	}

	return &model.RunPhase{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal phase result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE run_phases SET status = ?, result = ? WHERE id = ?`,
		string(result.Status), string(resultJSON), phaseID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete phase %s", phaseID)
	}
	return checkRowsAffected(res, "phase", phaseID)
}

func (s *SQLiteStore) ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, name, status, result, started_at FROM run_phases
		 WHERE run_id = ? ORDER BY started_at, rowid`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list phases %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var phases []model.RunPhase
	for rows.Next() {
		var p model.RunPhase
		var resultJSON sql.NullString
		if err := rows.Scan(&p.ID, &p.RunID, &p.Name, &p.Status, &resultJSON, &p.StartedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan phase")
		}
		if resultJSON.Valid {
			p.Result = &model.PhaseResult{}
			if err := json.Unmarshal([]byte(resultJSON.String), p.Result); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal phase result")
			}
		}
		phases = append(phases, p)
	}
	return phases, eris.Wrap(rows.Err(), "sqlite: list phases iterate")
}

func (s *SQLiteStore) RecordFailedUnit(ctx context.Context, unit *model.FailedUnit) error {
	if unit.ID == "" {
		unit.ID = uuid.New().String()
	}
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO failed_units (id, run_id, level, account, day, attempts, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		unit.ID, unit.RunID, unit.Level, unit.Account, unit.Day.String(), unit.Attempts, unit.Error, unit.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert failed unit for run %s", unit.RunID)
}

func (s *SQLiteStore) ListFailedUnits(ctx context.Context, runID string) ([]model.FailedUnit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, level, account, day, attempts, error, created_at FROM failed_units
		 WHERE run_id = ? ORDER BY day, account, level`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list failed units %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var units []model.FailedUnit
	for rows.Next() {
		var u model.FailedUnit
		var day string
		if err := rows.Scan(&u.ID, &u.RunID, &u.Level, &u.Account, &day, &u.Attempts, &u.Error, &u.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan failed unit")
		}
		if u.Day, err = model.ParseDate(day); err != nil {
			return nil, eris.Wrapf(err, "sqlite: failed unit %s day", u.ID)
		}
		units = append(units, u)
	}
	return units, eris.Wrap(rows.Err(), "sqlite: list failed units iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &r.Command, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if resultJSON.Valid {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}
