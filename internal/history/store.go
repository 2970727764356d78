// Package history keeps past runs in SQLite so results can be compared
// across runs.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gotrs-io/search-e2e/internal/scenario"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	base_url    TEXT NOT NULL,
	driver      TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	total       INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	errored     INTEGER NOT NULL,
	skipped     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	scenario_id TEXT NOT NULL,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	screenshot  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS idx_results_scenario ON results(scenario_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// RunRow is one stored run with its status counts.
type RunRow struct {
	ID         string    `db:"id" json:"id" yaml:"id"`
	BaseURL    string    `db:"base_url" json:"base_url" yaml:"base_url"`
	Driver     string    `db:"driver" json:"driver" yaml:"driver"`
	StartedAt  time.Time `db:"started_at" json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at" yaml:"finished_at"`
	Total      int       `db:"total" json:"total" yaml:"total"`
	Passed     int       `db:"passed" json:"passed" yaml:"passed"`
	Failed     int       `db:"failed" json:"failed" yaml:"failed"`
	Errored    int       `db:"errored" json:"errored" yaml:"errored"`
	Skipped    int       `db:"skipped" json:"skipped" yaml:"skipped"`
}

// ResultRow is one stored scenario outcome.
type ResultRow struct {
	RunID      string `db:"run_id" json:"run_id" yaml:"run_id"`
	Position   int    `db:"position" json:"position" yaml:"position"`
	ScenarioID string `db:"scenario_id" json:"scenario_id" yaml:"scenario_id"`
	Name       string `db:"name" json:"name" yaml:"name"`
	Status     string `db:"status" json:"status" yaml:"status"`
	DurationMS int64  `db:"duration_ms" json:"duration_ms" yaml:"duration_ms"`
	Error      string `db:"error" json:"error,omitempty" yaml:"error,omitempty"`
	Screenshot string `db:"screenshot" json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
}

// Flaky is a scenario that both passed and failed within a window of runs.
type Flaky struct {
	ScenarioID string `db:"scenario_id" json:"scenario_id" yaml:"scenario_id"`
	Name       string `db:"name" json:"name" yaml:"name"`
	Runs       int    `db:"runs" json:"runs" yaml:"runs"`
	Passed     int    `db:"passed" json:"passed" yaml:"passed"`
	Failed     int    `db:"failed" json:"failed" yaml:"failed"`
}

// Store persists runs in a SQLite database.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at dsn and creates the schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores run and all of its results in one transaction.
func (s *Store) Record(ctx context.Context, run *scenario.Run) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	sum := run.Summary()
	row := RunRow{
		ID:         run.ID,
		BaseURL:    run.BaseURL,
		Driver:     run.Driver,
		StartedAt:  run.StartedAt.UTC(),
		FinishedAt: run.FinishedAt.UTC(),
		Total:      sum.Total,
		Passed:     sum.Passed,
		Failed:     sum.Failed,
		Errored:    sum.Errored,
		Skipped:    sum.Skipped,
	}
	if _, err = tx.NamedExecContext(ctx, `INSERT INTO runs
		(id, base_url, driver, started_at, finished_at, total, passed, failed, errored, skipped)
		VALUES (:id, :base_url, :driver, :started_at, :finished_at, :total, :passed, :failed, :errored, :skipped)`, row); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for i, res := range run.Results {
		rr := ResultRow{
			RunID:      run.ID,
			Position:   i,
			ScenarioID: res.ID,
			Name:       res.Name,
			Status:     string(res.Status),
			DurationMS: res.Duration.Milliseconds(),
			Error:      Excerpt(res.Error, MaxErrorLen),
		}
		if res.Diagnostics != nil {
			rr.Screenshot = res.Diagnostics.Screenshot
		}
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO results
			(run_id, position, scenario_id, name, status, duration_ms, error, screenshot)
			VALUES (:run_id, :position, :scenario_id, :name, :status, :duration_ms, :error, :screenshot)`, rr); err != nil {
			return fmt.Errorf("insert result %s: %w", res.ID, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRow, error) {
	var rows []RunRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	return rows, err
}

// Get returns one run, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, id string) (RunRow, error) {
	var row RunRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, id)
	return row, err
}

// Results returns the results of one run in execution order.
func (s *Store) Results(ctx context.Context, runID string) ([]ResultRow, error) {
	var rows []ResultRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM results WHERE run_id = ? ORDER BY position`, runID)
	return rows, err
}

// LatestStatuses maps scenario IDs to their status in the newest run. The
// map is empty when nothing was recorded yet.
func (s *Store) LatestStatuses(ctx context.Context) (map[string]scenario.Status, error) {
	latest, err := s.Recent(ctx, 1)
	if err != nil || len(latest) == 0 {
		return map[string]scenario.Status{}, err
	}
	rows, err := s.Results(ctx, latest[0].ID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]scenario.Status, len(rows))
	for _, r := range rows {
		out[r.ScenarioID] = scenario.Status(r.Status)
	}
	return out, nil
}

// FlakyScenarios lists scenarios that both passed and failed or errored
// within the newest window runs, most failures first.
func (s *Store) FlakyScenarios(ctx context.Context, window int) ([]Flaky, error) {
	var rows []Flaky
	err := s.db.SelectContext(ctx, &rows, `
		SELECT scenario_id, MAX(name) AS name, COUNT(*) AS runs,
			SUM(CASE WHEN status = 'passed' THEN 1 ELSE 0 END) AS passed,
			SUM(CASE WHEN status IN ('failed', 'error') THEN 1 ELSE 0 END) AS failed
		FROM results
		WHERE run_id IN (SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?)
		GROUP BY scenario_id
		HAVING SUM(CASE WHEN status = 'passed' THEN 1 ELSE 0 END) > 0
			AND SUM(CASE WHEN status IN ('failed', 'error') THEN 1 ELSE 0 END) > 0
		ORDER BY failed DESC, scenario_id`, window)
	return rows, err
}

// Prune deletes all but the newest keep runs and reports how many went.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id NOT IN
		(SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
