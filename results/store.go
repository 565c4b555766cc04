package results

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists ensembles in a SQLite database.
type Store struct {
	db *sql.DB
}

// RunInfo is a summary row for a stored run.
type RunInfo struct {
	RunID        string
	Model        string
	Solver       string
	Status       Status
	Trajectories int
	Timestamp    time.Time
}

// OpenStore opens (and migrates) a results database at the given path.
// Use ":memory:" for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id       TEXT PRIMARY KEY,
			model        TEXT NOT NULL,
			solver       TEXT NOT NULL,
			status       TEXT NOT NULL,
			seed         INTEGER NOT NULL,
			end_time     REAL NOT NULL,
			increment    REAL NOT NULL,
			compute_time REAL NOT NULL,
			timestamp    TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS trajectories (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			idx    INTEGER NOT NULL,
			data   TEXT NOT NULL,
			PRIMARY KEY (run_id, idx)
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	return nil
}

// SaveEnsemble writes an ensemble and all its trajectories.
func (s *Store) SaveEnsemble(e *Ensemble) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save ensemble: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(run_id, model, solver, status, seed, end_time, increment, compute_time, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Model, e.Solver, string(e.Status), e.Seed,
		e.EndTime, e.Increment, e.ComputeTime, e.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save run %s: %w", e.RunID, err)
	}
	for i, tr := range e.Trajectories {
		data, err := json.Marshal(tr)
		if err != nil {
			return fmt.Errorf("marshal trajectory %d: %w", i, err)
		}
		if _, err := tx.Exec(`INSERT INTO trajectories (run_id, idx, data) VALUES (?, ?, ?)`,
			e.RunID, i, string(data)); err != nil {
			return fmt.Errorf("save trajectory %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LoadEnsemble reads a stored ensemble by run ID.
func (s *Store) LoadEnsemble(runID string) (*Ensemble, error) {
	e := &Ensemble{Version: SchemaVersion, RunID: runID}
	var status, ts string
	err := s.db.QueryRow(`SELECT model, solver, status, seed, end_time, increment, compute_time, timestamp
		FROM runs WHERE run_id = ?`, runID).
		Scan(&e.Model, &e.Solver, &status, &e.Seed, &e.EndTime, &e.Increment, &e.ComputeTime, &ts)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	e.Status = Status(status)
	if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	rows, err := s.db.Query(`SELECT data FROM trajectories WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("load trajectories %s: %w", runID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("load trajectories %s: %w", runID, err)
		}
		var tr Trajectory
		if err := json.Unmarshal([]byte(data), &tr); err != nil {
			return nil, fmt.Errorf("decode trajectory: %w", err)
		}
		e.Trajectories = append(e.Trajectories, &tr)
	}
	return e, rows.Err()
}

// ListRuns returns summaries of stored runs, newest first.
func (s *Store) ListRuns() ([]RunInfo, error) {
	rows, err := s.db.Query(`SELECT r.run_id, r.model, r.solver, r.status, r.timestamp,
			(SELECT COUNT(*) FROM trajectories t WHERE t.run_id = r.run_id)
		FROM runs r ORDER BY r.timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []RunInfo
	for rows.Next() {
		var ri RunInfo
		var status, ts string
		if err := rows.Scan(&ri.RunID, &ri.Model, &ri.Solver, &status, &ts, &ri.Trajectories); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		ri.Status = Status(status)
		ri.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, ri)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }
