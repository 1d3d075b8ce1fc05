package store

import (
	"database/sql"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/rahul/deskpilot/internal/task"
)

// HistoryStore persists task runs and per-step outcomes to sqlite so
// past automations can be reviewed after the fact.
type HistoryStore struct {
	DB *sql.DB
}

func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			task_description TEXT,
			analysis TEXT,
			steps INTEGER,
			steps_completed INTEGER DEFAULT 0,
			successful INTEGER DEFAULT 0,
			message TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS run_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			step_index INTEGER,
			name TEXT,
			success INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return nil, err
		}
	}

	return &HistoryStore{DB: db}, nil
}

func (h *HistoryStore) RecordRun(runID, description, analysis string, steps int) error {
	query := `INSERT OR REPLACE INTO runs (id, task_description, analysis, steps) VALUES (?, ?, ?, ?)`
	_, err := h.DB.Exec(query, runID, description, analysis, steps)
	return err
}

func (h *HistoryStore) RecordStep(runID string, index int, name string, success bool) error {
	query := `INSERT INTO run_steps (run_id, step_index, name, success) VALUES (?, ?, ?, ?)`
	_, err := h.DB.Exec(query, runID, index, name, boolToInt(success))
	return err
}

func (h *HistoryStore) RecordSummary(runID string, summary task.Summary) error {
	query := `UPDATE runs SET steps_completed = ?, successful = ?, message = ? WHERE id = ?`
	_, err := h.DB.Exec(query, summary.StepsCompleted, boolToInt(summary.Successful), summary.Message, runID)
	return err
}

// RunRecord is one row of run history.
type RunRecord struct {
	ID             string
	Task           string
	Analysis       string
	Steps          int
	StepsCompleted int
	Successful     bool
	Message        string
	CreatedAt      time.Time
}

// RecentRuns returns the most recent runs, newest first.
func (h *HistoryStore) RecentRuns(limit int) ([]RunRecord, error) {
	query := `
		SELECT id, task_description, analysis, steps, steps_completed, successful, message, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`
	rows, err := h.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var successful int
		if err := rows.Scan(&r.ID, &r.Task, &r.Analysis, &r.Steps, &r.StepsCompleted, &successful, &r.Message, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Successful = successful != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// StepRecord is one recorded step outcome.
type StepRecord struct {
	Index   int
	Name    string
	Success bool
}

// RunSteps returns the recorded step outcomes of a run in order.
func (h *HistoryStore) RunSteps(runID string) ([]StepRecord, error) {
	query := `SELECT step_index, name, success FROM run_steps WHERE run_id = ? ORDER BY step_index, id`
	rows, err := h.DB.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var s StepRecord
		var success int
		if err := rows.Scan(&s.Index, &s.Name, &success); err != nil {
			return nil, err
		}
		s.Success = success != 0
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

func (h *HistoryStore) Close() error {
	return h.DB.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
