package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Task states and results as reported by the task API
const (
	TaskPlanned = "planned"
	TaskRunning = "running"
	TaskStopped = "stopped"

	ResultPending = "pending"
	ResultSuccess = "success"
	ResultError   = "error"
)

// TaskSpec describes how a new task behaves
type TaskSpec struct {
	// Label names what the task does, e.g. "Actions::Katello::Product::Destroy"
	Label string
	// Polls is how many reads the task stays running for before it stops
	Polls int
	// Fail makes the task stop with result "error"
	Fail bool
}

func (s *Store) migrateTasks(ctx context.Context) error {
	queryStr := `CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		state TEXT NOT NULL,
		result TEXT NOT NULL,
		polls_left INTEGER NOT NULL,
		fail INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT
	)`
	if _, err := s.loggedExecContext(ctx, queryStr); err != nil {
		return fmt.Errorf("failed to create task table: %w", err)
	}
	return nil
}

// CreateTask stores a new planned task with a random UUID id
func (s *Store) CreateTask(ctx context.Context, spec TaskSpec) (Record, error) {
	if spec.Polls < 0 {
		spec.Polls = 0
	}
	id := newTaskID()
	queryStr := "INSERT INTO tasks (id, label, state, result, polls_left, fail, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	if _, err := s.loggedExecContext(ctx, queryStr, id, spec.Label, TaskPlanned, ResultPending, spec.Polls, spec.Fail, timestamp()); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask returns a task without advancing it
func (s *Store) GetTask(ctx context.Context, id string) (Record, error) {
	queryStr := "SELECT id, label, state, result, polls_left, started_at, ended_at FROM tasks WHERE id = ?"

	var (
		label, state, result, startedAt string
		pollsLeft                       int
		endedAt                         sql.NullString
	)
	start := time.Now()
	err := s.db.QueryRowContext(ctx, queryStr, id).Scan(&id, &label, &state, &result, &pollsLeft, &startedAt, &endedAt)
	duration := time.Since(start)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.LogQuery(queryStr, []any{id}, duration, 0)
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		s.logger.LogError(queryStr, []any{id}, duration, err)
		return nil, fmt.Errorf("failed to read task: %w", err)
	}
	s.logger.LogQuery(queryStr, []any{id}, duration, 1)

	task := Record{
		"id":         id,
		"label":      label,
		"state":      state,
		"result":     result,
		"pending":    state != TaskStopped,
		"progress":   progress(state),
		"started_at": startedAt,
		"ended_at":   nil,
		"humanized":  map[string]any{"action": label, "errors": []any{}},
	}
	if endedAt.Valid {
		task["ended_at"] = endedAt.String
	}
	if result == ResultError {
		task["humanized"] = map[string]any{"action": label, "errors": []any{"task failed"}}
	}
	return task, nil
}

// AdvanceTask records one poll of a task and returns its new state. A task
// runs for its configured number of polls, then stops.
func (s *Store) AdvanceTask(ctx context.Context, id string) (Record, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task["state"] == TaskStopped {
		return task, nil
	}

	queryStr := `UPDATE tasks SET
		polls_left = CASE WHEN polls_left > 0 THEN polls_left - 1 ELSE 0 END,
		state = CASE WHEN polls_left > 0 THEN ? ELSE ? END,
		result = CASE WHEN polls_left > 0 THEN ? WHEN fail THEN ? ELSE ? END,
		ended_at = CASE WHEN polls_left > 0 THEN NULL ELSE ? END
	WHERE id = ?`
	args := []any{TaskRunning, TaskStopped, ResultPending, ResultError, ResultSuccess, timestamp(), id}
	if _, err := s.loggedExecContext(ctx, queryStr, args...); err != nil {
		return nil, fmt.Errorf("failed to advance task: %w", err)
	}
	return s.GetTask(ctx, id)
}

func progress(state string) float64 {
	switch state {
	case TaskStopped:
		return 1
	case TaskRunning:
		return 0.5
	}
	return 0
}
