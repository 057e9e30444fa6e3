package core

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/preslavrachev/nailgun/config"
)

// TaskAPIPath is where the server exposes asynchronous tasks
const TaskAPIPath = "foreman_tasks/api/tasks"

// TaskState is the client-side view of a task
type TaskState string

const (
	TaskPending  TaskState = "pending"
	TaskSuccess  TaskState = "success"
	TaskError    TaskState = "error"
	TaskTimedOut TaskState = "timed_out"
)

// Task is a handle on a server-side asynchronous task
type Task struct {
	ID    string
	Path  string
	State TaskState
	Info  map[string]any
	cfg   *config.ServerConfig
}

// NewTask builds a pending task from a 202 response body
func NewTask(cfg *config.ServerConfig, attrs map[string]any) (*Task, error) {
	raw, ok := attrs["id"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("task response without id: %w", ErrMissingID)
	}
	id := paramString(raw)
	return &Task{
		ID:    id,
		Path:  TaskPath(cfg, id),
		State: TaskPending,
		Info:  plainJSON(attrs).(map[string]any),
		cfg:   cfg,
	}, nil
}

// TaskPath returns the URL of the task with the given id
func TaskPath(cfg *config.ServerConfig, id string) string {
	return joinPath(cfg.URL, TaskAPIPath, id)
}

// PollOptions controls task polling. Zero durations use the defaults
// provider at call time.
type PollOptions struct {
	Timeout      time.Duration
	PollRate     time.Duration
	AllowFailure bool
}

// PollTask waits for the task with the given id and returns its final info
func (en *Engine) PollTask(ctx context.Context, cfg *config.ServerConfig, id string, opts PollOptions) (map[string]any, error) {
	task := &Task{ID: id, Path: TaskPath(cfg, id), State: TaskPending, cfg: cfg}
	done, err := en.Poll(ctx, task, opts)
	if err != nil {
		return nil, err
	}
	return done.Info, nil
}

// Poll waits until the task is paused or stopped. A result other than
// "success" is a TaskFailedError unless AllowFailure is set; running out of
// time is a TaskTimedOutError, returned together with the task in state
// TaskTimedOut, though the task may still finish on the server.
func (en *Engine) Poll(ctx context.Context, task *Task, opts PollOptions) (*Task, error) {
	timeout, rate := opts.Timeout, opts.PollRate
	if timeout <= 0 {
		timeout = en.defaults.TaskTimeout()
	}
	if rate <= 0 {
		rate = en.defaults.PollRate()
	}
	cfg := task.cfg
	if cfg == nil {
		var err error
		if cfg, err = en.defaults.ServerConfig(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoServerConfig, err)
		}
	}
	path := task.Path
	if path == "" {
		path = TaskPath(cfg, task.ID)
	}

	start := en.clock.Now()
	var info map[string]any
	for {
		resp, err := en.send(ctx, cfg, http.MethodGet, path, nil, nil)
		if err != nil {
			return nil, err
		}
		info, err = decodeObject(resp)
		if err != nil {
			return nil, err
		}
		info = plainJSON(info).(map[string]any)

		if state := info["state"]; state == "paused" || state == "stopped" {
			break
		}
		if en.clock.Now().Sub(start) >= timeout {
			last := &Task{ID: task.ID, Path: path, State: TaskTimedOut, Info: info, cfg: cfg}
			return last, &TaskTimedOutError{TaskID: task.ID, Timeout: timeout, Info: info, Task: last}
		}
		if err := en.clock.Sleep(ctx, rate); err != nil {
			return nil, err
		}
	}

	done := &Task{ID: task.ID, Path: path, State: TaskSuccess, Info: info, cfg: cfg}
	if info["result"] != "success" {
		done.State = TaskError
		if !opts.AllowFailure {
			return nil, &TaskFailedError{TaskID: task.ID, Info: info}
		}
	}
	return done, nil
}
