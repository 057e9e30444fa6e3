package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrUnknownField is returned when a field name is not part of a kind's schema
	ErrUnknownField = errors.New("unknown field")
	// ErrMissingValue is returned when a value is needed but none is available
	ErrMissingValue = errors.New("missing value")
	// ErrMissingID is returned by instance-scoped operations on entities without an id
	ErrMissingID = errors.New("entity has no id")
	// ErrNoSuchPath is returned when the requested path cannot be built
	ErrNoSuchPath = errors.New("no such path")
	// ErrInvalidFieldValue is returned when a value does not fit its field
	ErrInvalidFieldValue = errors.New("invalid field value")
	// ErrOperationNotSupported is returned when a kind does not declare an operation
	ErrOperationNotSupported = errors.New("operation not supported")
	// ErrUnsupportedFilter is returned when a local search filter names a relationship field
	ErrUnsupportedFilter = errors.New("relationship fields cannot be filtered locally")
	// ErrGenerateRelationship is returned by GenValue for relationship fields
	ErrGenerateRelationship = errors.New("relationship values must be created, not generated")
	// ErrNoServerConfig is returned when an entity is built without any reachable server configuration
	ErrNoServerConfig = errors.New("no server configuration available")
	// ErrUnknownKind is returned when a relationship names a kind missing from the registry
	ErrUnknownKind = errors.New("unknown entity kind")
)

// SchemaError reports a problem with field names or required values. It is
// always raised locally, before any request is sent.
type SchemaError struct {
	Kind   string
	Fields []string
	Valid  []string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("%s: %v: %s", e.Kind, e.Err, strings.Join(e.Fields, ", "))
	if len(e.Valid) > 0 {
		valid := append([]string(nil), e.Valid...)
		sort.Strings(valid)
		msg += fmt.Sprintf(" (valid fields are %s)", strings.Join(valid, ", "))
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// InvalidFieldValueError reports a value of the wrong shape or type for a field
type InvalidFieldValueError struct {
	Kind   string
	Field  string
	Value  any
	Reason string
}

func (e *InvalidFieldValueError) Error() string {
	return fmt.Sprintf("%s.%s: invalid value %#v: %s", e.Kind, e.Field, e.Value, e.Reason)
}

// Is lets callers match with errors.Is(err, ErrInvalidFieldValue)
func (e *InvalidFieldValueError) Is(target error) bool {
	return target == ErrInvalidFieldValue
}

// TransportError is an HTTP 4xx/5xx response surfaced to the caller. Detail
// holds the decoded JSON error body when the server sent one.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Detail     any
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	if e.Detail != nil {
		return fmt.Sprintf("%s: %v", msg, e.Detail)
	}
	if len(e.Body) > 0 {
		return fmt.Sprintf("%s: %s", msg, truncate(string(e.Body), 200))
	}
	return msg
}

// TaskFailedError is returned when a task finished with a result other than success
type TaskFailedError struct {
	TaskID string
	Info   map[string]any
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("task %s did not succeed: result=%v errors=%v", e.TaskID, e.Info["result"], e.Info["humanized"])
}

// TaskTimedOutError is returned when the client stopped waiting for a task.
// The task may still be running on the server; Task holds its last known
// info in state TaskTimedOut.
type TaskTimedOutError struct {
	TaskID  string
	Timeout time.Duration
	Info    map[string]any
	Task    *Task
}

func (e *TaskTimedOutError) Error() string {
	return fmt.Sprintf("timed out after %s polling task %s (last state: %v)", e.Timeout, e.TaskID, e.Info["state"])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
