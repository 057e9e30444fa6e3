package core

import (
	"context"
	"fmt"
	"net/http"
)

// CustomAction is a named call on an entity beyond CRUD, such as syncing a
// repository. The call goes to the sub-path named by Path.
type CustomAction struct {
	// ID is the unique identifier for the action
	ID string `json:"id"`

	// Title is a human readable name
	Title string `json:"title"`

	// Method is the HTTP method, PUT when empty
	Method string `json:"method"`

	// Path names the sub-path the call is sent to, ID when empty
	Path string `json:"path"`

	// Async marks actions the server answers with 202 and a task
	Async bool `json:"async"`
}

// ActionBuilder provides a fluent API for configuring custom actions
type ActionBuilder struct {
	action *CustomAction
}

// NewAction creates a new action builder
func NewAction(id, title string) *ActionBuilder {
	return &ActionBuilder{
		action: &CustomAction{
			ID:     id,
			Title:  title,
			Method: http.MethodPut,
			Path:   id,
		},
	}
}

// Method sets the HTTP method
func (ab *ActionBuilder) Method(method string) *ActionBuilder {
	ab.action.Method = method
	return ab
}

// Path sets the sub-path the action is sent to
func (ab *ActionBuilder) Path(path string) *ActionBuilder {
	ab.action.Path = path
	return ab
}

// Async marks the action as answered with a task
func (ab *ActionBuilder) Async() *ActionBuilder {
	ab.action.Async = true
	return ab
}

// Build returns the built custom action
func (ab *ActionBuilder) Build() CustomAction {
	return *ab.action
}

// InvokeOptions controls a custom action call
type InvokeOptions struct {
	// Async returns the task handle of a 202 response instead of polling it
	Async bool
	Poll  PollOptions
}

// Invoke performs a custom action on e and handles the response like Delete
func (en *Engine) Invoke(ctx context.Context, e *Entity, actionID string, body map[string]any, opts InvokeOptions) (*ActionResult, error) {
	action, ok := e.kind.Action(actionID)
	if !ok {
		return nil, fmt.Errorf("%s: action %q: %w", e.kind.Name, actionID, ErrOperationNotSupported)
	}
	path, err := e.Path(action.Path)
	if err != nil {
		return nil, err
	}

	ev := Event{Op: EventInvoke, Kind: e.kind, Entity: e, Payload: body}
	if err := en.before(ctx, ev); err != nil {
		return nil, err
	}
	var reqBody any
	if body != nil {
		reqBody = body
	}
	resp, err := en.send(ctx, e.cfg, action.Method, path, nil, reqBody)
	if err == nil {
		ev.Result, err = en.HandleResponse(ctx, e.cfg, resp, !opts.Async, opts.Poll)
	}
	ev.Err = err
	en.after(ctx, ev)
	if err != nil {
		return nil, err
	}
	return ev.Result.(*ActionResult), nil
}
