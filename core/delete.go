package core

import (
	"context"
	"net/http"
)

// DeleteOptions controls Delete
type DeleteOptions struct {
	// Async returns the task of a 202 answer without waiting for it
	Async bool
	Poll  PollOptions
}

// Delete removes e on the server
func (en *Engine) Delete(ctx context.Context, e *Entity, opts DeleteOptions) (*ActionResult, error) {
	if err := e.kind.requireOp(OpDelete); err != nil {
		return nil, err
	}
	path, err := e.Path("self")
	if err != nil {
		return nil, err
	}

	ev := Event{Op: EventDelete, Kind: e.kind, Entity: e}
	if err := en.before(ctx, ev); err != nil {
		return nil, err
	}
	var result *ActionResult
	resp, err := en.send(ctx, e.cfg, http.MethodDelete, path, nil, nil)
	if err == nil {
		result, err = en.HandleResponse(ctx, e.cfg, resp, !opts.Async, opts.Poll)
	}
	ev.Result, ev.Err = result, err
	en.after(ctx, ev)
	return result, err
}
