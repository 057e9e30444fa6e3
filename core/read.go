package core

import (
	"context"
	"fmt"
	"net/http"
)

// ReadOptions controls Read
type ReadOptions struct {
	// Into receives the values instead of a new entity
	Into *Entity
	// Attrs are used instead of fetching the entity
	Attrs map[string]any
	// Ignore lists fields to skip, on top of the kind's own read-ignore rules
	Ignore []string
	// Params are sent as query parameters of the GET
	Params map[string]any
	// Lenient accepts responses missing non-ignored fields, which are then
	// left unset
	Lenient bool
	// Strict fails on response keys that are not fields of the kind
	Strict bool
}

// Read fetches e by id and returns a fresh entity
func (en *Engine) Read(ctx context.Context, e *Entity, opts ReadOptions) (*Entity, error) {
	if err := e.kind.requireOp(OpRead); err != nil {
		return nil, err
	}
	if opts.Into != nil && opts.Into.kind != e.kind {
		return nil, fmt.Errorf("read %s into %s: %w", e.kind.Name, opts.Into.kind.Name, ErrUnknownKind)
	}

	ev := Event{Op: EventRead, Kind: e.kind, Entity: e, Payload: opts.Attrs}
	if err := en.before(ctx, ev); err != nil {
		return nil, err
	}
	read, err := en.read(ctx, e, opts)
	ev.Result, ev.Err = read, err
	en.after(ctx, ev)
	return read, err
}

func (en *Engine) read(ctx context.Context, e *Entity, opts ReadOptions) (*Entity, error) {
	attrs := opts.Attrs
	if attrs == nil {
		if !e.HasID() {
			return nil, fmt.Errorf("%s: read: %w", e.kind.Name, ErrMissingID)
		}
		var err error
		if attrs, err = en.ReadJSON(ctx, e, opts.Params); err != nil {
			return nil, err
		}
	}

	ignore := append(append([]string(nil), opts.Ignore...), e.kind.ReadIgnore(e.cfg)...)
	read, err := Decode(e.kind, e.cfg, attrs, DecodeOptions{Ignore: ignore, Require: !opts.Lenient, Strict: opts.Strict})
	if err != nil {
		return nil, err
	}
	carryParent(e, read)

	if opts.Into != nil {
		opts.Into.values = read.values
		return opts.Into, nil
	}
	return read, nil
}

// ReadJSON fetches the raw JSON object of e
func (en *Engine) ReadJSON(ctx context.Context, e *Entity, params map[string]any) (map[string]any, error) {
	path, err := e.Path("self")
	if err != nil {
		return nil, err
	}
	resp, err := en.send(ctx, e.cfg, http.MethodGet, path, EncodeParams(params), nil)
	if err != nil {
		return nil, err
	}
	return decodeObject(resp)
}
