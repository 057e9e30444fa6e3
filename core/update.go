package core

import (
	"context"
)

// Update sends assigned values of e and returns the updated entity. With no
// names every assigned field is sent. Nil values are sent as null; unset
// fields are left out.
func (en *Engine) Update(ctx context.Context, e *Entity, names ...string) (*Entity, error) {
	if err := e.kind.requireOp(OpUpdate); err != nil {
		return nil, err
	}
	payload, err := UpdatePayload(e, names...)
	if err != nil {
		return nil, err
	}
	path, err := e.Path("self")
	if err != nil {
		return nil, err
	}

	ev := Event{Op: EventUpdate, Kind: e.kind, Entity: e, Payload: payload}
	if err := en.before(ctx, ev); err != nil {
		return nil, err
	}
	updated, err := en.updateRequest(ctx, e, path, payload)
	ev.Result, ev.Err = updated, err
	en.after(ctx, ev)
	return updated, err
}

func (en *Engine) updateRequest(ctx context.Context, e *Entity, path string, payload map[string]any) (*Entity, error) {
	resp, err := en.send(ctx, e.cfg, e.kind.UpdateMethod, path, nil, payload)
	if err != nil {
		return nil, err
	}
	attrs, err := decodeObject(resp)
	if err != nil {
		return nil, err
	}
	updated, err := Decode(e.kind, e.cfg, attrs, DecodeOptions{Ignore: e.kind.ReadIgnore(e.cfg)})
	if err != nil {
		return nil, err
	}
	carryParent(e, updated)
	return updated, nil
}
