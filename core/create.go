package core

import (
	"context"
	"fmt"
	"net/http"
)

// CreateOptions controls Create
type CreateOptions struct {
	// CreateMissing forces generation of missing required values on or off.
	// Nil defers to the defaults provider, then generates: everything for an
	// entity with no values, only the required gaps otherwise. Required
	// relationships are gaps too and their targets are created first.
	CreateMissing *bool
}

// Create posts e to the server and returns the created entity. e itself is
// never modified.
func (en *Engine) Create(ctx context.Context, e *Entity, opts CreateOptions) (*Entity, error) {
	if err := e.kind.requireOp(OpCreate); err != nil {
		return nil, err
	}

	work := e.Clone()
	if en.decideCreateMissing(opts) {
		if err := en.createMissing(ctx, work); err != nil {
			return nil, err
		}
	}
	if err := checkRequired(work); err != nil {
		return nil, err
	}

	path, err := work.Path("base")
	if err != nil {
		return nil, err
	}
	payload := CreatePayload(work)
	ev := Event{Op: EventCreate, Kind: e.kind, Entity: work, Payload: payload}
	if err := en.before(ctx, ev); err != nil {
		return nil, err
	}

	created, err := en.createRequest(ctx, work, path, payload)
	ev.Result, ev.Err = created, err
	en.after(ctx, ev)
	return created, err
}

func (en *Engine) createRequest(ctx context.Context, work *Entity, path string, payload map[string]any) (*Entity, error) {
	resp, err := en.send(ctx, work.cfg, http.MethodPost, path, nil, payload)
	if err != nil {
		return nil, err
	}
	attrs, err := decodeObject(resp)
	if err != nil {
		return nil, err
	}
	created, err := Decode(work.kind, work.cfg, attrs, DecodeOptions{})
	if err != nil {
		return nil, err
	}
	carryParent(work, created)
	return created, nil
}

func (en *Engine) decideCreateMissing(opts CreateOptions) bool {
	if opts.CreateMissing != nil {
		return *opts.CreateMissing
	}
	if global := en.defaults.CreateMissing(); global != nil {
		return *global
	}
	return true
}

// createMissing fills required fields that have no value. Required
// relationships are filled by creating their targets on the server.
func (en *Engine) createMissing(ctx context.Context, work *Entity) error {
	for _, f := range work.kind.fields {
		if !f.Required {
			continue
		}
		if _, ok := work.values[f.Name]; ok {
			continue
		}

		switch {
		case f.HasDefault():
			if err := work.Set(f.Name, f.DefaultVal); err != nil {
				return err
			}
		case len(f.Choices) > 0:
			if err := work.Set(f.Name, en.gen.Choice(f.Choices)); err != nil {
				return err
			}
		case f.IsRelationship():
			related, err := en.createRelated(ctx, work, f)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", work.kind.Name, f.Name, err)
			}
			if f.Kind == KindOneToMany {
				work.values[f.Name] = []*Entity{related}
			} else {
				work.values[f.Name] = related
			}
		default:
			value, err := f.GenValue(en.gen)
			if err != nil {
				return err
			}
			if err := work.Set(f.Name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (en *Engine) createRelated(ctx context.Context, work *Entity, f *Field) (*Entity, error) {
	targets, err := work.kind.registry.targets(f)
	if err != nil {
		return nil, err
	}
	seed := newBare(targets[0], work.cfg, nil)
	return en.Create(ctx, seed, CreateOptions{CreateMissing: Bool(true)})
}

func checkRequired(e *Entity) error {
	var missing []string
	for _, f := range e.kind.fields {
		if _, ok := e.values[f.Name]; f.Required && !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Kind: e.kind.Name, Fields: missing, Err: ErrMissingValue}
	}
	return nil
}

// carryParent keeps the scoping relationship of nested kinds when the server
// leaves it out of a response
func carryParent(from, to *Entity) {
	field := from.kind.ParentField()
	if field == "" || to == nil {
		return
	}
	if _, ok := to.values[field]; ok && to.Related(field) != nil {
		return
	}
	if parent, ok := from.values[field]; ok {
		to.values[field] = parent
	}
}
