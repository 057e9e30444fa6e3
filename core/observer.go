package core

import "context"

// Op names an engine operation in observer events
type Op string

const (
	EventCreate Op = "create"
	EventRead   Op = "read"
	EventUpdate Op = "update"
	EventDelete Op = "delete"
	EventSearch Op = "search"
	EventInvoke Op = "invoke"
)

// Event describes an operation seen by observers. Result and Err are only
// set for After.
type Event struct {
	Op      Op
	Kind    *Kind
	Entity  *Entity
	Payload map[string]any
	Result  any
	Err     error
}

// Observer is notified around engine operations. An error from Before
// aborts the operation before any request is sent.
type Observer interface {
	Before(ctx context.Context, ev Event) error
	After(ctx context.Context, ev Event)
}

// BeforeFunc adapts a function to an Observer that only runs before operations
type BeforeFunc func(ctx context.Context, ev Event) error

func (f BeforeFunc) Before(ctx context.Context, ev Event) error { return f(ctx, ev) }
func (f BeforeFunc) After(context.Context, Event) {}

// AfterFunc adapts a function to an Observer that only runs after operations
type AfterFunc func(ctx context.Context, ev Event)

func (f AfterFunc) Before(context.Context, Event) error { return nil }
func (f AfterFunc) After(ctx context.Context, ev Event) { f(ctx, ev) }

func (en *Engine) before(ctx context.Context, ev Event) error {
	for _, o := range en.observers {
		if err := o.Before(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (en *Engine) after(ctx context.Context, ev Event) {
	for _, o := range en.observers {
		o.After(ctx, ev)
	}
}
