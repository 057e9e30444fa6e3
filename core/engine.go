package core

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/preslavrachev/nailgun/config"
)

// Engine runs entity operations against a server through a Transport
type Engine struct {
	transport Transport
	defaults  *Defaults
	gen       Generator
	clock     Clock
	observers []Observer
	headers   map[string]string
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithDefaults replaces the Global defaults provider
func WithDefaults(d *Defaults) EngineOption {
	return func(en *Engine) { en.defaults = d }
}

// WithGenerator sets the value generator used by create-missing
func WithGenerator(gen Generator) EngineOption {
	return func(en *Engine) { en.gen = gen }
}

// WithClock sets the clock used for task polling
func WithClock(clock Clock) EngineOption {
	return func(en *Engine) { en.clock = clock }
}

// WithObserver adds an observer
func WithObserver(o Observer) EngineOption {
	return func(en *Engine) { en.observers = append(en.observers, o) }
}

// WithHeaders adds headers to every request, over the server's own
func WithHeaders(headers map[string]string) EngineOption {
	return func(en *Engine) { en.headers = headers }
}

// NewEngine creates an engine sending requests through transport
func NewEngine(transport Transport, opts ...EngineOption) *Engine {
	en := &Engine{
		transport: transport,
		defaults:  Global,
		gen:       NewFakeGenerator(0),
		clock:     SystemClock{},
	}
	for _, opt := range opts {
		opt(en)
	}
	return en
}

// Defaults returns the engine's defaults provider
func (en *Engine) Defaults() *Defaults {
	return en.defaults
}

// send performs one request and turns 4xx/5xx answers into TransportError
func (en *Engine) send(ctx context.Context, cfg *config.ServerConfig, method, rawURL string, params url.Values, body any) (*Response, error) {
	if cfg == nil {
		return nil, ErrNoServerConfig
	}
	req := &Request{
		Method:  method,
		URL:     rawURL,
		Params:  params,
		Body:    body,
		Options: cfg.ClientOptions(en.headers),
	}
	resp, err := en.transport.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	if resp.Request == nil {
		resp.Request = req
	}
	if err := resp.RaiseForStatus(); err != nil {
		return nil, err
	}
	return resp, nil
}

// ActionResult is the outcome of a call that may start a task
type ActionResult struct {
	StatusCode int
	// Task is set for 202 answers; polled to completion unless async
	Task *Task
	// Data is the decoded body, or the final task info when a task was polled
	Data any
}

// HandleResponse interprets the answer to a delete or custom action:
// 202 starts a task (polled when synchronous), 204 or an empty 200 has no
// body, anything else is decoded as JSON.
func (en *Engine) HandleResponse(ctx context.Context, cfg *config.ServerConfig, resp *Response, synchronous bool, opts PollOptions) (*ActionResult, error) {
	if err := resp.RaiseForStatus(); err != nil {
		return nil, err
	}
	result := &ActionResult{StatusCode: resp.StatusCode}

	switch {
	case resp.StatusCode == http.StatusAccepted:
		attrs, err := decodeObject(resp)
		if err != nil {
			return nil, err
		}
		task, err := NewTask(cfg, attrs)
		if err != nil {
			return nil, err
		}
		result.Task = task
		if !synchronous {
			return result, nil
		}
		done, err := en.Poll(ctx, task, opts)
		if err != nil {
			return nil, err
		}
		result.Task = done
		result.Data = done.Info
		return result, nil
	case resp.StatusCode == http.StatusNoContent, resp.IsEmpty():
		return result, nil
	}

	var data any
	if err := resp.JSON(&data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	result.Data = plainJSON(data)
	return result, nil
}
