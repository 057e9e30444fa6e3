package core

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/preslavrachev/nailgun/config"
)

// Transport sends requests to a server. Non-2xx responses are returned as
// responses, not errors; network failures are errors.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to Transport
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

func (f TransportFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Request is one API call. Body is JSON-encoded by the transport when set.
type Request struct {
	Method  string
	URL     string
	Params  url.Values
	Body    any
	Options config.ClientOptions
}

// Response is the raw answer to a Request
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Request    *Request
}

// JSON decodes the body into v, keeping numbers as json.Number
func (r *Response) JSON(v any) error {
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	return dec.Decode(v)
}

// IsEmpty reports whether the body has no content
func (r *Response) IsEmpty() bool {
	return len(bytes.TrimSpace(r.Body)) == 0
}

// RaiseForStatus returns a TransportError for 4xx and 5xx responses
func (r *Response) RaiseForStatus() error {
	if r.StatusCode < 400 {
		return nil
	}
	err := &TransportError{StatusCode: r.StatusCode, Body: r.Body}
	if r.Request != nil {
		err.Method = r.Request.Method
		err.URL = r.Request.URL
	}
	var detail any
	if !r.IsEmpty() && r.JSON(&detail) == nil {
		err.Detail = detail
	}
	return err
}
