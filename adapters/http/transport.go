package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/preslavrachev/nailgun/config"
	"github.com/preslavrachev/nailgun/core"
)

// RequestIDHeader carries a per-request ULID
const RequestIDHeader = "X-Request-Id"

// ErrCABundle is returned when a CA bundle cannot be used
var ErrCABundle = errors.New("unusable CA bundle")

// Transport implements core.Transport over net/http. Clients are cached
// per TLS policy. When a handler is set requests are served in-process.
type Transport struct {
	logger  *HTTPLogger
	handler http.Handler

	mu      sync.Mutex
	clients map[config.Verify]*http.Client
}

// New creates a transport sending requests over the network
func New() *Transport {
	return &Transport{
		logger:  NewHTTPLogger(false), // Default to disabled
		clients: make(map[config.Verify]*http.Client),
	}
}

// NewWithDebug creates a transport with request logging enabled
func NewWithDebug(debugEnabled bool) *Transport {
	t := New()
	t.logger.SetEnabled(debugEnabled)
	return t
}

// NewHandlerTransport creates a transport that serves every request with h
// instead of the network. TLS settings are ignored.
func NewHandlerTransport(h http.Handler) *Transport {
	t := New()
	t.handler = h
	return t
}

// SetDebugEnabled enables or disables request logging
func (t *Transport) SetDebugEnabled(enabled bool) {
	t.logger.SetEnabled(enabled)
}

// Logger returns the request logger
func (t *Transport) Logger() *HTTPLogger {
	return t.logger
}

// Do sends req and returns the answer. Only failures to get an answer are
// errors; 4xx and 5xx answers are returned as responses.
func (t *Transport) Do(ctx context.Context, req *core.Request) (*core.Response, error) {
	if req.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Options.Timeout)
		defer cancel()
	}

	httpReq, err := newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	requestID := httpReq.Header.Get(RequestIDHeader)

	start := time.Now()
	httpResp, err := t.roundTrip(httpReq, req.Options.Verify)
	duration := time.Since(start)
	if err != nil {
		t.logger.LogError(requestID, req.Method, httpReq.URL.String(), duration, err)
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		t.logger.LogError(requestID, req.Method, httpReq.URL.String(), duration, err)
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	t.logger.LogResponse(requestID, req.Method, httpReq.URL.String(), httpResp.StatusCode, duration)

	return &core.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
		Request:    req,
	}, nil
}

func (t *Transport) roundTrip(httpReq *http.Request, verify config.Verify) (*http.Response, error) {
	if t.handler != nil {
		// Handlers expect a server-side request, which always has a body
		if httpReq.Body == nil {
			httpReq.Body = http.NoBody
		}
		rec := httptest.NewRecorder()
		t.handler.ServeHTTP(rec, httpReq)
		if err := httpReq.Context().Err(); err != nil {
			return nil, err
		}
		return rec.Result(), nil
	}

	client, err := t.client(verify)
	if err != nil {
		return nil, err
	}
	return client.Do(httpReq)
}

// client returns the cached client for a TLS policy
func (t *Transport) client(verify config.Verify) (*http.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.clients[verify]; ok {
		return c, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	switch {
	case verify.Disabled:
		tlsConfig.InsecureSkipVerify = true
	case verify.CABundle != "":
		pem, err := os.ReadFile(verify.CABundle)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCABundle, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: no certificates in %s", ErrCABundle, verify.CABundle)
		}
		tlsConfig.RootCAs = pool
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	c := &http.Client{Transport: transport}
	t.clients[verify] = c
	return c, nil
}

// newHTTPRequest builds the wire request: query parameters, JSON body,
// credentials and headers
func newHTTPRequest(ctx context.Context, req *core.Request) (*http.Request, error) {
	target := req.URL
	if len(req.Params) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Params.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		buf, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Options.Headers {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get(RequestIDHeader) == "" {
		httpReq.Header.Set(RequestIDHeader, ulid.Make().String())
	}

	if auth := req.Options.Auth; auth != nil {
		if auth.Token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+auth.Token)
		} else if auth.Username != "" {
			httpReq.SetBasicAuth(auth.Username, auth.Password)
		}
	}
	return httpReq, nil
}
