package http

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// HTTPLogger writes one "[HTTP]" line per request when enabled. Answers
// of 400 and above are tagged [WARN].
type HTTPLogger struct {
	enabled bool
	out     *log.Logger
	mu      sync.RWMutex
}

// NewHTTPLogger creates a new HTTP logger writing to the standard logger
func NewHTTPLogger(enabled bool) *HTTPLogger {
	return &HTTPLogger{
		enabled: enabled,
		out:     log.Default(),
	}
}

// IsEnabled returns whether request logging is enabled
func (l *HTTPLogger) IsEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled
}

// SetEnabled enables or disables request logging
func (l *HTTPLogger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// SetOutput redirects log lines to w
func (l *HTTPLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = log.New(w, "", 0)
}

func (l *HTTPLogger) printf(format string, args ...any) {
	l.mu.RLock()
	out := l.out
	l.mu.RUnlock()
	out.Printf(format, args...)
}

// LogResponse logs a completed request
func (l *HTTPLogger) LogResponse(requestID, method, url string, status int, duration time.Duration) {
	if !l.IsEnabled() {
		return
	}
	if status >= 400 {
		l.printf("[HTTP] [%s] [%d] [WARN] %s %s (%s)", millis(duration), status, method, url, requestID)
		return
	}
	l.printf("[HTTP] [%s] [%d] %s %s (%s)", millis(duration), status, method, url, requestID)
}

// LogError logs a request that failed before an answer arrived
func (l *HTTPLogger) LogError(requestID, method, url string, duration time.Duration, err error) {
	if !l.IsEnabled() {
		return
	}
	l.printf("[HTTP] [%s] [ERROR] %s %s (%s) - %v", millis(duration), method, url, requestID, err)
}

func millis(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
}
