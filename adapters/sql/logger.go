package sql

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"
)

// SQLLogger writes one "[SQL]" line per statement when enabled
type SQLLogger struct {
	enabled bool
	out     *log.Logger
	mu      sync.RWMutex
}

// NewSQLLogger creates a new SQL logger writing to the standard logger
func NewSQLLogger(enabled bool) *SQLLogger {
	return &SQLLogger{
		enabled: enabled,
		out:     log.Default(),
	}
}

// IsEnabled returns whether SQL logging is enabled
func (l *SQLLogger) IsEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled
}

// SetEnabled enables or disables SQL logging
func (l *SQLLogger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// SetOutput redirects log lines to w
func (l *SQLLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = log.New(w, "", 0)
}

func (l *SQLLogger) printf(format string, args ...any) {
	l.mu.RLock()
	out := l.out
	l.mu.RUnlock()
	out.Printf(format, args...)
}

// LogQuery logs a SELECT with its execution time and row count
func (l *SQLLogger) LogQuery(query string, args []any, duration time.Duration, rowCount int) {
	if !l.IsEnabled() {
		return
	}
	l.printf("[SQL] [%s] [rows:%d] %s %s", millis(duration), rowCount, formatQuery(query), formatArgs(args))
}

// LogExec logs a write with its execution time and affected rows
func (l *SQLLogger) LogExec(query string, args []any, duration time.Duration, result sql.Result) {
	if !l.IsEnabled() {
		return
	}

	rowsAffected := int64(-1)
	if result != nil {
		if affected, err := result.RowsAffected(); err == nil {
			rowsAffected = affected
		}
	}

	if rowsAffected >= 0 {
		l.printf("[SQL] [%s] [rows:%d] %s %s", millis(duration), rowsAffected, formatQuery(query), formatArgs(args))
		return
	}
	l.printf("[SQL] [%s] %s %s", millis(duration), formatQuery(query), formatArgs(args))
}

// LogError logs a statement that failed
func (l *SQLLogger) LogError(query string, args []any, duration time.Duration, err error) {
	if !l.IsEnabled() {
		return
	}
	l.printf("[SQL] [%s] [ERROR] %s %s - %v", millis(duration), formatQuery(query), formatArgs(args), err)
}

func millis(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
}

// formatQuery collapses whitespace so multi-line statements fit on one line
func formatQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// formatArgs formats the statement arguments for logging
func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}

	formatted := make([]string, 0, len(args))
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			formatted = append(formatted, fmt.Sprintf("%q", truncate(v, 120)))
		case nil:
			formatted = append(formatted, "NULL")
		default:
			formatted = append(formatted, fmt.Sprintf("%v", v))
		}
	}

	return fmt.Sprintf("[Args: [%s]]", strings.Join(formatted, ", "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
