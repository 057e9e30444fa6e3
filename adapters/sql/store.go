package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iancoleman/strcase"
	_ "github.com/mattn/go-sqlite3"

	"github.com/preslavrachev/nailgun/core"
)

var (
	// ErrNotFound is returned when a record or task does not exist
	ErrNotFound = errors.New("record not found")
	// ErrInvalidQuery is returned for search expressions or orderings the store cannot run
	ErrInvalidQuery = errors.New("invalid query")
)

// Record is one stored document. The id is always present under "id".
type Record map[string]any

// ID returns the record id as an int64, or the raw value for task records
func (r Record) ID() any {
	return r["id"]
}

// Store keeps entity documents in SQLite, one table per API collection,
// each row holding the JSON document of one record.
type Store struct {
	db     *sql.DB
	logger *SQLLogger

	mu     sync.Mutex
	tables map[string]bool
}

// New creates a store on db
func New(db *sql.DB) *Store {
	return &Store{
		db:     db,
		logger: NewSQLLogger(false), // Default to disabled
		tables: make(map[string]bool),
	}
}

// NewWithDebug creates a store with SQL debug logging enabled
func NewWithDebug(db *sql.DB, debugEnabled bool) *Store {
	s := New(db)
	s.logger.SetEnabled(debugEnabled)
	return s
}

// Open opens a SQLite database at dsn and prepares the task table. Use
// ":memory:" for a throwaway store.
func Open(ctx context.Context, dsn string, debugEnabled bool) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases alive and serialises writers
	db.SetMaxOpenConns(1)

	s := NewWithDebug(db, debugEnabled)
	if err := s.migrateTasks(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// SetDebugEnabled enables or disables SQL debug logging
func (s *Store) SetDebugEnabled(enabled bool) {
	s.logger.SetEnabled(enabled)
}

// Collection returns the collection a kind is stored in: the last segment of
// its API path. Kinds sharing an endpoint share a collection and its ids.
func Collection(kind *core.Kind) string {
	path := strings.TrimRight(kind.APIPath, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return strcase.ToSnake(path)
}

var identifier = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// loggedQueryContext wraps QueryContext with logging
func (s *Store) loggedQueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	duration := time.Since(start)

	if err != nil {
		s.logger.LogError(query, args, duration, err)
		return nil, err
	}

	// The row count is logged after scanning in the calling function
	return rows, nil
}

// loggedExecContext wraps ExecContext with logging
func (s *Store) loggedExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := s.db.ExecContext(ctx, query, args...)
	duration := time.Since(start)

	if err != nil {
		s.logger.LogError(query, args, duration, err)
		return nil, err
	}

	s.logger.LogExec(query, args, duration, result)
	return result, nil
}

// ensureTable creates the table of a collection on first use
func (s *Store) ensureTable(ctx context.Context, collection string) error {
	if !identifier.MatchString(collection) {
		return fmt.Errorf("%w: collection name %q", ErrInvalidQuery, collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables[collection] {
		return nil
	}

	queryStr := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`, collection)
	if _, err := s.loggedExecContext(ctx, queryStr); err != nil {
		return fmt.Errorf("failed to create table %s: %w", collection, err)
	}
	s.tables[collection] = true
	return nil
}

// Create stores a new record and returns it with its id and timestamps
func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (Record, error) {
	if err := s.ensureTable(ctx, collection); err != nil {
		return nil, err
	}

	doc := expandReferences(data)
	delete(doc, "id")
	now := timestamp()
	doc["created_at"] = now
	doc["updated_at"] = now

	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	queryStr := fmt.Sprintf("INSERT INTO %s (data, created_at, updated_at) VALUES (?, ?, ?)", collection)
	result, err := s.loggedExecContext(ctx, queryStr, string(buf), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new id: %w", err)
	}

	doc["id"] = id
	return Record(doc), nil
}

// Get retrieves a single record by its id
func (s *Store) Get(ctx context.Context, collection string, id int64) (Record, error) {
	if err := s.ensureTable(ctx, collection); err != nil {
		return nil, err
	}

	queryStr := fmt.Sprintf("SELECT id, data FROM %s WHERE id = ?", collection)

	start := time.Now()
	rows, err := s.loggedQueryContext(ctx, queryStr, id)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		s.logger.LogQuery(queryStr, []any{id}, time.Since(start), 0)
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error reading row: %w", err)
		}
		return nil, fmt.Errorf("%s %d: %w", collection, id, ErrNotFound)
	}

	record, err := scanRecord(rows)
	if err != nil {
		return nil, err
	}
	s.logger.LogQuery(queryStr, []any{id}, time.Since(start), 1)
	return record, nil
}

// Update merges data into an existing record. Keys set to nil are stored
// as null, not removed.
func (s *Store) Update(ctx context.Context, collection string, id int64, data map[string]any) (Record, error) {
	// Check if record exists first
	existing, err := s.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	for k, v := range expandReferences(data) {
		if k == "id" || k == "created_at" {
			continue
		}
		existing[k] = v
	}
	now := timestamp()
	existing["updated_at"] = now

	doc := make(map[string]any, len(existing))
	for k, v := range existing {
		if k != "id" {
			doc[k] = v
		}
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	queryStr := fmt.Sprintf("UPDATE %s SET data = ?, updated_at = ? WHERE id = ?", collection)
	if _, err := s.loggedExecContext(ctx, queryStr, string(buf), now, id); err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}
	return existing, nil
}

// Delete removes a record by id and returns what was stored
func (s *Store) Delete(ctx context.Context, collection string, id int64) (Record, error) {
	// Check if record exists first
	existing, err := s.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	queryStr := fmt.Sprintf("DELETE FROM %s WHERE id = ?", collection)
	if _, err := s.loggedExecContext(ctx, queryStr, id); err != nil {
		return nil, fmt.Errorf("failed to delete record: %w", err)
	}
	return existing, nil
}

// Count returns the number of records in a collection
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	if err := s.ensureTable(ctx, collection); err != nil {
		return 0, err
	}

	queryStr := fmt.Sprintf("SELECT COUNT(*) FROM %s", collection)
	var count int64
	start := time.Now()
	err := s.db.QueryRowContext(ctx, queryStr).Scan(&count)
	duration := time.Since(start)
	if err != nil {
		s.logger.LogError(queryStr, nil, duration, err)
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	s.logger.LogQuery(queryStr, nil, duration, 1)
	return count, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var id int64
	var data string
	if err := rows.Scan(&id, &data); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	record := Record{}
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode record %d: %w", id, err)
	}
	record["id"] = id
	return record, nil
}

// expandReferences copies data and adds a nested {"id": n} object for every
// <f>_id key, the way the API renders references
func expandReferences(data map[string]any) map[string]any {
	doc := make(map[string]any, len(data))
	for k, v := range data {
		doc[k] = v
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		base, ok := strings.CutSuffix(k, "_id")
		if !ok || base == "" {
			continue
		}
		if v := data[k]; v == nil {
			doc[base] = nil
		} else if _, exists := data[base]; !exists {
			doc[base] = map[string]any{"id": v}
		}
	}
	return doc
}

func timestamp() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05 UTC")
}

func newTaskID() string {
	return uuid.NewString()
}
