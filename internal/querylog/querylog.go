package querylog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Entry is one logged plan request.
type Entry struct {
	ID            string
	ReceivedAt    time.Time
	RequestID     string
	Query         string
	Status        int
	Itineraries   int
	RoutingErrors string
	Duration      time.Duration
}

// Store writes entries to SQLite. Writes are serialized; SQLite allows one writer.
type Store struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open query log: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping query log: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create query log schema: %w", err)
	}
	log.Printf("query log: %s", path)
	return &Store{conn: conn}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.conn.Close() }

// Record stores e. A missing ID or timestamp is filled in.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now()
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO plan_queries
			(id, received_at_utc, request_id, query, status, itineraries, routing_errors, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.ReceivedAt.UTC().Format(time.RFC3339Nano),
		e.RequestID,
		e.Query,
		e.Status,
		e.Itineraries,
		e.RoutingErrors,
		e.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record query %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, received_at_utc, request_id, query, status, itineraries, routing_errors, duration_ms
		FROM plan_queries
		ORDER BY received_at_utc DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			receivedAt string
			requestID  sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&e.ID, &receivedAt, &requestID, &e.Query, &e.Status, &e.Itineraries, &e.RoutingErrors, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan query log row: %w", err)
		}
		e.ReceivedAt, err = time.Parse(time.RFC3339Nano, receivedAt)
		if err != nil {
			return nil, fmt.Errorf("query log row %s: %w", e.ID, err)
		}
		e.RequestID = requestID.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
