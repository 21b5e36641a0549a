// Package kpi provides read-only reporting over the dispatcher's SQLite
// event log: workflow throughput, success rate, blocked requests, and cache
// hit rate, rendered either styled for a terminal or as markdown.
package kpi

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Report aggregates the event log over a time window.
type Report struct {
	Window      time.Duration // zero means all time
	Dispatched  int
	Completed   int
	Failed      int
	Blocked     int
	CacheHits   int
	CacheMisses int
	ByCommand   map[string]int // dispatch counts per workflow command
}

// SuccessRate returns completed/dispatched in [0,1]; zero when nothing ran.
func (r Report) SuccessRate() float64 {
	if r.Dispatched == 0 {
		return 0
	}
	return float64(r.Completed) / float64(r.Dispatched)
}

// CacheHitRate returns hits/(hits+misses); zero when the cache was never
// consulted.
func (r Report) CacheHitRate() float64 {
	total := r.CacheHits + r.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(r.CacheHits) / float64(total)
}

// Reader provides read-only access to the dispatcher event log.
type Reader struct {
	db *sql.DB
}

// NewReader opens the runtime database in read-only mode so reporting never
// blocks the dispatcher.
func NewReader(dbPath string) (*Reader, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Reader{db: db}, nil
}

// NewReaderFromDB wraps an existing handle (used by tests and the dashboard,
// which already hold one).
func NewReaderFromDB(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// Close releases the database connection. Safe to call multiple times.
func (r *Reader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Build aggregates events into a Report. A zero window covers all time.
func (r *Reader) Build(ctx context.Context, window time.Duration) (Report, error) {
	rep := Report{
		Window:    window,
		ByCommand: make(map[string]int),
	}

	where := ""
	var args []any
	if window > 0 {
		where = " WHERE created_at >= datetime('now', ?)"
		args = append(args, fmt.Sprintf("-%d seconds", int(window.Seconds())))
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT type, command, COUNT(*) FROM events`+where+` GROUP BY type, command`, args...)
	if err != nil {
		return Report{}, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var evType string
		var command sql.NullString
		var count int
		if err := rows.Scan(&evType, &command, &count); err != nil {
			return Report{}, fmt.Errorf("scan event row: %w", err)
		}

		switch evType {
		case "dispatch":
			rep.Dispatched += count
			if command.Valid && command.String != "" {
				rep.ByCommand[command.String] += count
			}
		case "completed":
			rep.Completed += count
		case "failed":
			rep.Failed += count
		case "blocked":
			rep.Blocked += count
		case "cache_hit":
			rep.CacheHits += count
		case "cache_miss":
			rep.CacheMisses += count
		}
	}
	if err := rows.Err(); err != nil {
		return Report{}, fmt.Errorf("iterate event rows: %w", err)
	}
	return rep, nil
}

// RecentEvents returns the newest events, most recent first.
func (r *Reader) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, COALESCE(instance_id, ''), COALESCE(command, ''), COALESCE(payload, ''), created_at
		 FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Type, &e.InstanceID, &e.Command, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Event is a single row from the event log.
type Event struct {
	ID         int64
	Type       string
	InstanceID string
	Command    string
	Payload    string
	CreatedAt  string
}
