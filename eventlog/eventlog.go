// Package eventlog persists stream events to a local SQLite database and
// produces per-stream summary reports from them.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // cgo-free sqlite driver registered as 'sqlite'
)

// Log is a handle to the events database. Safe for concurrent use; the
// database/sql pool serializes writers.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for tests.
func Open(ctx context.Context, path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open event log %s: %w", path, err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent Record calls.
	db.SetMaxOpenConns(1)
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Log{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    event_type TEXT NOT NULL,
    username TEXT NOT NULL DEFAULT '',
    data TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_type_time ON events(event_type, created_at);
CREATE INDEX IF NOT EXISTS idx_events_time ON events(created_at);
`)
	if err != nil {
		return fmt.Errorf("event log migrate: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (l *Log) Close() error { return l.db.Close() }

// Ping reports whether the database is reachable.
func (l *Log) Ping(ctx context.Context) error { return l.db.PingContext(ctx) }

// Record appends one event. data is marshaled to JSON; a nil data stores an
// empty object. Failures are logged, never surfaced: the event log must not
// take the stream down.
func (l *Log) Record(eventType, username string, data any) {
	payload := "{}"
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = string(b)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO events (event_type, username, data, created_at) VALUES (?, ?, ?, ?)`,
		eventType, username, payload, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		slog.Warn("event log write failed", slog.String("event_type", eventType), slog.Any("error", err))
	}
}

// Entry is one stored event.
type Entry struct {
	ID        int64     `json:"id"`
	EventType string    `json:"event_type"`
	Username  string    `json:"username"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// Recent returns up to limit events since the cutoff, newest first.
func (l *Log) Recent(ctx context.Context, since time.Time, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, event_type, username, data, created_at FROM events
		 WHERE created_at >= ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		since.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &e.EventType, &e.Username, &e.Data, &ts); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Report summarizes stream activity since a cutoff.
type Report struct {
	Since          time.Time        `json:"since"`
	GeneratedAt    time.Time        `json:"generated_at"`
	EventCounts    map[string]int   `json:"event_counts"`
	TopChatters    []NameCount      `json:"top_chatters"`
	NewFollowers   []string         `json:"new_followers"`
	SoundsPlayed   []NameCount      `json:"sounds_played"`
	ChaosTriggered []NameCount      `json:"chaos_triggered"`
	Timeline       []TimelineBucket `json:"timeline"`
}

// NameCount pairs a label with an occurrence count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TimelineBucket is activity within one five-minute slot.
type TimelineBucket struct {
	Start  time.Time `json:"start"`
	Events int       `json:"events"`
}

// BuildReport aggregates events since the cutoff into a stream report.
func (l *Log) BuildReport(ctx context.Context, since time.Time) (*Report, error) {
	rep := &Report{
		Since:       since,
		GeneratedAt: time.Now().UTC(),
		EventCounts: map[string]int{},
	}
	cutoff := since.UTC().Format(time.RFC3339)

	rows, err := l.db.QueryContext(ctx,
		`SELECT event_type, COUNT(*) FROM events WHERE created_at >= ? GROUP BY event_type`, cutoff)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			rows.Close()
			return nil, err
		}
		rep.EventCounts[typ] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rep.TopChatters, err = l.countBy(ctx, cutoff, "chat_message", "username", 10)
	if err != nil {
		return nil, err
	}
	rep.SoundsPlayed, err = l.countBy(ctx, cutoff, "soundboard_play", "json_extract(data, '$.slug')", 0)
	if err != nil {
		return nil, err
	}
	rep.ChaosTriggered, err = l.countBy(ctx, cutoff, "chaos_trigger", "json_extract(data, '$.effect')", 0)
	if err != nil {
		return nil, err
	}

	rows, err = l.db.QueryContext(ctx,
		`SELECT username FROM events WHERE event_type = 'follower' AND created_at >= ? ORDER BY created_at, id`, cutoff)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		rep.NewFollowers = append(rep.NewFollowers, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rep.Timeline, err = l.timeline(ctx, since)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (l *Log) countBy(ctx context.Context, cutoff, eventType, keyExpr string, limit int) ([]NameCount, error) {
	q := fmt.Sprintf(
		`SELECT COALESCE(%s, ''), COUNT(*) FROM events WHERE event_type = ? AND created_at >= ?
		 GROUP BY 1 ORDER BY 2 DESC`, keyExpr)
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := l.db.QueryContext(ctx, q, eventType, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []NameCount
	for rows.Next() {
		var nc NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, err
		}
		if nc.Name != "" {
			out = append(out, nc)
		}
	}
	return out, rows.Err()
}

func (l *Log) timeline(ctx context.Context, since time.Time) ([]TimelineBucket, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT created_at FROM events WHERE created_at >= ? ORDER BY created_at`,
		since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	const bucket = 5 * time.Minute
	var out []TimelineBucket
	for rows.Next() {
		var ts string
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		at, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			continue
		}
		start := at.Truncate(bucket)
		if n := len(out); n > 0 && out[n-1].Start.Equal(start) {
			out[n-1].Events++
			continue
		}
		out = append(out, TimelineBucket{Start: start, Events: 1})
	}
	return out, rows.Err()
}
