package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// SQLiteStore keeps the event log in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS event_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	kind TEXT NOT NULL,
	value TEXT
);
CREATE INDEX IF NOT EXISTS idx_event_log_kind_ts ON event_log(kind, timestamp DESC);
`

// OpenSQLite opens (creating if needed) the database at path and ensures
// the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrStorage, err)
	}

	// Single writer; the report job shares the handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init schema: %v", ErrStorage, err)
	}

	return &SQLiteStore{db: db}, nil
}

// Record appends one event.
func (s *SQLiteStore) Record(ctx context.Context, kind Kind, at time.Time, value string) error {
	var v sql.NullString
	if value != "" {
		v = sql.NullString{String: value, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_log (timestamp, kind, value) VALUES (?, ?, ?)`,
		at.Unix(), string(kind), v,
	)
	if err != nil {
		return fmt.Errorf("%w: record %s: %v", ErrStorage, kind, err)
	}
	return nil
}

// Summary counts door and alarm events in (now-period, now] and finds the
// latest startup.
func (s *SQLiteStore) Summary(ctx context.Context, now time.Time, period time.Duration) (Summary, error) {
	since := now.Add(-period)
	sum := Summary{Since: since}

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM event_log
		 WHERE timestamp > ? AND timestamp <= ? AND kind IN (?, ?, ?)
		 GROUP BY kind`,
		since.Unix(), now.Unix(),
		string(KindDoorOpen), string(KindDoorClose), string(KindAlarmTriggered),
	)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: count events: %v", ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return Summary{}, fmt.Errorf("%w: scan counts: %v", ErrStorage, err)
		}
		switch Kind(kind) {
		case KindDoorOpen:
			sum.Opens = count
		case KindDoorClose:
			sum.Closes = count
		case KindAlarmTriggered:
			sum.Alarms = count
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("%w: iterate counts: %v", ErrStorage, err)
	}

	var last sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT MAX(timestamp) FROM event_log WHERE kind = ?`, string(KindStartup),
	).Scan(&last)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: last startup: %v", ErrStorage, err)
	}
	if last.Valid {
		sum.LastStartup = time.Unix(last.Int64, 0).In(now.Location())
	}

	return sum, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
