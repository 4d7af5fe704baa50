// Package journal keeps an append-only local record of heartbeats the store
// accepted. It is not a retry queue: rows are written only after a
// successful send, and merged submissions appear as fresh rows flagged as
// updates to the previous record.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/offlinefirst/inputpulse/pkg/heartbeat"
)

// Journal persists emitted heartbeats to a local SQLite database.
type Journal struct {
	db        *sql.DB
	sessionID string
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db, sessionID: uuid.NewString()}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS heartbeats(
	  id          TEXT    PRIMARY KEY,
	  session_id  TEXT    NOT NULL,
	  bucket_id   TEXT    NOT NULL,
	  ts_utc      INTEGER NOT NULL,
	  ts_iso      TEXT    NOT NULL,
	  duration_ms INTEGER NOT NULL,
	  presses     INTEGER NOT NULL,
	  clicks      INTEGER NOT NULL,
	  delta_x     REAL    NOT NULL,
	  delta_y     REAL    NOT NULL,
	  scroll_x    REAL    NOT NULL,
	  scroll_y    REAL    NOT NULL,
	  merged      INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_heartbeats_ts     ON heartbeats(ts_utc);
	CREATE INDEX IF NOT EXISTS idx_heartbeats_bucket ON heartbeats(bucket_id);
	`)
	if err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends one accepted heartbeat. Implements heartbeat.Recorder.
func (j *Journal) Record(ctx context.Context, bucketID string, hb heartbeat.Heartbeat, merged bool) error {
	ts := hb.Timestamp.UTC()
	_, err := j.db.ExecContext(ctx, `
	INSERT INTO heartbeats(id, session_id, bucket_id, ts_utc, ts_iso, duration_ms,
	                       presses, clicks, delta_x, delta_y, scroll_x, scroll_y, merged)
	VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		uuid.NewString(), j.sessionID, bucketID,
		ts.UnixMilli(), ts.Format(time.RFC3339Nano), hb.Duration.Milliseconds(),
		hb.Data.Presses, hb.Data.Clicks,
		hb.Data.DeltaX, hb.Data.DeltaY, hb.Data.ScrollX, hb.Data.ScrollY,
		merged)
	if err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}
	return nil
}

// Entry is one journalled heartbeat row.
type Entry struct {
	BucketID  string
	SessionID string
	Timestamp time.Time
	Duration  time.Duration
	Data      heartbeat.Data
	Merged    bool
}

// Recent returns up to limit entries for a bucket, newest first.
func (j *Journal) Recent(ctx context.Context, bucketID string, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
	SELECT bucket_id, session_id, ts_utc, duration_ms,
	       presses, clicks, delta_x, delta_y, scroll_x, scroll_y, merged
	FROM heartbeats WHERE bucket_id = ?
	ORDER BY ts_utc DESC, rowid DESC LIMIT ?`, bucketID, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			tsMillis  int64
			durMillis int64
		)
		if err := rows.Scan(&entry.BucketID, &entry.SessionID, &tsMillis, &durMillis,
			&entry.Data.Presses, &entry.Data.Clicks,
			&entry.Data.DeltaX, &entry.Data.DeltaY,
			&entry.Data.ScrollX, &entry.Data.ScrollY, &entry.Merged); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		entry.Timestamp = time.UnixMilli(tsMillis).UTC()
		entry.Duration = time.Duration(durMillis) * time.Millisecond
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal rows: %w", err)
	}
	return entries, nil
}
