package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteJournal implements Journal using SQLite
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal creates or opens a batch journal at dbPath
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=60000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; one connection avoids SQLITE_BUSY entirely.
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{db: db}
	if err := j.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return j, nil
}

func (j *SQLiteJournal) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS batches (
		batch_no INTEGER PRIMARY KEY,
		message_size INTEGER,
		oldest_dt TEXT NOT NULL,
		next_cursor TEXT NOT NULL,
		fetched_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batches_fetched_at ON batches(fetched_at);
	`

	_, err := j.db.Exec(query)
	return err
}

// Record stores or updates the entry for its batch number
func (j *SQLiteJournal) Record(e *Entry) error {
	if e.FetchedAt.IsZero() {
		e.FetchedAt = time.Now()
	}

	var size sql.NullInt64
	if e.MessageSize != nil {
		size = sql.NullInt64{Int64: int64(*e.MessageSize), Valid: true}
	}

	query := `
	INSERT INTO batches (batch_no, message_size, oldest_dt, next_cursor, fetched_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(batch_no) DO UPDATE SET
		message_size = excluded.message_size,
		oldest_dt = excluded.oldest_dt,
		next_cursor = excluded.next_cursor,
		fetched_at = excluded.fetched_at
	`

	if _, err := j.db.Exec(query, e.BatchNo, size, e.OldestDT, e.NextCursor, e.FetchedAt); err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}

	return nil
}

// Entries returns all recorded batches in batch order
func (j *SQLiteJournal) Entries() ([]*Entry, error) {
	query := `
	SELECT batch_no, message_size, oldest_dt, next_cursor, fetched_at
	FROM batches ORDER BY batch_no ASC
	`

	rows, err := j.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var size sql.NullInt64

		if err := rows.Scan(&e.BatchNo, &size, &e.OldestDT, &e.NextCursor, &e.FetchedAt); err != nil {
			return nil, err
		}
		if size.Valid {
			n := int(size.Int64)
			e.MessageSize = &n
		}

		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// Close closes the database connection
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
