package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// sqliteDSNParams sets WAL, a busy timeout and synchronous=NORMAL on every connection.
const sqliteDSNParams = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// OpenSQLite opens the SQLite file at path, checks the connection and creates the schema.
// PRE: the "sqlite" driver is registered (modernc.org/sqlite)
// POST: Returns a ready TimedDB; on error nothing is left open
func OpenSQLite(ctx context.Context, path string, log *zap.Logger, slowQuery time.Duration) (*TimedDB, error) {
	db, err := sql.Open("sqlite", path+sqliteDSNParams)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	timed := NewTimedDB(db, log, slowQuery)
	if err := timed.PingContext(ctx); err != nil {
		timed.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if err := InitDB(db); err != nil {
		timed.Close()
		return nil, err
	}
	return timed, nil
}

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Records are addressed by their structured key; empty strings stand in for
	// components a record kind does not use so the primary key stays NOT NULL.
	schema := `
	CREATE TABLE IF NOT EXISTS calendar_record (
		scope TEXT NOT NULL,
		record TEXT NOT NULL,
		age_group_id TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (scope, record, age_group_id, category)
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
