package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteKV implements KV using the calendar_record table.
type SQLiteKV struct {
	db  SQLDB
	now func() time.Time
}

// Compile-time check that *SQLiteKV satisfies KV.
var _ KV = (*SQLiteKV)(nil)

// NewSQLiteKV creates a KV backed by SQLite.
// PRE: InitDB has been run on the underlying database
func NewSQLiteKV(db SQLDB) *SQLiteKV {
	return &SQLiteKV{db: db, now: time.Now}
}

// Get retrieves the raw value stored under key.
// PRE: key has a scope and record name
// POST: Returns ErrNotFound when no row exists
// INVARIANT: Store state is not mutated
func (s *SQLiteKV) Get(ctx context.Context, key RecordKey) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value
		FROM calendar_record
		WHERE scope = ? AND record = ? AND age_group_id = ? AND category = ?
	`, key.Scope, key.Record, key.AgeGroupID, key.Category).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get calendar_record: %w", err)
	}
	return value, nil
}

// Apply runs every op inside one transaction.
// PRE: every op key has a scope and record name
// POST: Either all ops are persisted or none are
func (s *SQLiteKV) Apply(ctx context.Context, ops ...Op) error {
	for _, op := range ops {
		if err := op.Key.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	updatedAt := s.now().UTC().Format(time.RFC3339)
	for _, op := range ops {
		k := op.Key
		if op.Delete {
			_, err = tx.ExecContext(ctx, `
				DELETE FROM calendar_record
				WHERE scope = ? AND record = ? AND age_group_id = ? AND category = ?
			`, k.Scope, k.Record, k.AgeGroupID, k.Category)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO calendar_record (scope, record, age_group_id, category, value, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(scope, record, age_group_id, category) DO UPDATE SET
					value=excluded.value,
					updated_at=excluded.updated_at
			`, k.Scope, k.Record, k.AgeGroupID, k.Category, op.Value, updatedAt)
		}
		if err != nil {
			return fmt.Errorf("apply calendar_record %s: %w", k.Record, err)
		}
	}

	return tx.Commit()
}
