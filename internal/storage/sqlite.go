package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/lexiread/lexiread/internal/errs"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);`

// SQLite is a KV backed by a local SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get returns the stored values for the given keys. Missing keys are simply
// absent from the result map.
func (s *SQLite) Get(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM kv WHERE key IN ("+placeholders+")", args...)
	if err != nil {
		return nil, classifyStorage(err)
	}
	defer rows.Close()

	result := make(map[string][]byte, len(keys))
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, classifyStorage(err)
		}
		result[key] = value
	}
	return result, rows.Err()
}

// Set stores all items in one transaction.
func (s *SQLite) Set(ctx context.Context, items map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyStorage(err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO kv (key, value, updated_at) VALUES (?, ?, strftime('%s','now')) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at")
	if err != nil {
		return classifyStorage(err)
	}
	defer stmt.Close()

	for key, value := range items {
		if _, err := stmt.ExecContext(ctx, key, value); err != nil {
			return classifyStorage(err)
		}
	}
	return tx.Commit()
}

// Remove deletes the given keys. Removing an absent key is not an error.
func (s *SQLite) Remove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key IN ("+placeholders+")", args...)
	if err != nil {
		return classifyStorage(err)
	}
	return nil
}

// Clear removes all entries.
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv"); err != nil {
		return classifyStorage(err)
	}
	return nil
}

// BytesInUse reports the total size of stored values.
func (s *SQLite) BytesInUse(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT SUM(LENGTH(value)) FROM kv").Scan(&total)
	if err != nil {
		return 0, classifyStorage(err)
	}
	return total.Int64, nil
}

// classifyStorage normalizes driver errors. Disk-full and database-full
// conditions become the quota-exceeded kind so the cache can swallow them.
func classifyStorage(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "database or disk is full") || strings.Contains(msg, "disk I/O error") {
		return errs.New(errs.KindStorageQuotaExceeded, msg, false)
	}
	return errs.New(errs.KindProcessingFailed, "storage: "+msg, false)
}
