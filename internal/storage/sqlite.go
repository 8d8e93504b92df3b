package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	sqliteSchema = `CREATE TABLE IF NOT EXISTS kv_store (
	key TEXT PRIMARY KEY,
	value TEXT,
	updated_at TEXT DEFAULT CURRENT_TIMESTAMP
)`
	sqliteUpsert = `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, datetime('now'))
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	sqliteDelete = `DELETE FROM kv_store WHERE key = ?`
)

// SQLiteStore keeps entries in a single kv_store table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// kv_store table exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kv_store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, keys []string) (map[string]*string, error) {
	query := "SELECT key, value FROM kv_store"
	args := make([]any, 0, len(keys))
	data := make(map[string]*string, len(keys))

	if len(keys) > 0 {
		query += " WHERE key IN (" + strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",") + ")"
		for _, k := range keys {
			args = append(args, k)
			data[k] = nil
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select kv_store: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan kv_store: %w", err)
		}
		if value.Valid {
			v := value.String
			data[key] = &v
		} else {
			data[key] = nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kv_store: %w", err)
	}
	return data, nil
}

// Upsert implements Store. All entries are written in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, entries map[string]string) error {
	return s.batch(ctx, sqliteUpsert, func(stmt *sql.Stmt) error {
		for k, v := range entries {
			if _, err := stmt.ExecContext(ctx, k, v); err != nil {
				return fmt.Errorf("upsert %q: %w", k, err)
			}
		}
		return nil
	})
}

// Delete implements Store. All keys are removed in one transaction.
func (s *SQLiteStore) Delete(ctx context.Context, keys []string) error {
	return s.batch(ctx, sqliteDelete, func(stmt *sql.Stmt) error {
		for _, k := range keys {
			if _, err := stmt.ExecContext(ctx, k); err != nil {
				return fmt.Errorf("delete %q: %w", k, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) batch(ctx context.Context, query string, fn func(*sql.Stmt) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	if err := fn(stmt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
