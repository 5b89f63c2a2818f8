// Package storage provides the local persistent key-value store shared by
// every repository. Each repository owns a disjoint namespace; values are
// JSON blobs, and a missing key decodes into the zero value so callers
// degrade to empty state instead of failing.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (namespace, key)
);
`

type Store struct {
	db *sql.DB
}

// Open creates or opens the store at path. The parent directory is created
// when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply store schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get decodes the value under (namespace, key) into dst and reports whether
// the key existed. dst is left untouched for missing keys.
func (s *Store) Get(ctx context.Context, namespace, key string, dst interface{}) (bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s/%s: %w", namespace, key, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s/%s: %w", namespace, key, err)
	}
	return true, nil
}

// Set stores value under (namespace, key), replacing any previous value.
func (s *Store) Set(ctx context.Context, namespace, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", namespace, key, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		namespace, key, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE namespace = ? AND key = ?`,
		namespace, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Keys lists the keys present in a namespace in insertion-stable order.
func (s *Store) Keys(ctx context.Context, namespace string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE namespace = ? ORDER BY rowid`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys in %s: %w", namespace, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key in %s: %w", namespace, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Values returns every raw JSON value stored in a namespace.
func (s *Store) Values(ctx context.Context, namespace string) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? ORDER BY rowid`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list values in %s: %w", namespace, err)
	}
	defer rows.Close()

	var values [][]byte
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan value in %s: %w", namespace, err)
		}
		values = append(values, raw)
	}
	return values, rows.Err()
}
