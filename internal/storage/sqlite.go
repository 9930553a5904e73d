package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (namespace, key)
);
`

// SQLite implements Provider on a single SQLite table.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database file and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping sqlite: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Put upserts a value. The statement is atomic, so a failure keeps the old row.
func (s *SQLite) Put(ctx context.Context, namespace, key, value string) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO snapshots (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, namespace, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage: put %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Get returns the stored value for (namespace, key).
func (s *SQLite) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if namespace == "" {
		return "", false, ErrEmptyNamespace
	}
	var v string
	err := s.conn.QueryRowContext(ctx,
		`SELECT value FROM snapshots WHERE namespace = ? AND key = ?`, namespace, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: get %s/%s: %w", namespace, key, err)
	}
	return v, true, nil
}

// Delete removes (namespace, key).
func (s *SQLite) Delete(ctx context.Context, namespace, key string) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	if _, err := s.conn.ExecContext(ctx,
		`DELETE FROM snapshots WHERE namespace = ? AND key = ?`, namespace, key); err != nil {
		return fmt.Errorf("storage: delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// List returns every entry in namespace.
func (s *SQLite) List(ctx context.Context, namespace string) (map[string]string, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key, value FROM snapshots WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", namespace, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
