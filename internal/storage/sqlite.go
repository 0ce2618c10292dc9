package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/lo"

	"github.com/starford/redisnotes/internal/apperr"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS members (
	key    TEXT NOT NULL,
	member TEXT NOT NULL,
	UNIQUE(key, member)
);

CREATE INDEX IF NOT EXISTS idx_members_key ON members(key);
CREATE INDEX IF NOT EXISTS idx_members_member ON members(member);
`

// SQLite implements Store on a local SQLite database. Patterns are matched
// with GLOB, whose * wildcard follows the same convention as Redis MATCH.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping sqlite: %w", err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply sqlite schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Get returns the value at key.
func (s *SQLite) Get(ctx context.Context, key string) (string, error) {
	var val string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: sqlite get %s: %w", key, err)
	}
	return val, nil
}

// Set upserts value at key.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	return s.Atomic(ctx, func(tx Tx) error {
		tx.Set(key, value)
		return nil
	})
}

// Delete removes keys from both tables.
func (s *SQLite) Delete(ctx context.Context, keys ...string) error {
	return s.Atomic(ctx, func(tx Tx) error {
		tx.Delete(keys...)
		return nil
	})
}

// Scan returns plain and set keys matching pattern.
func (s *SQLite) Scan(ctx context.Context, pattern string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT key FROM kv WHERE key GLOB ?1
		UNION
		SELECT DISTINCT key FROM members WHERE key GLOB ?1
		ORDER BY key
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("storage: sqlite scan %s: %w", pattern, err)
	}
	return scanStrings(rows)
}

// Members returns the members of the set at key.
func (s *SQLite) Members(ctx context.Context, key string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT member FROM members WHERE key = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("storage: sqlite members %s: %w", key, err)
	}
	return scanStrings(rows)
}

// Intersect returns members present in every set at keys.
func (s *SQLite) Intersect(ctx context.Context, keys ...string) ([]string, error) {
	keys = lo.Uniq(keys)
	if len(keys) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		args = append(args, k)
	}
	args = append(args, len(keys))
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	rows, err := s.conn.QueryContext(ctx, `
		SELECT member FROM members
		WHERE key IN (`+placeholders+`)
		GROUP BY member
		HAVING COUNT(DISTINCT key) = ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: sqlite intersect: %w", err)
	}
	return scanStrings(rows)
}

// Atomic replays the queued writes inside one SQL transaction.
func (s *SQLite) Atomic(ctx context.Context, fn func(Tx) error) error {
	b, err := collect(fn)
	if err != nil {
		return err
	}
	if len(b.ops) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, o := range b.ops {
		if err := applySQL(ctx, tx, o); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func applySQL(ctx context.Context, tx *sql.Tx, o op) error {
	switch o.kind {
	case opSet:
		// A key holds either a value or a set, never both.
		if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE key = ?`, o.key); err != nil {
			return fmt.Errorf("storage: sqlite set %s: %w", o.key, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, o.key, o.value); err != nil {
			return fmt.Errorf("storage: sqlite set %s: %w", o.key, err)
		}
	case opDelete:
		for _, k := range o.keys {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, k); err != nil {
				return fmt.Errorf("storage: sqlite delete %s: %w", k, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE key = ?`, k); err != nil {
				return fmt.Errorf("storage: sqlite delete %s: %w", k, err)
			}
		}
	case opAddMember:
		for _, m := range o.members {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO members (key, member) VALUES (?, ?)`, o.key, m); err != nil {
				return fmt.Errorf("storage: sqlite add member %s: %w", o.key, err)
			}
		}
	case opRemoveMember:
		for _, m := range o.members {
			if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE key = ? AND member = ?`, o.key, m); err != nil {
				return fmt.Errorf("storage: sqlite remove member %s: %w", o.key, err)
			}
		}
	}
	return nil
}

// Ping checks the connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Redis)(nil)
)
