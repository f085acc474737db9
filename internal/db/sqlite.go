package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS slots (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// ErrNoValue is returned by Get when the key holds nothing.
var ErrNoValue = errors.New("db: no value for key")

// Database is a single-table key-value store. Each key is one durable slot
// and every write replaces the whole value in a single statement.
type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (db *Database) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := db.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoValue
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %q: %w", key, err)
	}
	return value, nil
}

func (db *Database) Set(ctx context.Context, key string, value []byte) error {
	query := `
        INSERT INTO slots (key, value, updated_at)
        VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

	if _, err := db.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to write slot %q: %w", key, err)
	}
	return nil
}

func (db *Database) Delete(ctx context.Context, key string) error {
	if _, err := db.db.ExecContext(ctx, `DELETE FROM slots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete slot %q: %w", key, err)
	}
	return nil
}

func (db *Database) Close() error {
	return db.db.Close()
}
