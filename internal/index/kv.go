package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// KVGet returns the raw value for key, or "" when absent.
func (db *DB) KVGet(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: kv get: %w", err)
	}
	return value, nil
}

// KVSet stores a raw value under key.
func (db *DB) KVSet(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("index: kv set: %w", err)
	}
	return nil
}

// KVGetJSON unmarshals the stored value into v. A missing key leaves v
// untouched and returns false.
func (db *DB) KVGetJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, err := db.KVGet(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("index: kv decode %s: %w", key, err)
	}
	return true, nil
}

// KVSetJSON marshals v and stores it under key.
func (db *DB) KVSetJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("index: kv encode %s: %w", key, err)
	}
	return db.KVSet(ctx, key, string(data))
}
