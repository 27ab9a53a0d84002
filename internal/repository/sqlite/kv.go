package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ltoupin/nexus-console/internal/repository"
)

// compile-time check that *DB implements repository.KVRepository
var _ repository.KVRepository = (*DB)(nil)

// Get reads a single key. The (value, ok, err) shape separates "key absent"
// from real failures — readers of this area must tolerate absence (fresh
// install, logged-out session) without treating it as an error.
func (db *DB) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key,
	).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("sqlite: getting kv %q: %w", key, err)
	}
	return value, true, nil
}

// Set writes a key, replacing any previous value. Last-writer-wins — there
// are no merge semantics anywhere in this area.
func (db *DB) Set(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting kv %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (db *DB) Delete(ctx context.Context, key string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("sqlite: deleting kv %q: %w", key, err)
	}
	return nil
}
