package cache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/precedent/internal/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS query_cache (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_cache_expires ON query_cache(expires_at);
`

// SQLStore persists cache entries in the cache-profile SQLite database, so
// warm results survive restarts.
type SQLStore struct {
	db *database.DB
}

// NewSQLStore creates the store and ensures the cache table exists.
func NewSQLStore(db *database.DB) (*SQLStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Get returns the value only if expires_at is in the future.
func (s *SQLStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow(
		"SELECT value FROM query_cache WHERE key = ? AND expires_at > ?",
		key, time.Now().Unix(),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return value, true, nil
}

// Set upserts a value with its expiration.
func (s *SQLStore) Set(key string, value []byte, expiresAt time.Time) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO query_cache (key, value, expires_at) VALUES (?, ?, ?)",
		key, value, expiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// EvictExpired removes rows whose expiration has passed.
func (s *SQLStore) EvictExpired() (int64, error) {
	result, err := s.db.Exec("DELETE FROM query_cache WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
