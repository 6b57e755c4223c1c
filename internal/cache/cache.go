// Package cache provides TTL caching for query results, keyed by a hash of
// the query. The cache is an explicit injected collaborator with a pluggable
// backing store, keeping the engines themselves stateless.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Store is a byte-level TTL store. Get only returns unexpired entries.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte, expiresAt time.Time) error
	EvictExpired() (int64, error)
}

// Cache serializes typed values into a Store with a fixed TTL.
type Cache struct {
	store Store
	ttl   time.Duration
	log   zerolog.Logger
}

// New creates a cache over the given store.
func New(store Store, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		store: store,
		ttl:   ttl,
		log:   log.With().Str("component", "cache").Logger(),
	}
}

// Key derives a stable cache key from any serializable query value.
func Key(prefix string, query interface{}) (string, error) {
	data, err := msgpack.Marshal(query)
	if err != nil {
		return "", fmt.Errorf("failed to serialize cache key input: %w", err)
	}
	sum := sha256.Sum256(data)
	return prefix + ":" + hex.EncodeToString(sum[:]), nil
}

// Get unmarshals a fresh cached value into out. A miss, an expired entry or
// a decode failure all report a miss; the cache never fails a query.
func (c *Cache) Get(key string, out interface{}) bool {
	data, ok, err := c.store.Get(key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return false
	}
	if !ok {
		return false
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to decode cached value")
		return false
	}
	return true
}

// Set stores a value with expiration = now + ttl. Failures are logged, not
// returned; a write miss only costs a recomputation later.
func (c *Cache) Set(key string, value interface{}) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to encode value for cache")
		return
	}
	if err := c.store.Set(key, data, time.Now().Add(c.ttl)); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// EvictExpired removes expired entries from the backing store.
func (c *Cache) EvictExpired() {
	deleted, err := c.store.EvictExpired()
	if err != nil {
		c.log.Error().Err(err).Msg("Cache eviction failed")
		return
	}
	if deleted > 0 {
		c.log.Info().Int64("deleted", deleted).Msg("Evicted expired cache entries")
	}
}
