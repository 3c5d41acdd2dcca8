// Package cache provides the small key-value layer used to memoize catalog
// lookups. Two connectors exist: an in-process ristretto cache (the default)
// and redis for deployments that share lookups across restarts.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Connector is a minimal key-value store with per-key TTL.
type Connector interface {
	// Get retrieves a value by key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores a value. A zero TTL means the connector's default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases connector resources.
	Close() error
}

// Cache wraps a Connector with JSON helpers and a key prefix.
type Cache struct {
	connector Connector
	keyPrefix string
}

// New creates a cache over the given connector.
func New(connector Connector, keyPrefix string) *Cache {
	return &Cache{connector: connector, keyPrefix: keyPrefix}
}

func (c *Cache) formatKey(key string) string {
	if c.keyPrefix == "" {
		return key
	}
	return c.keyPrefix + ":" + key
}

// GetJSON retrieves and unmarshals a cached value; ok is false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, ok, err := c.connector.Get(ctx, c.formatKey(key))
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache entry %s: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals and stores a value.
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling cache entry %s: %w", key, err)
	}
	return c.connector.Set(ctx, c.formatKey(key), data, ttl)
}

// Close closes the underlying connector.
func (c *Cache) Close() error {
	return c.connector.Close()
}

// Station ids are immutable for the process lifetime, so search results can
// live long; a day bounds memory on the redis side.
const StationSearchTTL = 24 * time.Hour

// Key patterns for consistent naming.
const (
	StationSearchKeyPattern = "station-search:%s" // station-search:<normalized name>
)
