package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// MemoryConnector is an in-process connector backed by ristretto.
type MemoryConnector struct {
	store      *ristretto.Cache[string, []byte]
	defaultTTL time.Duration
}

// NewMemoryConnector creates an in-process cache sized for catalog lookup
// memoization.
func NewMemoryConnector(defaultTTL time.Duration) (*MemoryConnector, error) {
	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 100_000,
		MaxCost:     16 << 20, // 16 MiB
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating ristretto cache: %w", err)
	}
	return &MemoryConnector{store: store, defaultTTL: defaultTTL}, nil
}

// Get retrieves a value by key.
func (m *MemoryConnector) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.store.Get(key)
	return value, ok, nil
}

// Set stores a value. Writes are async in ristretto; Wait makes them visible
// to the next Get, which the tests and the catalog client both rely on.
func (m *MemoryConnector) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	m.store.SetWithTTL(key, value, int64(len(value)), ttl)
	m.store.Wait()
	return nil
}

// Close releases the cache.
func (m *MemoryConnector) Close() error {
	m.store.Close()
	return nil
}
