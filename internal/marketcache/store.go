package marketcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Store is a key/value cache with TTL. Values are JSON encoded by the
// implementation. pkg/redis.Cache satisfies it.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type memoryItem struct {
	data     []byte
	expireAt time.Time // zero means no expiry
}

// MemoryStore is an in-process Store used when Redis is disabled and in tests
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// Get decodes the value under key into dest; expired entries are misses
func (m *MemoryStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if !item.expireAt.IsZero() && m.now().After(item.expireAt) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return false, nil
	}

	if err := json.Unmarshal(item.data, dest); err != nil {
		return false, fmt.Errorf("memory store unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key. ttl <= 0 means no expiry.
func (m *MemoryStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory store marshal %s: %w", key, err)
	}

	item := memoryItem{data: data}
	if ttl > 0 {
		item.expireAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// PurgeExpired drops expired entries and returns how many were removed
func (m *MemoryStore) PurgeExpired() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, item := range m.items {
		if !item.expireAt.IsZero() && now.After(item.expireAt) {
			delete(m.items, key)
			removed++
		}
	}
	return removed
}
