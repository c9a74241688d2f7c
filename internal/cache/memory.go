package cache

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/sigma/internal/core"
)

type memoryItem struct {
	result   *core.SignalResult
	expireAt time.Time
	access   time.Time
}

// MemoryCache is an in-process Cache with least-recently-used eviction.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]*memoryItem
	maxSize int
	now     func() time.Time

	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryCache) { m.now = now }
}

// WithCleanupInterval starts a janitor that drops expired entries every d.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(m *MemoryCache) { m.cleanupInterval = d }
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int, opts ...MemoryOption) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	m := &MemoryCache{
		items:   make(map[string]*memoryItem),
		maxSize: maxSize,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cleanupInterval > 0 {
		go m.cleanup(m.cleanupInterval)
	}
	return m
}

// Get returns a copy of the cached result.
func (m *MemoryCache) Get(_ context.Context, key string) (*core.SignalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return nil, core.ErrCacheMiss
	}
	now := m.now()
	if !now.Before(item.expireAt) {
		delete(m.items, key)
		return nil, core.ErrCacheMiss
	}
	item.access = now
	return item.result.Clone(), nil
}

// Set stores a copy of result under key for ttl.
func (m *MemoryCache) Set(_ context.Context, key string, result *core.SignalResult, ttl time.Duration) error {
	if result == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists && len(m.items) >= m.maxSize {
		m.evictLRU()
	}
	now := m.now()
	m.items[key] = &memoryItem{result: result.Clone(), expireAt: now.Add(ttl), access: now}
	return nil
}

// Delete removes key.
func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close stops the janitor if one is running.
func (m *MemoryCache) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

func (m *MemoryCache) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, item := range m.items {
		if oldestKey == "" || item.access.Before(oldest) {
			oldestKey = key
			oldest = item.access
		}
	}
	if oldestKey != "" {
		delete(m.items, oldestKey)
	}
}

func (m *MemoryCache) purgeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, item := range m.items {
		if !now.Before(item.expireAt) {
			delete(m.items, key)
		}
	}
}

func (m *MemoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.purgeExpired()
		}
	}
}
