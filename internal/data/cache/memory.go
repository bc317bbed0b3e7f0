package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

const defaultMaxEntries = 1000

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
	hits      int64
}

// Memory is the default in-process store. Expiry is lazy: expired entries
// are treated as absent on lookup and removed then. When the entry limit is
// reached, expired entries are purged first, then the least-hit entries.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	maxEntries int

	hits      int64
	misses    int64
	evictions int64
}

func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Memory{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		m.misses++
		return nil, false
	}
	e.hits++
	m.hits++
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) >= m.maxEntries {
		m.evict()
	}
	m.entries[key] = &memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (m *Memory) InvalidatePrefix(_ context.Context, prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*memoryEntry)
}

func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Hits:      m.hits,
		Misses:    m.misses,
		Entries:   len(m.entries),
		Evictions: m.evictions,
	}
}

// evict is called with the lock held.
func (m *Memory) evict() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
			m.evictions++
		}
	}
	if len(m.entries) < m.maxEntries {
		return
	}
	// Still full: drop the coldest tenth.
	toRemove := len(m.entries)/10 + 1
	for i := 0; i < toRemove; i++ {
		var coldest string
		var coldestHits int64 = -1
		for k, e := range m.entries {
			if coldestHits == -1 || e.hits < coldestHits {
				coldest, coldestHits = k, e.hits
			}
		}
		if coldest == "" {
			return
		}
		delete(m.entries, coldest)
		m.evictions++
	}
}
