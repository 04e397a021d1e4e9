// Package cache provides caching implementations for guardian decision
// results.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/medplane/guardian"
)

// Compile-time interface check.
var _ guardian.Cache = (*Memory)(nil)

// Memory is an in-memory cache with TTL-based expiration. The key covers
// everything a decision depends on except the evaluation instant, so the
// TTL bounds how stale a time-sensitive decision can get.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
}

type entry struct {
	result    *guardian.Result
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		ttl:     30 * time.Second,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a cached authorization result.
func (m *Memory) Get(_ context.Context, tenantID, userID, action, resource string, ec *guardian.EvalContext) (*guardian.Result, bool) {
	key := cacheKey(tenantID, userID, action, resource, ec)
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.result, true
}

// Set stores an authorization result.
func (m *Memory) Set(_ context.Context, tenantID, userID, action, resource string, ec *guardian.EvalContext, result *guardian.Result) {
	key := cacheKey(tenantID, userID, action, resource, ec)
	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict if at capacity.
	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			m.evictOne()
		}
	}

	m.entries[key] = &entry{
		result:    result,
		expiresAt: time.Now().Add(m.ttl),
	}
}

// InvalidateTenant removes all cached results for a tenant.
func (m *Memory) InvalidateTenant(_ context.Context, tenantID string) {
	prefix := tenantID + "\x00"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

// InvalidateUser removes all cached results for a specific user.
func (m *Memory) InvalidateUser(_ context.Context, tenantID, userID string) {
	prefix := tenantID + "\x00" + userID + "\x00"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

// cacheKey flattens the request identity and every context attribute the
// evaluators read. The evaluation instant is deliberately excluded.
func cacheKey(tenantID, userID, action, resource string, ec *guardian.EvalContext) string {
	var b strings.Builder
	b.WriteString(tenantID)
	b.WriteByte(0)
	b.WriteString(userID)
	b.WriteByte(0)
	b.WriteString(action)
	b.WriteByte(0)
	b.WriteString(resource)
	if ec != nil {
		b.WriteByte(0)
		b.WriteString(ec.IPAddress)
		b.WriteByte(0)
		b.WriteString(ec.Location)
		if len(ec.Attributes) > 0 {
			keys := make([]string, 0, len(ec.Attributes))
			for k := range ec.Attributes {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				b.WriteByte(0)
				b.WriteString(k)
				b.WriteByte('=')
				b.WriteString(ec.Attributes[k])
			}
		}
	}
	return b.String()
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}
