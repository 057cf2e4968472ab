// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores serialized discovery results for reuse.
//
// Cache failures never fail a request: a backend that cannot be reached
// reports a miss on Get and drops writes, logging a warning.
package cache

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// DefaultTTL is the lifetime of a cached result when none is configured.
const DefaultTTL = time.Hour

// Cache is a byte-valued key/value store with expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
}

// New returns the cache selected by cfg: none when disabled, Redis when an
// address is configured, memory otherwise.
func New(cfg types.CacheConfig, logger *slog.Logger) Cache {
	switch {
	case cfg.Disabled:
		return Nop{}
	case cfg.RedisAddr != "":
		return NewRedis(cfg, logger)
	default:
		return NewMemory(nil)
	}
}

// Key builds the cache key of a discovery request. Concept case and
// discipline order do not change the key.
func Key(concept string, disciplines []string) string {
	ds := make([]string, 0, len(disciplines))
	for _, d := range disciplines {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			ds = append(ds, d)
		}
	}
	sort.Strings(ds)
	return "discover:" + strings.ToLower(strings.TrimSpace(concept)) + ":" + strings.Join(ds, ",")
}

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (Nop) Set(context.Context, string, []byte, time.Duration) {}
func (Nop) Delete(context.Context, string)                     {}
func (Nop) Clear(context.Context)                              {}

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is an in-process cache. Expired entries are dropped on access.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory returns an empty cache. now defaults to time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{entries: map[string]entry{}, now: now}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false
	}
	return append([]byte(nil), e.value...), true
}

// Set implements Cache. ttl <= 0 uses DefaultTTL.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: append([]byte(nil), value...), expires: m.now().Add(ttl)}
}

// Delete implements Cache.
func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Clear implements Cache.
func (m *Memory) Clear(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string]entry{}
}

// Len returns the number of stored entries, including expired ones not yet
// dropped.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
