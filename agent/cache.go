package agent

import (
	"context"
	"sync"
	"time"
)

// Cache is the key/value backend behind sessions and transcripts.
type Cache[S any] interface {
	Set(ctx context.Context, key string, val S) error
	Get(ctx context.Context, key string) (S, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type CacheOption func(*cacheOptions)

type cacheOptions struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL expires an entry d after it was last written or read. d <= 0
// keeps entries forever.
func WithTTL(d time.Duration) CacheOption {
	return func(o *cacheOptions) { o.ttl = d }
}

func withClock(now func() time.Time) CacheOption {
	return func(o *cacheOptions) { o.now = now }
}

type cacheEntry[S any] struct {
	val      S
	deadline time.Time
}

// MemoryCache is a process-local Cache. Expired entries are dropped lazily
// when their key is touched and by Sweep.
type MemoryCache[S any] struct {
	mu      sync.Mutex
	entries map[string]cacheEntry[S]
	opts    cacheOptions
}

func NewMemoryCache[S any](opts ...CacheOption) *MemoryCache[S] {
	o := cacheOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryCache[S]{entries: map[string]cacheEntry[S]{}, opts: o}
}

func (m *MemoryCache[S]) deadline() time.Time {
	if m.opts.ttl <= 0 {
		return time.Time{}
	}
	return m.opts.now().Add(m.opts.ttl)
}

// live returns the entry under key, refreshing its deadline. Caller holds mu.
func (m *MemoryCache[S]) live(key string) (cacheEntry[S], bool) {
	e, ok := m.entries[key]
	if !ok {
		return e, false
	}
	if !e.deadline.IsZero() && !m.opts.now().Before(e.deadline) {
		delete(m.entries, key)
		return cacheEntry[S]{}, false
	}
	e.deadline = m.deadline()
	m.entries[key] = e
	return e, true
}

func (m *MemoryCache[S]) Set(ctx context.Context, key string, val S) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = cacheEntry[S]{val: val, deadline: m.deadline()}
	return nil
}

func (m *MemoryCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	return e.val, ok, nil
}

func (m *MemoryCache[S]) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live(key)
	return ok, nil
}

// Sweep drops every expired entry and returns how many are left.
func (m *MemoryCache[S]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.opts.now()
	for key, e := range m.entries {
		if !e.deadline.IsZero() && !now.Before(e.deadline) {
			delete(m.entries, key)
		}
	}
	return len(m.entries)
}
