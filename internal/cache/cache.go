// Package cache keeps the last computed financial statistics so dashboards
// polling the stats endpoint don't re-run the aggregate on every request.
// Every write to payments, orders or deductions invalidates it.
package cache

import (
	"context"
	"sync"
	"time"
)

// StatsCache stores one encoded statistics document
type StatsCache interface {
	// Get returns the cached document and whether it was present
	Get(ctx context.Context) ([]byte, bool, error)
	Set(ctx context.Context, data []byte) error
	Invalidate(ctx context.Context) error
}

// Noop never caches anything
type Noop struct{}

func (Noop) Get(context.Context) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, []byte) error         { return nil }
func (Noop) Invalidate(context.Context) error          { return nil }

// Memory is an in-process StatsCache for single-instance deployments
type Memory struct {
	mu        sync.RWMutex
	data      []byte
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now}
}

func (m *Memory) Get(context.Context) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil || !m.now().Before(m.expiresAt) {
		return nil, false, nil
	}
	return m.data, true, nil
}

func (m *Memory) Set(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.expiresAt = m.now().Add(m.ttl)
	return nil
}

func (m *Memory) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}
