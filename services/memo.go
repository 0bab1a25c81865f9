package services

import (
	"sync"
	"time"
)

const ReferenceTTL = 5 * time.Minute

type memoEntry[T any] struct {
	data      T
	fetchedAt time.Time
}

// memo keeps one value for ttl. The enumerations behind the filter dropdowns
// change rarely, so a single in-process copy is shared by every request.
type memo[T any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	entry *memoEntry[T]
}

func newMemo[T any](ttl time.Duration, now func() time.Time) *memo[T] {
	return &memo[T]{ttl: ttl, now: now}
}

func (m *memo[T]) get() (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.entry != nil && m.now().Sub(m.entry.fetchedAt) < m.ttl {
		return m.entry.data, true
	}
	var zero T
	return zero, false
}

func (m *memo[T]) set(data T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry = &memoEntry[T]{data: data, fetchedAt: m.now()}
}

func (m *memo[T]) invalidate() {
	m.mu.Lock()
	m.entry = nil
	m.mu.Unlock()
}

// load returns the memoized value or calls fetch and keeps its result.
// Failed fetches are not remembered.
func (m *memo[T]) load(fetch func() (T, error)) (T, error) {
	if v, ok := m.get(); ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	m.set(v)
	return v, nil
}
