package presence

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryItem struct {
	value    string
	expireAt time.Time // zero means no expiry
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expireAt.IsZero() && !now.Before(i.expireAt)
}

// MemoryBackend keeps everything in process. Expired keys are dropped lazily on access.
type MemoryBackend struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type MemoryOption func(*MemoryBackend)

// WithClock swaps the time source, tests use it to fast-forward.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryBackend) {
		m.now = now
	}
}

func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	m := &MemoryBackend{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryBackend) Mode() Mode {
	return ModeMemory
}

func (m *MemoryBackend) Ping(context.Context) error {
	return nil
}

func (m *MemoryBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := memoryItem{value: value}
	if ttl > 0 {
		item.expireAt = m.now().Add(ttl)
	}
	m.items[key] = item
	return nil
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.lookup(key)
	if !ok {
		return "", false, nil
	}
	return item.value, true, nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

func (m *MemoryBackend) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	item, ok := m.lookup(key)

	var count int64
	if ok {
		n, err := strconv.ParseInt(item.value, 10, 64)
		if err != nil {
			return 0, 0, ErrNotInteger
		}
		count = n
	}
	count++

	item.value = strconv.FormatInt(count, 10)
	if count == 1 || item.expireAt.IsZero() {
		item.expireAt = now.Add(window)
	}
	m.items[key] = item

	return count, item.expireAt.Sub(now), nil
}

// Len reports live keys, expired ones are purged first.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.items {
		m.lookup(key)
	}
	return len(m.items)
}

// lookup must be called with mu held.
func (m *MemoryBackend) lookup(key string) (memoryItem, bool) {
	item, ok := m.items[key]
	if !ok {
		return memoryItem{}, false
	}

	if item.expired(m.now()) {
		delete(m.items, key)
		return memoryItem{}, false
	}
	return item, true
}
