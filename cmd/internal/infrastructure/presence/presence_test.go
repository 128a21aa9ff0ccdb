package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis"
	"github.com/tj/assert"
)

// fakeClock is shared by the memory backend and used to fast-forward miniredis alongside it.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// harness drives one backend plus the means to move its time forward.
type harness struct {
	name    string
	backend Backend
	advance func(time.Duration)
}

func backends(t *testing.T) []harness {
	t.Helper()

	clock := newFakeClock()
	mem := NewMemoryBackend(WithClock(clock.Now))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return []harness{
		{name: "memory", backend: mem, advance: clock.Advance},
		{name: "redis", backend: NewRedisBackendFromClient(client), advance: mr.FastForward},
	}
}

func TestBackend_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	for _, h := range backends(t) {
		t.Run(h.name, func(t *testing.T) {
			_, found, err := h.backend.Get(ctx, "missing")
			assert.Nil(t, err)
			assert.False(t, found)

			assert.Nil(t, h.backend.Set(ctx, "k", "v", 0))
			val, found, err := h.backend.Get(ctx, "k")
			assert.Nil(t, err)
			assert.True(t, found)
			assert.Equal(t, "v", val)

			assert.Nil(t, h.backend.Delete(ctx, "k"))
			_, found, _ = h.backend.Get(ctx, "k")
			assert.False(t, found)

			// deleting a missing key is not an error
			assert.Nil(t, h.backend.Delete(ctx, "k"))
		})
	}
}

func TestBackend_Expiry(t *testing.T) {
	ctx := context.Background()
	for _, h := range backends(t) {
		t.Run(h.name, func(t *testing.T) {
			assert.Nil(t, h.backend.Set(ctx, "ttl", "1", 5*time.Second))
			assert.Nil(t, h.backend.Set(ctx, "forever", "1", 0))

			h.advance(4 * time.Second)
			_, found, _ := h.backend.Get(ctx, "ttl")
			assert.True(t, found)

			h.advance(time.Second)
			_, found, _ = h.backend.Get(ctx, "ttl")
			assert.False(t, found)

			h.advance(24 * time.Hour)
			_, found, _ = h.backend.Get(ctx, "forever")
			assert.True(t, found)
		})
	}
}

func TestBackend_IncrFixedWindow(t *testing.T) {
	ctx := context.Background()
	window := 10 * time.Second

	for _, h := range backends(t) {
		t.Run(h.name, func(t *testing.T) {
			count, remaining, err := h.backend.Incr(ctx, "c", window)
			assert.Nil(t, err)
			assert.EqualValues(t, 1, count)
			assert.Equal(t, window, remaining)

			h.advance(4 * time.Second)
			count, remaining, err = h.backend.Incr(ctx, "c", window)
			assert.Nil(t, err)
			assert.EqualValues(t, 2, count)
			// later increments never extend the window
			assert.Equal(t, 6*time.Second, remaining)

			val, found, _ := h.backend.Get(ctx, "c")
			assert.True(t, found)
			assert.Equal(t, "2", val)

			h.advance(6 * time.Second)
			count, remaining, err = h.backend.Incr(ctx, "c", window)
			assert.Nil(t, err)
			assert.EqualValues(t, 1, count)
			assert.Equal(t, window, remaining)
		})
	}
}

func TestBackend_IncrRepairsMissingExpiry(t *testing.T) {
	ctx := context.Background()
	for _, h := range backends(t) {
		t.Run(h.name, func(t *testing.T) {
			assert.Nil(t, h.backend.Set(ctx, "c", "5", 0))

			count, remaining, err := h.backend.Incr(ctx, "c", 10*time.Second)
			assert.Nil(t, err)
			assert.EqualValues(t, 6, count)
			assert.Equal(t, 10*time.Second, remaining)
		})
	}
}

func TestBackend_IncrNonInteger(t *testing.T) {
	ctx := context.Background()
	for _, h := range backends(t) {
		t.Run(h.name, func(t *testing.T) {
			assert.Nil(t, h.backend.Set(ctx, "c", "abc", 0))
			_, _, err := h.backend.Incr(ctx, "c", time.Second)
			assert.Equal(t, ErrNotInteger, err)
		})
	}
}

func TestMemoryBackend_LazyPurge(t *testing.T) {
	clock := newFakeClock()
	mem := NewMemoryBackend(WithClock(clock.Now))
	ctx := context.Background()

	_ = mem.Set(ctx, "a", "1", time.Second)
	_ = mem.Set(ctx, "b", "1", 0)
	assert.Equal(t, 2, mem.Len())

	clock.Advance(time.Second)
	assert.Equal(t, 1, mem.Len())
}

func TestMemoryBackend_Concurrent(t *testing.T) {
	mem := NewMemoryBackend()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _, _ = mem.Incr(ctx, "c", time.Minute)
			}
		}()
	}
	wg.Wait()

	val, _, _ := mem.Get(ctx, "c")
	assert.Equal(t, "1000", val)
}
