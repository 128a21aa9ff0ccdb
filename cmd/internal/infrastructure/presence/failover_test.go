package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis"
	"github.com/tj/assert"
)

func TestFailover_NoPrimary(t *testing.T) {
	f := NewFailoverBackend(context.Background(), nil, NewMemoryBackend())
	assert.True(t, f.Degraded())
	assert.Equal(t, ModeMemory, f.Mode())
}

func TestFailover_UnreachableAtStartup(t *testing.T) {
	primary, err := NewRedisBackend("redis://127.0.0.1:1/0")
	assert.Nil(t, err)
	defer primary.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f := NewFailoverBackend(ctx, primary, NewMemoryBackend())
	assert.True(t, f.Degraded())
	assert.Equal(t, ModeMemory, f.Mode())

	store := NewStore(f, DefaultConfig())
	assert.Nil(t, store.SetUserOnline(ctx, "u1"))
	online, err := store.IsUserOnline(ctx, "u1")
	assert.Nil(t, err)
	assert.True(t, online)
}

func TestFailover_PrimaryDiesMidway(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	fallback := NewMemoryBackend()
	f := NewFailoverBackend(ctx, NewRedisBackendFromClient(client), fallback)
	assert.False(t, f.Degraded())
	assert.Equal(t, ModeRedis, f.Mode())

	store := NewStore(f, DefaultConfig())
	assert.Nil(t, store.SetUserOnline(ctx, "u1"))
	assert.True(t, mr.Exists("online:u1"))
	assert.Equal(t, 0, fallback.Len())

	mr.Close()

	// the failing call is served by the fallback, not surfaced
	assert.Nil(t, store.SetUserOnline(ctx, "u2"))
	assert.True(t, f.Degraded())
	assert.Equal(t, ModeMemory, store.Mode())

	online, err := store.IsUserOnline(ctx, "u2")
	assert.Nil(t, err)
	assert.True(t, online)

	res, err := store.CheckRateLimit(ctx, "u2")
	assert.Nil(t, err)
	assert.True(t, res.Allowed)

	// no automatic return to the primary
	assert.Nil(t, f.Ping(ctx))
	assert.Equal(t, ModeMemory, f.Mode())
}

func TestFailover_CommandErrorsDoNotDegrade(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	f := NewFailoverBackend(ctx, NewRedisBackendFromClient(client), NewMemoryBackend())
	assert.Nil(t, f.Set(ctx, "c", "abc", 0))

	_, _, err := f.Incr(ctx, "c", time.Second)
	assert.Equal(t, ErrNotInteger, err)
	assert.False(t, f.Degraded())
}
