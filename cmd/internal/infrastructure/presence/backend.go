package presence

import (
	"context"
	"errors"
	"time"
)

type Mode string

const (
	ModeRedis  Mode = "redis"
	ModeMemory Mode = "memory"
)

var ErrNotInteger = errors.New("value is not an integer or out of range")

// Backend is the key/value contract both storage modes honor identically.
// A ttl of zero means the key never expires.
type Backend interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get reports found=false for missing or expired keys.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Delete(ctx context.Context, key string) error
	// Incr bumps a fixed-window counter. The window starts at the first
	// increment and is not extended by later ones.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
	Ping(ctx context.Context) error
	Mode() Mode
}
