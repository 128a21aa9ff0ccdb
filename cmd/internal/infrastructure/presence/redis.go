package presence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/go-redis/redis"
)

const (
	defaultDialTimeout = 2 * time.Second
	maxRetries         = 3
)

type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend parses a redis:// URL. No connection is made until first use.
func NewRedisBackend(url string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.MaxRetries = maxRetries
	opts.DialTimeout = defaultDialTimeout

	return &RedisBackend{client: redis.NewClient(opts)}, nil
}

func NewRedisBackendFromClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (r *RedisBackend) Mode() Mode {
	return ModeRedis
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.WithContext(ctx).Ping().Err()
}

func (r *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.WithContext(ctx).Set(key, value, ttl).Err()
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.WithContext(ctx).Get(key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.WithContext(ctx).Del(key).Err()
}

func (r *RedisBackend) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	client := r.client.WithContext(ctx)

	var incr *redis.IntCmd
	var pttl *redis.DurationCmd
	_, err := client.TxPipelined(func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(key)
		pttl = pipe.PTTL(key)
		return nil
	})
	if err != nil {
		if isValueError(err) {
			return 0, 0, ErrNotInteger
		}
		return 0, 0, err
	}

	count, remaining := incr.Val(), pttl.Val()
	// A counter without expiry (first hit, or a crash between INCR and PEXPIRE)
	// opens a fresh window.
	if count == 1 || remaining < 0 {
		if err := client.PExpire(key, window).Err(); err != nil {
			return 0, 0, err
		}
		remaining = window
	}
	return count, remaining, nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

// isUnavailable tells connectivity failures apart from command errors.
func isUnavailable(err error) bool {
	if err == nil || err == redis.Nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := err.Error()
	return strings.HasPrefix(msg, "redis: connection pool timeout") ||
		strings.HasPrefix(msg, "redis: client is closed") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}

func isValueError(err error) bool {
	return strings.Contains(err.Error(), "not an integer")
}
