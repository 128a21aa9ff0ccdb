package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const (
	sessionPrefix   = "session:"
	rateLimitPrefix = "ratelimit:"
	onlinePrefix    = "online:"
	socketPrefix    = "socket:"

	onlineValue = "1"
)

type Config struct {
	SessionTTL      time.Duration
	OnlineTTL       time.Duration
	RateLimitWindow time.Duration
	RateLimitMax    int64
}

func DefaultConfig() Config {
	return Config{
		SessionTTL:      24 * time.Hour,
		OnlineTTL:       60 * time.Second,
		RateLimitWindow: 10 * time.Second,
		RateLimitMax:    10,
	}
}

// Session is the marker kept for one connection handle, enough to rebuild
// the connection in a process that never saw its handshake.
type Session struct {
	UserID string `json:"userId"`
	// ExpiresAt is the handshake token's expiry in unix seconds, 0 when unknown.
	ExpiresAt int64 `json:"exp,omitempty"`
}

type RateLimitResult struct {
	Allowed bool
	// RetryAfter is whole seconds until the window resets, set only when not allowed.
	RetryAfter int
}

// Store owns session markers, rate-limit counters, online flags and the
// user to connection mapping. It is oblivious to which backend mode is active.
type Store struct {
	kv  Backend
	cfg Config
}

func NewStore(kv Backend, cfg Config) *Store {
	def := DefaultConfig()
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.OnlineTTL <= 0 {
		cfg.OnlineTTL = def.OnlineTTL
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = def.RateLimitWindow
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = def.RateLimitMax
	}
	return &Store{kv: kv, cfg: cfg}
}

func (s *Store) Mode() Mode {
	return s.kv.Mode()
}

func (s *Store) Config() Config {
	return s.cfg
}

func (s *Store) SetSession(ctx context.Context, sessionID string, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, sessionPrefix+sessionID, string(raw), s.cfg.SessionTTL)
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (Session, bool, error) {
	raw, found, err := s.kv.Get(ctx, sessionPrefix+sessionID)
	if err != nil || !found {
		return Session{}, false, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, false, fmt.Errorf("corrupt session marker %s: %w", sessionID, err)
	}
	return sess, true, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	return s.kv.Delete(ctx, sessionPrefix+sessionID)
}

// CheckRateLimit counts one message against the user's fixed window.
// The first RateLimitMax calls of a window are allowed, the rest are not.
func (s *Store) CheckRateLimit(ctx context.Context, userID string) (RateLimitResult, error) {
	count, remaining, err := s.kv.Incr(ctx, rateLimitPrefix+userID, s.cfg.RateLimitWindow)
	if err != nil {
		return RateLimitResult{}, err
	}

	if count <= s.cfg.RateLimitMax {
		return RateLimitResult{Allowed: true}, nil
	}

	retry := int(math.Ceil(remaining.Seconds()))
	if retry <= 0 {
		retry = int(math.Ceil(s.cfg.RateLimitWindow.Seconds()))
	}
	return RateLimitResult{Allowed: false, RetryAfter: retry}, nil
}

func (s *Store) SetUserOnline(ctx context.Context, userID string) error {
	return s.kv.Set(ctx, onlinePrefix+userID, onlineValue, s.cfg.OnlineTTL)
}

func (s *Store) SetUserOffline(ctx context.Context, userID string) error {
	return s.kv.Delete(ctx, onlinePrefix+userID)
}

func (s *Store) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	val, found, err := s.kv.Get(ctx, onlinePrefix+userID)
	if err != nil {
		return false, err
	}
	return found && val == onlineValue, nil
}

// SetUserSocket maps a user to their latest connection handle, without expiry.
func (s *Store) SetUserSocket(ctx context.Context, userID, handle string) error {
	return s.kv.Set(ctx, socketPrefix+userID, handle, 0)
}

func (s *Store) GetUserSocket(ctx context.Context, userID string) (string, bool, error) {
	return s.kv.Get(ctx, socketPrefix+userID)
}

func (s *Store) DeleteUserSocket(ctx context.Context, userID string) error {
	return s.kv.Delete(ctx, socketPrefix+userID)
}
