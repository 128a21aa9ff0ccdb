package entity

import "sync/atomic"

const (
	HeartbeatPeriodMillis    = int64(60 * 1000)
	HeartbeatToleranceMillis = int64(10 * 1000)
)

// Connection is one authenticated client session, alive from handshake to disconnect.
// Identity fields are fixed at handshake and never change afterwards.
type Connection struct {
	Handle      string
	UserID      string
	Email       string
	ExpiresAt   int64
	ConnectedAt int64

	lastHeartbeatAt atomic.Int64
}

func NewConnection(handle, userID, email string, exp, now int64) *Connection {
	conn := &Connection{
		Handle:      handle,
		UserID:      userID,
		Email:       email,
		ExpiresAt:   exp * 1000, // "exp" is stored in seconds, our app uses millis
		ConnectedAt: now,
	}
	conn.lastHeartbeatAt.Store(now) // Avoid users getting disconnected immediately
	return conn
}

func (c *Connection) Touch(now int64) {
	c.lastHeartbeatAt.Store(now)
}

func (c *Connection) LastHeartbeatAt() int64 {
	return c.lastHeartbeatAt.Load()
}

// IsStale reports whether no heartbeat arrived within the period plus tolerance.
func (c *Connection) IsStale(now int64) bool {
	return now-c.LastHeartbeatAt() > HeartbeatPeriodMillis+HeartbeatToleranceMillis
}

// IsExpired reports whether the credential used at handshake has run out.
func (c *Connection) IsExpired(now int64) bool {
	return c.ExpiresAt > 0 && now >= c.ExpiresAt
}
