package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"ephemchat/cmd/internal/domain/entity"
	"ephemchat/cmd/internal/domain/events"

	"github.com/tj/assert"
)

type fakeRegistry struct {
	mu      sync.Mutex
	conns   []*entity.Connection
	emitted map[string][]events.SocketEvent
	removed []string
	refresh int
}

func (f *fakeRegistry) Connections() []*entity.Connection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*entity.Connection(nil), f.conns...)
}

func (f *fakeRegistry) Emit(_ context.Context, handle string, evt events.SocketEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitted == nil {
		f.emitted = map[string][]events.SocketEvent{}
	}
	f.emitted[handle] = append(f.emitted[handle], evt)
}

func (f *fakeRegistry) RemoveConnection(_ context.Context, handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, handle)
}

func (f *fakeRegistry) RefreshPresence(context.Context) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh++
	return len(f.conns)
}

func (f *fakeRegistry) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh
}

type fakeGateway struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeGateway) PostToConnection(context.Context, string, interface{}) error {
	return nil
}

func (f *fakeGateway) DeleteConnection(_ context.Context, connID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, connID)
	return nil
}

func TestConnectionCleaner(t *testing.T) {
	const now = int64(1_000_000_000)
	expSeconds := (now - 1000) / 1000

	fresh := entity.NewConnection("fresh", "u1", "", 0, now)
	expired := entity.NewConnection("expired", "u2", "", expSeconds, now)
	stale := entity.NewConnection("stale", "u3", "", 0, now-entity.HeartbeatPeriodMillis-entity.HeartbeatToleranceMillis-1)

	t.Run("expiry only", func(t *testing.T) {
		reg := &fakeRegistry{conns: []*entity.Connection{fresh, expired, stale}}
		gw := &fakeGateway{}
		c := NewConnectionCleaner(reg, gw, 0)

		assert.Equal(t, 1, c.cleanup(context.Background(), now))
		assert.Equal(t, []string{"expired"}, reg.removed)
		assert.Equal(t, []string{"expired"}, gw.deleted)

		assert.Len(t, reg.emitted["expired"], 1)
		assert.Equal(t, "Session expired", reg.emitted["expired"][0].(*events.Error).Message)
	})

	t.Run("with heartbeat", func(t *testing.T) {
		reg := &fakeRegistry{conns: []*entity.Connection{fresh, expired, stale}}
		gw := &fakeGateway{}
		c := NewConnectionCleaner(reg, gw, 0)
		c.CheckHeartbeat = true

		assert.Equal(t, 2, c.cleanup(context.Background(), now))
		assert.Equal(t, []string{"expired", "stale"}, reg.removed)
		assert.Empty(t, reg.emitted["stale"])
	})
}

func TestOnlineRefresher(t *testing.T) {
	reg := &fakeRegistry{conns: []*entity.Connection{entity.NewConnection("h", "u", "", 0, 0)}}
	r := NewOnlineRefresher(reg, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for reg.refreshes() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	assert.True(t, reg.refreshes() >= 2)
}
