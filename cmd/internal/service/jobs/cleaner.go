package jobs

import (
	"context"
	"time"

	"ephemchat/cmd/internal/domain/entity"
	"ephemchat/cmd/internal/domain/events"
	"ephemchat/cmd/internal/infrastructure/websocket"
	"ephemchat/cmd/internal/utils"

	"github.com/labstack/gommon/log"
)

const DefaultCleanInterval = time.Minute

type ConnectionRegistry interface {
	Connections() []*entity.Connection
	Emit(ctx context.Context, handle string, evt events.SocketEvent)
	RemoveConnection(ctx context.Context, handle string)
}

// ConnectionCleaner drops connections whose token expired and, when
// CheckHeartbeat is set, connections that stopped sending events. The
// heartbeat check is only meaningful when the transport hides ping/pong
// from us, as API Gateway does.
type ConnectionCleaner struct {
	registry       ConnectionRegistry
	gateway        websocket.GatewayClient
	interval       time.Duration
	CheckHeartbeat bool
}

func NewConnectionCleaner(registry ConnectionRegistry, gateway websocket.GatewayClient, interval time.Duration) *ConnectionCleaner {
	if interval <= 0 {
		interval = DefaultCleanInterval
	}
	return &ConnectionCleaner{registry: registry, gateway: gateway, interval: interval}
}

func (c *ConnectionCleaner) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	log.Info("Connection cleaner cron started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping connection cleaner...")
			return
		case <-ticker.C:
			c.cleanup(ctx, utils.NowUTC())
		}
	}
}

func (c *ConnectionCleaner) cleanup(ctx context.Context, now int64) int {
	var dropped int
	for _, conn := range c.registry.Connections() {
		expired := conn.IsExpired(now)
		stale := c.CheckHeartbeat && conn.IsStale(now)
		if !expired && !stale {
			continue
		}

		if expired {
			// Notify Client (So they know NOT to try reconnecting with the same token)
			c.registry.Emit(ctx, conn.Handle, &events.Error{Message: "Session expired"})
		}

		if err := c.gateway.DeleteConnection(ctx, conn.Handle); err != nil {
			log.Debugf("Cleaner: failed to close %s: %v", conn.Handle, err)
		}
		c.registry.RemoveConnection(ctx, conn.Handle)
		dropped++
	}

	if dropped > 0 {
		log.Infof("Cleaner: dropped %d expired or stale connections", dropped)
	}
	return dropped
}
