package jobs

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"
)

const DefaultRefreshInterval = 30 * time.Second

type PresenceRefresher interface {
	RefreshPresence(ctx context.Context) int
}

// OnlineRefresher keeps the online flags of live connections from lapsing.
// The interval must stay below the online flag TTL.
type OnlineRefresher struct {
	target   PresenceRefresher
	interval time.Duration
}

func NewOnlineRefresher(target PresenceRefresher, interval time.Duration) *OnlineRefresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &OnlineRefresher{target: target, interval: interval}
}

func (r *OnlineRefresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Infof("Presence refresher started, every %s", r.interval)

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping presence refresher...")
			return
		case <-ticker.C:
			if n := r.target.RefreshPresence(ctx); n > 0 {
				log.Debugf("Refresher: renewed %d online flags", n)
			}
		}
	}
}
