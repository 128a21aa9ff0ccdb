package presence

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/labstack/gommon/log"
)

// FailoverBackend serves from a primary backend until it fails once, then
// switches to the fallback for the rest of the process lifetime. The
// operation that observed the failure is replayed on the fallback, so
// callers never see connectivity errors.
type FailoverBackend struct {
	primary  Backend
	fallback Backend
	degraded atomic.Bool
}

// NewFailoverBackend pings the primary and starts degraded when it is
// nil or unreachable.
func NewFailoverBackend(ctx context.Context, primary, fallback Backend) *FailoverBackend {
	f := &FailoverBackend{primary: primary, fallback: fallback}
	if primary == nil {
		f.degrade("no primary configured", nil)
		return f
	}

	if err := primary.Ping(ctx); err != nil {
		f.degrade("primary unreachable at startup", err)
		return f
	}
	log.Infof("presence store using %s backend", primary.Mode())
	return f
}

func (f *FailoverBackend) Mode() Mode {
	return f.active().Mode()
}

func (f *FailoverBackend) Degraded() bool {
	return f.degraded.Load()
}

func (f *FailoverBackend) Ping(ctx context.Context) error {
	return f.active().Ping(ctx)
}

func (f *FailoverBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if b := f.healthyPrimary(); b != nil {
		err := b.Set(ctx, key, value, ttl)
		if !f.check(err) {
			return err
		}
	}
	return f.fallback.Set(ctx, key, value, ttl)
}

func (f *FailoverBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if b := f.healthyPrimary(); b != nil {
		val, found, err := b.Get(ctx, key)
		if !f.check(err) {
			return val, found, err
		}
	}
	return f.fallback.Get(ctx, key)
}

func (f *FailoverBackend) Delete(ctx context.Context, key string) error {
	if b := f.healthyPrimary(); b != nil {
		err := b.Delete(ctx, key)
		if !f.check(err) {
			return err
		}
	}
	return f.fallback.Delete(ctx, key)
}

func (f *FailoverBackend) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if b := f.healthyPrimary(); b != nil {
		count, remaining, err := b.Incr(ctx, key, window)
		if !f.check(err) {
			return count, remaining, err
		}
	}
	return f.fallback.Incr(ctx, key, window)
}

func (f *FailoverBackend) active() Backend {
	if b := f.healthyPrimary(); b != nil {
		return b
	}
	return f.fallback
}

func (f *FailoverBackend) healthyPrimary() Backend {
	if f.degraded.Load() || f.primary == nil {
		return nil
	}
	return f.primary
}

// check degrades on connectivity errors and reports whether the
// operation must be replayed on the fallback.
func (f *FailoverBackend) check(err error) bool {
	if !isUnavailable(err) {
		return false
	}
	f.degrade("primary failed during operation", err)
	return true
}

func (f *FailoverBackend) degrade(reason string, err error) {
	if !f.degraded.CompareAndSwap(false, true) {
		return
	}

	if err != nil {
		log.Warnf("presence store switching to %s backend: %s: %v", f.fallback.Mode(), reason, err)
		return
	}
	log.Warnf("presence store switching to %s backend: %s", f.fallback.Mode(), reason)
}
