package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	"github.com/angelmondragon/posterminal/pkg/logger"
)

const leaseReleaseTimeout = 2 * time.Second

var (
	// ErrCounterBusy means another terminal process already serves the counter.
	ErrCounterBusy = errors.New("counter is held by another terminal")
	// ErrLeaseLost means the lease expired or was taken over while held.
	ErrLeaseLost = errors.New("counter lease lost")
)

// CounterLease keeps one process per counter number. Two processes sharing a
// counter would overwrite each other's snapshots and idempotency scope.
type CounterLease struct {
	lock    *redislock.Lock
	counter string
	ttl     time.Duration
	logger  *logger.Logger
}

func (c *Client) LeaseKey(counter string) string {
	return c.buildKey(leasePrefix, counter)
}

// AcquireCounterLease obtains the counter lease without retrying.
func (c *Client) AcquireCounterLease(ctx context.Context, counter string, ttl time.Duration) (*CounterLease, error) {
	if c == nil || c.locker == nil {
		return nil, errors.New("redis client not initialized")
	}
	if ttl <= 0 {
		return nil, errors.New("lease ttl must be positive")
	}
	lock, err := c.locker.Obtain(ctx, c.LeaseKey(counter), ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: counter %s", ErrCounterBusy, counter)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain counter lease: %w", err)
	}
	c.logger.Info(c.logger.WithCounter(ctx, counter), "counter lease acquired")
	return &CounterLease{lock: lock, counter: counter, ttl: ttl, logger: c.logger}, nil
}

// Hold refreshes the lease until ctx is done and then releases it. A failed
// refresh is retried on the next tick; only a lease taken by someone else ends Hold early.
func (l *CounterLease) Hold(ctx context.Context) error {
	ticker := time.NewTicker(refreshInterval(l.ttl))
	defer ticker.Stop()
	logCtx := l.logger.WithCounter(ctx, l.counter)

	for {
		select {
		case <-ctx.Done():
			return l.release()
		case <-ticker.C:
			err := l.lock.Refresh(ctx, l.ttl, nil)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				return l.release()
			case errors.Is(err, redislock.ErrNotObtained):
				l.logger.Error(logCtx, "counter lease lost", err)
				return fmt.Errorf("%w: counter %s", ErrLeaseLost, l.counter)
			default:
				l.logger.Warn(l.logger.WithField(logCtx, "error", err.Error()), "counter lease refresh failed")
			}
		}
	}
}

func (l *CounterLease) release() error {
	ctx, cancel := context.WithTimeout(context.Background(), leaseReleaseTimeout)
	defer cancel()
	if err := l.lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return fmt.Errorf("release counter lease: %w", err)
	}
	return nil
}

func refreshInterval(ttl time.Duration) time.Duration {
	if interval := ttl / 3; interval > 0 {
		return interval
	}
	return time.Second
}
