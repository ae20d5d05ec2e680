// Package lock provides a distributed core.Locker backed by Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"foodcost/internal/core"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis is a core.Locker shared by every process pointed at the same Redis.
// A held lock is refreshed at half its TTL until released, so long
// confirmations do not lose it. If a refresh fails the held context is
// cancelled with core.ErrLockLost.
type Redis struct {
	locker *redislock.Client
	ttl    time.Duration
	retry  time.Duration
	log    logrus.FieldLogger
}

// NewRedis connects to redisURL (redis://host:port/db) and pings it.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration, log logrus.FieldLogger) (*Redis, *redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("unable to ping redis: %w", err)
	}
	return NewRedisFromClient(rdb, ttl, log), rdb, nil
}

func NewRedisFromClient(rdb redislock.RedisClient, ttl time.Duration, log logrus.FieldLogger) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Redis{
		locker: redislock.New(rdb),
		ttl:    ttl,
		retry:  50 * time.Millisecond,
		log:    log.WithField("module", "lock"),
	}
}

// Lock retries until the lock is obtained or ctx is done. redislock gives up
// after one TTL when ctx has no deadline, so Obtain is called in a loop.
func (r *Redis) Lock(ctx context.Context, name string) (context.Context, func(), error) {
	key := "lock:" + name
	var l *redislock.Lock
	for {
		var err error
		l, err = r.locker.Obtain(ctx, key, r.ttl, &redislock.Options{
			RetryStrategy: redislock.LinearBackoff(r.retry),
		})
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if !errors.Is(err, redislock.ErrNotObtained) {
			return nil, nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
		}
		r.log.WithField("key", key).Debug("lock still held, waiting")
	}

	held, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := r.keepAlive(l, stop); err != nil {
			r.log.WithField("key", key).WithError(err).Error("failed to refresh lock")
			cancel(fmt.Errorf("%w: %s", core.ErrLockLost, key))
		}
	}()

	var once sync.Once
	return held, func() {
		once.Do(func() {
			close(stop)
			<-done
			if errors.Is(context.Cause(held), core.ErrLockLost) {
				r.log.WithField("key", key).Error("lock was lost before release")
			}
			cancel(nil)
			// Release with a fresh context; the caller's may already be cancelled.
			releaseCtx, cancelRelease := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelRelease()
			if err := l.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				r.log.WithField("key", key).WithError(err).Warn("failed to release lock")
			}
		})
	}, nil
}

// keepAlive refreshes l at half its TTL until stop is closed. It returns the
// first refresh error, after which the lock is no longer held.
func (r *Redis) keepAlive(l *redislock.Lock, stop <-chan struct{}) error {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.ttl/2)
			err := l.Refresh(ctx, r.ttl, nil)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
