// Package cache is the cache-aside read layer with two independent
// anti-stampede strategies: null-caching for confirmed-absent keys
// (pass-through mode) and logical expiration with lock-serialized background
// refresh for pre-warmed hot keys.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/minhngo/voucher-sale/internal/port"
)

const (
	// nullTTL bounds how long a confirmed database miss is trusted.
	nullTTL = 2 * time.Minute

	// refreshLockTTL caps how long a crashed refresher can hold a hot key.
	refreshLockTTL = 10 * time.Second

	refreshTimeout = 5 * time.Second
)

// envelope wraps a logically-expiring payload. These entries carry no
// physical TTL; staleness is judged against ExpireAt so the old payload stays
// servable while a refresher rebuilds it.
type envelope struct {
	Data     json.RawMessage `json:"data"`
	ExpireAt time.Time       `json:"expireAt"`
}

type Client struct {
	rdb   *redis.Client
	locks port.LockFactory
	log   *zap.Logger
	group singleflight.Group

	tasks chan func()
	wg    sync.WaitGroup
}

// New starts a bounded pool of refresh workers. Saturation of the task queue
// never blocks request-serving callers; excess refreshes are dropped.
func New(rdb *redis.Client, locks port.LockFactory, log *zap.Logger, workers, queueLen int) *Client {
	c := &Client{
		rdb:   rdb,
		locks: locks,
		log:   log,
		tasks: make(chan func(), queueLen),
	}
	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for task := range c.tasks {
				task()
			}
		}()
	}
	return c
}

// Close stops the refresh workers after draining queued tasks.
func (c *Client) Close() {
	close(c.tasks)
	c.wg.Wait()
}

// Set is an unconditional JSON write-through with a physical TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// SetLogical writes value wrapped with a logical expiry of now+ttl and no
// physical TTL.
func (c *Client) SetLogical(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	raw, err := json.Marshal(envelope{Data: data, ExpireAt: time.Now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("encode cache envelope: %w", err)
	}
	return c.rdb.Set(ctx, key, raw, 0).Err()
}

// GetThrough reads prefix+id cache-aside. A confirmed database miss is cached
// as an empty payload for nullTTL, so repeated lookups of absent ids stop at
// the cache. Concurrent misses for the same key share a single fallback call.
// Absent values are returned as (nil, nil).
func GetThrough[T any](ctx context.Context, c *Client, prefix, id string, fallback func(context.Context, string) (*T, error), ttl time.Duration) (*T, error) {
	key := prefix + id

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if raw == "" {
			// null marker: confirmed absent
			return nil, nil
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode cached %s: %w", key, err)
		}
		return &v, nil
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		v, err := fallback(ctx, id)
		if err != nil {
			return nil, err
		}
		if v == nil {
			if err := c.rdb.Set(ctx, key, "", nullTTL).Err(); err != nil {
				c.log.Warn("cache null marker write failed", zap.String("key", key), zap.Error(err))
			}
			return (*T)(nil), nil
		}
		if err := c.Set(ctx, key, v, ttl); err != nil {
			c.log.Warn("cache write-back failed", zap.String("key", key), zap.Error(err))
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*T), nil
}

// GetLogical serves pre-warmed hot keys. A miss means the key was never
// warmed and is returned as absent without consulting the database. An
// expired hit is answered with the stale payload immediately; at most one
// caller wins the rebuild lock and hands the refresh to the background pool.
func GetLogical[T any](ctx context.Context, c *Client, prefix, id, lockName string, fallback func(context.Context, string) (*T, error), ttl time.Duration) (*T, error) {
	key := prefix + id

	raw, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("decode cached %s: %w", key, err)
	}
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return nil, fmt.Errorf("decode cached %s: %w", key, err)
	}

	if time.Now().Before(env.ExpireAt) {
		return &v, nil
	}

	// Stale. If the lock is busy another refresher is already on it; the
	// caller still gets the stale payload either way.
	lk := c.locks.NewLock(lockName + id)
	ok, err := lk.TryLock(ctx, refreshLockTTL)
	if err != nil {
		c.log.Warn("cache refresh lock failed", zap.String("key", key), zap.Error(err))
		return &v, nil
	}
	if !ok {
		return &v, nil
	}

	c.dispatch(ctx, key, lk, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		defer c.unlock(refreshCtx, key, lk)

		fresh, err := fallback(refreshCtx, id)
		if err != nil {
			c.log.Error("cache refresh fallback failed", zap.String("key", key), zap.Error(err))
			return
		}
		if err := c.SetLogical(refreshCtx, key, fresh, ttl); err != nil {
			c.log.Error("cache refresh write failed", zap.String("key", key), zap.Error(err))
		}
	})

	return &v, nil
}

// dispatch hands a refresh task to the bounded pool. When the queue is full
// the task is dropped and the lock released right away, leaving the stale
// value in place until the next expired read retries.
func (c *Client) dispatch(ctx context.Context, key string, lk port.Lock, task func()) {
	select {
	case c.tasks <- task:
	default:
		c.log.Warn("cache refresh dropped, queue full", zap.String("key", key))
		c.unlock(ctx, key, lk)
	}
}

func (c *Client) unlock(ctx context.Context, key string, lk port.Lock) {
	if err := lk.Unlock(ctx); err != nil {
		c.log.Error("cache refresh unlock failed", zap.String("key", key), zap.Error(err))
	}
}
