package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultSetTimeout   = 5 * time.Second
	maxJitter           = 15 * time.Second
)

// ReadThrough coalesces concurrent loads of one key and refreshes entries in
// the background once they are older than half their TTL.
type ReadThrough struct {
	cache  Cacher
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
	wg     sync.WaitGroup

	mu        sync.Mutex
	refreshed map[string]time.Time
	now       func() time.Time
	jitter    func(time.Duration) time.Duration
}

func NewReadThrough(c Cacher, ttl time.Duration, logger *zap.Logger) *ReadThrough {
	if c == nil {
		panic("nil Cacher provided to NewReadThrough")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadThrough{
		cache:     c,
		ttl:       ttl,
		logger:    logger.Named("cache"),
		refreshed: make(map[string]time.Time),
		now:       time.Now,
		jitter:    addTTLJitter,
	}
}

func (rt *ReadThrough) TTL() time.Duration {
	return rt.ttl
}

// addTTLJitter spreads expirations over ±15s. TTLs shorter than four times
// the jitter are left alone.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl < 4*maxJitter {
		return ttl
	}
	jitter := time.Duration(rand.Int63n(int64(2*maxJitter))) - maxJitter
	return ttl + jitter
}

// markFresh records that key was just stored. It reports whether a
// background refresh is due.
func (rt *ReadThrough) markFresh(key string, stored bool) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	now := rt.now()
	if stored {
		rt.refreshed[key] = now
		return false
	}
	last, ok := rt.refreshed[key]
	if ok && now.Sub(last) < rt.ttl/2 {
		return false
	}
	rt.refreshed[key] = now
	return true
}

func (rt *ReadThrough) store(key string, value any) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
	defer cancel()

	ttl := rt.jitter(rt.ttl)
	if err := rt.cache.Set(ctx, key, value, ttl); err != nil {
		rt.logger.Warn("failed to set cache", zap.String("key", key), zap.Error(err))
		return
	}
	rt.markFresh(key, true)
	rt.logger.Debug("cache populated", zap.String("key", key), zap.Duration("ttl", ttl))
}

func refresh[T any](rt *ReadThrough, key string, fn FetchFunc[T]) {
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		_, _, _ = rt.group.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				rt.logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
				return nil, err
			}
			rt.store(key, value)
			return value, nil
		})
	}()
}

// Wait blocks until background cache writes and refreshes have finished.
func (rt *ReadThrough) Wait() {
	rt.wg.Wait()
}

// FindAndCache returns the cached value of key, loading it with fn on a miss.
// Cache failures are treated as misses; only fn errors reach the caller.
func FindAndCache[T any](ctx context.Context, rt *ReadThrough, key string, fn FetchFunc[T]) (T, error) {
	var zero T

	var cached T
	err := rt.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		rt.logger.Debug("cache hit", zap.String("key", key))
		if rt.markFresh(key, false) {
			refresh(rt, key, fn)
		}
		return cached, nil

	case errors.Is(err, ErrMiss):
		rt.logger.Debug("cache miss", zap.String("key", key))

	default:
		rt.logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	// The shared fetch outlives any one caller: a caller that gives up must
	// not fail the others waiting on the same key.
	ch := rt.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultFetchTimeout)
		defer cancel()

		value, err := fn(fetchCtx)
		if err != nil {
			rt.logger.Error("fetch failed", zap.String("key", key), zap.Error(err))
			return nil, err
		}
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			rt.store(key, value)
		}()
		return value, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}
	if res.Shared {
		rt.logger.Debug("singleflight shared result", zap.String("key", key))
	}

	value, ok := res.Val.(T)
	if !ok {
		rt.logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}
	return value, nil
}
