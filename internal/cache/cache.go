// Package cache implements the read-through cache used in front of the product store.
//
// All cache failures are absorbed here: a broken or unreachable backend only ever turns
// reads into misses and writes into no-ops, so catalog availability never depends on it.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"catalog/backend/internal/logging"
	"catalog/backend/internal/metrics"
)

// DefaultTTL is the lifetime of every cached catalog entry.
const DefaultTTL = 300 * time.Second

// Store is the key/value backend behind the accessor.
type Store interface {
	// Get returns the raw value for key. found is false on a miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// Accessor wraps a Store with JSON encoding and best-effort semantics.
// An Accessor with a nil Store is valid and caches nothing.
type Accessor struct {
	store   Store
	logger  *zap.Logger
	metrics *metrics.Collector
	group   singleflight.Group
}

// NewAccessor builds an accessor. store may be nil to disable caching.
func NewAccessor(store Store, logger *zap.Logger, m *metrics.Collector) *Accessor {
	return &Accessor{
		store:   store,
		logger:  logging.OrNop(logger).Named("cache"),
		metrics: m,
	}
}

// Enabled reports whether a backend is configured.
func (a *Accessor) Enabled() bool {
	return a != nil && a.store != nil
}

// Get decodes the cached value for key into dest and reports whether it was found.
// Backend errors and undecodable payloads are logged and reported as misses.
func (a *Accessor) Get(ctx context.Context, key string, dest any) bool {
	if !a.Enabled() {
		return false
	}
	data, found, err := a.store.Get(ctx, key)
	if err != nil {
		a.logger.Warn("cache get failed, treating as miss", zap.String("key", key), zap.Error(err))
		a.metrics.CacheOp("get", metrics.ResultError)
		return false
	}
	if !found {
		a.metrics.CacheOp("get", metrics.ResultMiss)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		a.logger.Warn("cache entry undecodable, treating as miss", zap.String("key", key), zap.Error(err))
		a.metrics.CacheOp("get", metrics.ResultError)
		return false
	}
	a.metrics.CacheOp("get", metrics.ResultHit)
	return true
}

// Set stores value under key. Failures are logged and swallowed.
func (a *Accessor) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !a.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		a.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		a.metrics.CacheOp("set", metrics.ResultError)
		return
	}
	if err := a.store.Set(ctx, key, data, ttl); err != nil {
		a.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		a.metrics.CacheOp("set", metrics.ResultError)
		return
	}
	a.metrics.CacheOp("set", metrics.ResultOK)
}

// Delete removes exact keys. Failures are logged and swallowed.
func (a *Accessor) Delete(ctx context.Context, keys ...string) {
	if !a.Enabled() || len(keys) == 0 {
		return
	}
	if err := a.store.Delete(ctx, keys...); err != nil {
		a.logger.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
		a.metrics.CacheOp("delete", metrics.ResultError)
		return
	}
	a.metrics.CacheOp("delete", metrics.ResultOK)
}

// Invalidate removes every key under each prefix. Failures are logged and swallowed,
// and a failing prefix does not stop the remaining ones.
func (a *Accessor) Invalidate(ctx context.Context, prefixes ...string) {
	if !a.Enabled() {
		return
	}
	for _, prefix := range prefixes {
		if err := a.store.DeletePrefix(ctx, prefix); err != nil {
			a.logger.Warn("cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
			a.metrics.CacheOp("invalidate", metrics.ResultError)
			continue
		}
		a.metrics.CacheOp("invalidate", metrics.ResultOK)
	}
}

// Remember is the cache-aside read path. It returns the cached value for key when present;
// otherwise it calls load, caches a successful result for ttl, and returns it with hit=false.
// Concurrent misses on the same key share one load. Load errors are returned and never cached.
func Remember[T any](ctx context.Context, a *Accessor, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	if !a.Enabled() {
		v, err := load(ctx)
		return v, false, err
	}

	var cached T
	if a.Get(ctx, key, &cached) {
		return cached, true, nil
	}

	// One caller going away must not cancel the load the others are waiting on.
	shared := context.WithoutCancel(ctx)
	res, err, _ := a.group.Do(key, func() (any, error) {
		v, err := load(shared)
		if err != nil {
			return v, err
		}
		a.Set(shared, key, v, ttl)
		return v, nil
	})
	v, _ := res.(T)
	return v, false, err
}
