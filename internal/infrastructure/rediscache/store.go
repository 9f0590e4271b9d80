package rediscache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"catalog/backend/internal/cache"
	"catalog/backend/internal/logging"
)

// DefaultQueryTimeout bounds a single Redis round trip.
const DefaultQueryTimeout = 500 * time.Millisecond

// scanTimeout bounds a whole SCAN/DEL prefix sweep.
const scanTimeout = 5 * time.Second

type options struct {
	prefix          string
	queryTimeout    time.Duration
	breakerFailures uint32
	breakerTimeout  time.Duration
	logger          *zap.Logger
}

// Option configures a Store.
type Option func(*options)

// WithPrefix namespaces every key as "<prefix>:<key>".
func WithPrefix(p string) Option {
	return func(o *options) { o.prefix = p }
}

// WithQueryTimeout sets the per-operation timeout.
func WithQueryTimeout(d time.Duration) Option {
	return func(o *options) { o.queryTimeout = d }
}

// WithBreaker trips the circuit after failures consecutive errors and keeps it open for timeout.
func WithBreaker(failures uint32, timeout time.Duration) Option {
	return func(o *options) {
		o.breakerFailures = failures
		o.breakerTimeout = timeout
	}
}

// WithLogger sets the logger used for breaker state changes.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Store is a cache.Store backed by Redis. Operations run through a circuit breaker so an
// unreachable Redis costs one fast failure per request instead of a timeout.
type Store struct {
	client  redis.UniversalClient
	opts    options
	breaker *gobreaker.CircuitBreaker[[]byte]
}

var _ cache.Store = (*Store)(nil)

// New wraps client. The caller owns the client lifecycle.
func New(client redis.UniversalClient, opts ...Option) *Store {
	o := options{
		queryTimeout:    DefaultQueryTimeout,
		breakerFailures: 5,
		breakerTimeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrNop(o.logger).Named("rediscache")

	s := &Store{client: client, opts: o}
	s.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Timeout:     o.breakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= o.breakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			o.logger.Warn("redis circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return s
}

// State returns the current circuit breaker state.
func (s *Store) State() gobreaker.State {
	return s.breaker.State()
}

func (s *Store) key(k string) string {
	if s.opts.prefix == "" {
		return k
	}
	return s.opts.prefix + ":" + k
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.breaker.Execute(func() ([]byte, error) {
		qctx, cancel := context.WithTimeout(ctx, s.opts.queryTimeout)
		defer cancel()
		return s.client.Get(qctx, s.key(key)).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.breaker.Execute(func() ([]byte, error) {
		qctx, cancel := context.WithTimeout(ctx, s.opts.queryTimeout)
		defer cancel()
		return nil, s.client.Set(qctx, s.key(key), value, ttl).Err()
	})
	return err
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	_, err := s.breaker.Execute(func() ([]byte, error) {
		qctx, cancel := context.WithTimeout(ctx, s.opts.queryTimeout)
		defer cancel()
		return nil, s.client.Del(qctx, full...).Err()
	})
	return err
}

// DeletePrefix walks the keyspace with SCAN and deletes matches in batches.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := escapeGlob(s.key(prefix)) + "*"
	_, err := s.breaker.Execute(func() ([]byte, error) {
		sctx, cancel := context.WithTimeout(ctx, scanTimeout)
		defer cancel()

		var cursor uint64
		for {
			keys, next, err := s.client.Scan(sctx, cursor, pattern, 100).Result()
			if err != nil {
				return nil, err
			}
			if len(keys) > 0 {
				if err := s.client.Del(sctx, keys...).Err(); err != nil {
					return nil, err
				}
			}
			cursor = next
			if cursor == 0 {
				return nil, nil
			}
		}
	})
	return err
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
