package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultRedisPrefix namespaces view keys in Redis.
const DefaultRedisPrefix = "mallstore:view:"

// RedisRegistry mirrors cached views in Redis so that several processes
// share freshness. Values are stored as JSON; Get returns json.RawMessage
// and Load decodes it into the caller's type. Redis errors degrade to
// "stale" and are logged, never returned from reads.
//
// Subscriptions are process-local: they fire for invalidations issued
// through this registry value.
type RedisRegistry struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	log    logrus.FieldLogger
	hub    hub
}

var _ Registry = (*RedisRegistry)(nil)

// RedisOption configures a RedisRegistry.
type RedisOption func(*RedisRegistry)

// WithRedisPrefix overrides DefaultRedisPrefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *RedisRegistry) { r.prefix = prefix }
}

// WithRedisTTL expires cached values after ttl. Zero keeps them until
// invalidated.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *RedisRegistry) { r.ttl = ttl }
}

// NewRedisRegistry creates a registry over client.
func NewRedisRegistry(client redis.UniversalClient, log logrus.FieldLogger, opts ...RedisOption) *RedisRegistry {
	r := &RedisRegistry{client: client, prefix: DefaultRedisPrefix, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRegistry) redisKey(key Key) string {
	return r.prefix + string(key)
}

// genKey holds key's generation. It never expires, so a generation can
// not fall back to a value a pending Put captured.
func (r *RedisRegistry) genKey(key Key) string {
	return r.prefix + "gen:" + string(key)
}

// IsStale implements Registry.
func (r *RedisRegistry) IsStale(ctx context.Context, key Key) bool {
	n, err := r.client.Exists(ctx, r.redisKey(key)).Result()
	if err != nil {
		r.log.WithError(err).WithField("key", key).Warn("redis exists failed, treating view as stale")
		return true
	}
	return n == 0
}

// Get implements Registry.
func (r *RedisRegistry) Get(ctx context.Context, key Key) (any, bool) {
	data, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.log.WithError(err).WithField("key", key).Warn("redis get failed, treating view as stale")
		return nil, false
	}
	return json.RawMessage(data), true
}

// Generation implements Registry. A key never invalidated is at zero.
func (r *RedisRegistry) Generation(ctx context.Context, key Key) (uint64, error) {
	gen, err := r.client.Get(ctx, r.genKey(key)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read generation %s: %w", key, err)
	}
	return gen, nil
}

// Put implements Registry. The write is a WATCHed transaction on the
// generation key, so an Invalidate landing between the check and the SET
// aborts it.
func (r *RedisRegistry) Put(ctx context.Context, key Key, value any, gen uint64) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode view %s: %w", key, err)
	}

	genKey := r.genKey(key)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return ErrSuperseded
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.redisKey(key), data, r.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSuperseded), errors.Is(err, redis.TxFailedErr):
		return ErrSuperseded
	default:
		return fmt.Errorf("store view %s: %w", key, err)
	}
}

// Invalidate implements Registry. Values are deleted and generations
// bumped in one MULTI block.
func (r *RedisRegistry) Invalidate(ctx context.Context, keys ...Key) {
	if len(keys) == 0 {
		return
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Del(ctx, r.redisKey(key))
			pipe.Incr(ctx, r.genKey(key))
		}
		return nil
	})
	if err != nil {
		r.log.WithError(err).WithField("keys", len(keys)).Warn("redis invalidation failed")
	}
	r.hub.notify(keys)
}

// Subscribe implements Registry.
func (r *RedisRegistry) Subscribe(key Key) (<-chan Key, func()) {
	return r.hub.subscribe(key)
}
