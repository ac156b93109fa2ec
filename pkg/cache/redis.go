package cache

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-redis/redis"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
)

// RedisTTL is the TTL policy shared between processes. Expiry is enforced by
// redis itself, so a stale read is always a miss. Backend errors are logged
// and treated as misses.
type RedisTTL[V any] struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
	logger *Logger.Logger
}

func NewRedisTTL[V any](rc *redis.Client, prefix string, ttl time.Duration, logger *Logger.Logger) *RedisTTL[V] {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisTTL[V]{rc: rc, prefix: prefix, ttl: ttl, logger: Logger.OrNop(logger)}
}

func (c *RedisTTL[V]) Get(key string) (V, bool) {
	var zero V
	raw, err := c.rc.Get(c.prefix + key).Bytes()
	if err == redis.Nil {
		return zero, false
	}
	if err != nil {
		c.logger.Warnf("cache: redis get %s: %v", key, err)
		return zero, false
	}
	var v V
	if err := sonic.Unmarshal(raw, &v); err != nil {
		c.logger.Warnf("cache: decode %s: %v", key, err)
		c.rc.Del(c.prefix + key)
		return zero, false
	}
	return v, true
}

func (c *RedisTTL[V]) Set(key string, value V) {
	raw, err := sonic.Marshal(value)
	if err != nil {
		c.logger.Warnf("cache: encode %s: %v", key, err)
		return
	}
	if err := c.rc.Set(c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warnf("cache: redis set %s: %v", key, err)
	}
}
