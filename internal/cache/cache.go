package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"deepthoughts/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	UserKeyPrefix     = "user:%d"
	UsernameKeyPrefix = "user:name:%s"
	UserTTL           = 5 * time.Minute
	UsernameTTL       = 30 * time.Minute

	// generationTTL outlives any fill; an expired counter reads as "0" and
	// only ever causes a skipped write-back.
	generationTTL = time.Hour
)

// fillIfCurrent writes ARGV[2] to KEYS[1] only while the generation counter in
// KEYS[2] still holds the value read before the fetch.
var fillIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
  return false
end
return redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
`)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func UsernameKey(username string) string {
	return fmt.Sprintf(UsernameKeyPrefix, username)
}

func generationKey(key string) string {
	return key + ":gen"
}

// Cache is a JSON cache-aside layer over Redis. A nil *Cache, or one built
// around a nil client, is valid and never caches anything.
type Cache struct {
	client redis.Cmdable
	logger *slog.Logger
}

// New returns a Cache backed by client.
func New(client redis.Cmdable, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{client: client, logger: logger}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Aside loads key into dest. On a miss, or when Redis fails, fetch fills dest
// and the result is written back with ttl. Errors from fetch are returned
// as-is and nothing is cached. The write-back is dropped when key was
// invalidated while fetch ran, so a slow reader cannot resurrect a profile
// that a concurrent write already retired.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if !c.enabled() {
		return fetch()
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			observability.CacheLookups.WithLabelValues("hit").Inc()
			return nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cache entry", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	observability.CacheLookups.WithLabelValues("miss").Inc()

	gen, genErr := c.client.Get(ctx, generationKey(key)).Result()
	if errors.Is(genErr, redis.Nil) {
		gen, genErr = "0", nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if genErr != nil {
		return nil
	}
	c.fill(ctx, key, gen, dest, ttl)
	return nil
}

func (c *Cache) fill(ctx context.Context, key, gen string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	err = fillIfCurrent.Run(ctx, c.client, []string{key, generationKey(key)}, gen, payload, ttl.Milliseconds()).Err()
	switch {
	case errors.Is(err, redis.Nil):
		observability.CacheLookups.WithLabelValues("stale_fill").Inc()
		c.logger.DebugContext(ctx, "key invalidated during fetch, skipping write-back", slog.String("key", key))
	case err != nil:
		c.logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Set stores value as JSON. Failures are logged and otherwise ignored.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.enabled() {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Invalidate deletes keys and bumps their generation so fills already in
// flight are discarded.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.enabled() || len(keys) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		for _, key := range keys {
			pipe.Incr(ctx, generationKey(key))
			pipe.Expire(ctx, generationKey(key), generationTTL)
		}
		return nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "cache invalidation failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

// InvalidateUser drops the cached profile of userID.
func (c *Cache) InvalidateUser(ctx context.Context, userID uint) {
	c.Invalidate(ctx, UserKey(userID))
}

// LookupUserID resolves a username through the username index. Usernames
// never change, so entries only expire.
func (c *Cache) LookupUserID(ctx context.Context, username string) (uint, bool) {
	if !c.enabled() {
		return 0, false
	}
	raw, err := c.client.Get(ctx, UsernameKey(username)).Result()
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// RememberUserID records the username index entry.
func (c *Cache) RememberUserID(ctx context.Context, username string, userID uint) {
	if !c.enabled() {
		return
	}
	if err := c.client.Set(ctx, UsernameKey(username), strconv.FormatUint(uint64(userID), 10), UsernameTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", slog.String("key", UsernameKey(username)), slog.String("error", err.Error()))
	}
}

// Ping reports whether Redis is reachable. A disabled cache is always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
