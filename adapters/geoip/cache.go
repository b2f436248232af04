package geoip

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vat-calculator/core/geo"
	"vat-calculator/internal/logging"
)

const (
	// DefaultCacheTTL is how long a country answer is kept
	DefaultCacheTTL = 24 * time.Hour

	cacheKeyPrefix = "vatcalc:geo:"
)

// CacheClient is the part of *redis.Client the cache uses
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedLookup decorates a Lookup with a Redis cache. Only successful
// answers are cached; cache failures fall through to the lookup.
type CachedLookup struct {
	next   geo.Lookup
	client CacheClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedLookup wraps next. A non-positive ttl uses DefaultCacheTTL.
func NewCachedLookup(next geo.Lookup, client CacheClient, ttl time.Duration, logger *zap.Logger) *CachedLookup {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedLookup{next: next, client: client, ttl: ttl, logger: logging.OrNop(logger)}
}

// CountryForIP answers from the cache or the wrapped lookup
func (c *CachedLookup) CountryForIP(ctx context.Context, addr netip.Addr) (string, error) {
	key := cacheKeyPrefix + addr.String()

	code, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		c.logger.Debug("geo cache hit", zap.String("address", addr.String()))
		return code, nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("geo cache get error", zap.String("address", addr.String()), zap.Error(err))
	}

	code, err = c.next.CountryForIP(ctx, addr)
	if err != nil {
		return "", err
	}

	if err := c.client.Set(ctx, key, code, c.ttl).Err(); err != nil {
		c.logger.Warn("geo cache set error", zap.String("address", addr.String()), zap.Error(err))
	}
	return code, nil
}
