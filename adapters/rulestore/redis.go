package rulestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vat-calculator/core/overrides"
	"vat-calculator/core/types"
	apperrors "vat-calculator/internal/errors"
	"vat-calculator/internal/logging"
)

const (
	// DefaultRedisKeyPrefix namespaces override keys in Redis
	DefaultRedisKeyPrefix = "vatcalc:overrides:"

	defaultRedisTimeout = 500 * time.Millisecond
)

// RedisClient is the part of *redis.Client the provider uses
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisProvider reads overrides shared between instances from Redis.
// Values are JSON: a number for a flat rule, an object with rate and
// rates for a structured one, a string for business_country_code.
//
// Provider calls carry no context, so each lookup runs under its own
// timeout. A Redis failure is logged and the key treated as absent,
// which makes the resolver fall back to the built-in table.
type RedisProvider struct {
	client  RedisClient
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

// RedisOption configures a RedisProvider
type RedisOption func(*RedisProvider)

// WithKeyPrefix sets the Redis key prefix
func WithKeyPrefix(prefix string) RedisOption {
	return func(p *RedisProvider) { p.prefix = prefix }
}

// WithTimeout bounds every Redis call
func WithTimeout(d time.Duration) RedisOption {
	return func(p *RedisProvider) { p.timeout = d }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) RedisOption {
	return func(p *RedisProvider) { p.logger = l }
}

// NewRedisProvider creates a provider over client
func NewRedisProvider(client RedisClient, opts ...RedisOption) *RedisProvider {
	p := &RedisProvider{
		client:  client,
		prefix:  DefaultRedisKeyPrefix,
		timeout: defaultRedisTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrNop(p.logger)
	return p
}

// NewRedisClient connects to Redis
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (p *RedisProvider) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), p.timeout)
}

// Has reports whether the key exists in Redis
func (p *RedisProvider) Has(key string) bool {
	ctx, cancel := p.ctx()
	defer cancel()

	n, err := p.client.Exists(ctx, p.prefix+key).Result()
	if err != nil {
		p.logger.Warn("override lookup failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return n > 0
}

// Get returns the decoded value of key or fallback. Values that are
// not JSON are returned as raw strings.
func (p *RedisProvider) Get(key string, fallback any) any {
	ctx, cancel := p.ctx()
	defer cancel()

	data, err := p.client.Get(ctx, p.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fallback
	}
	if err != nil {
		p.logger.Warn("override lookup failed", zap.String("key", key), zap.Error(err))
		return fallback
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(data)
	}
	return v
}

// PutRule stores the rule of a country
func (p *RedisProvider) PutRule(ctx context.Context, country types.CountryCode, rule overrides.Rule) error {
	if err := rule.Validate(); err != nil {
		return apperrors.Wrap(apperrors.TypeInput, "invalid rule", err)
	}
	return p.put(ctx, overrides.RuleKey(country), encodeRule(rule))
}

// PutBusinessCountry stores the seller's country
func (p *RedisProvider) PutBusinessCountry(ctx context.Context, country types.CountryCode) error {
	return p.put(ctx, overrides.KeyBusinessCountry, country.String())
}

// DeleteRule removes the rule of a country
func (p *RedisProvider) DeleteRule(ctx context.Context, country types.CountryCode) error {
	if err := p.client.Del(ctx, p.prefix+overrides.RuleKey(country)).Err(); err != nil {
		return apperrors.Network("failed to delete override", err)
	}
	return nil
}

func (p *RedisProvider) put(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.Internal("failed to encode override", err)
	}
	if err := p.client.Set(ctx, p.prefix+key, data, 0).Err(); err != nil {
		return apperrors.Network("failed to store override", err).WithContext("key", key)
	}
	p.logger.Debug("override stored", zap.String("key", key))
	return nil
}
