// Package app assembles the calculator and its adapters from configuration.
// Both the CLI and the API server start here.
package app

import (
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vat-calculator/adapters/geoip"
	"vat-calculator/adapters/rulestore"
	"vat-calculator/adapters/viesclient"
	"vat-calculator/core/calculator"
	"vat-calculator/core/geo"
	"vat-calculator/core/overrides"
	"vat-calculator/core/resolver"
	"vat-calculator/core/vies"
	"vat-calculator/internal/config"
	apperrors "vat-calculator/internal/errors"
	"vat-calculator/internal/logging"
)

// App holds the wired components
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Overrides overrides.Chain
	Resolver  *resolver.Resolver
	Validator *vies.Validator
	Geo       *geo.Resolver

	redis *redis.Client
}

// New wires an App. Nothing here touches the network; Redis and the
// remote services are only contacted on first use.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger = logging.OrNop(logger)

	a := &App{Config: cfg, Logger: logger}
	if cfg.Redis.Enabled {
		a.redis = rulestore.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}

	chain, err := a.buildOverrides()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Overrides = chain

	a.Resolver = resolver.New(
		resolver.WithOverrides(chain),
		resolver.WithLogger(logger.Named("resolver")),
	)
	a.Validator = vies.NewValidator(a.buildChecker(),
		vies.WithProvider(chain),
		vies.WithLogger(logger.Named("vies")),
	)
	a.Geo = geo.NewResolver(a.buildLookup(), logger.Named("geo"))

	logger.Debug("application wired",
		zap.Int("override_sources", len(chain)),
		zap.Bool("redis", a.redis != nil),
		zap.Bool("vies", cfg.VIES.Enabled),
		zap.Bool("geo", cfg.Geo.Enabled),
	)
	return a, nil
}

// buildOverrides chains the override sources, highest priority first:
// Redis, rule files in the order given, then the vat_calculator section
// of the config.
func (a *App) buildOverrides() (overrides.Chain, error) {
	var chain overrides.Chain

	if a.Config.Overrides.Redis {
		if a.redis == nil {
			return nil, apperrors.Config("overrides.redis requires redis.enabled", nil)
		}
		chain = append(chain, rulestore.NewRedisProvider(a.redis,
			rulestore.WithKeyPrefix(a.Config.Overrides.RedisKeyPrefix),
			rulestore.WithLogger(a.Logger.Named("overrides")),
		))
	}

	for _, path := range a.Config.Overrides.Files {
		p, err := LoadRulesFile(path)
		if err != nil {
			return nil, err
		}
		a.Logger.Debug("loaded override rules", zap.String("path", path), zap.Int("keys", len(p.Keys())))
		chain = append(chain, p)
	}

	chain = append(chain, rulestore.NewViperProvider(a.Config.Viper(), rulestore.DefaultViperPrefix))
	return chain, nil
}

// LoadRulesFile loads an HCL or YAML rules file, chosen by extension
func LoadRulesFile(path string) (*overrides.MapProvider, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return rulestore.LoadHCLFile(path)
	case ".yaml", ".yml":
		return rulestore.LoadYAMLFile(path)
	default:
		return nil, apperrors.Newf(apperrors.TypeConfig, "unsupported rules file %q: want .hcl, .yaml or .yml", path)
	}
}

func (a *App) buildChecker() vies.Checker {
	if !a.Config.VIES.Enabled {
		return nil
	}
	return viesclient.New(viesclient.Config{
		Endpoint: a.Config.VIES.Endpoint,
		Timeout:  a.Config.VIES.Timeout,
	}, a.Logger.Named("viesclient"))
}

func (a *App) buildLookup() geo.Lookup {
	if !a.Config.Geo.Enabled {
		return nil
	}
	var lookup geo.Lookup = geoip.NewIP2CClient(geoip.Config{
		BaseURL: a.Config.Geo.BaseURL,
		Timeout: a.Config.Geo.Timeout,
	}, a.Logger.Named("geoip"))
	if a.redis != nil && a.Config.Geo.CacheTTL > 0 {
		lookup = geoip.NewCachedLookup(lookup, a.redis, a.Config.Geo.CacheTTL, a.Logger.Named("geoip"))
	}
	return lookup
}

// Calculator returns a fresh calculator over the shared resolver
func (a *App) Calculator() *calculator.Calculator {
	return calculator.New(
		calculator.WithResolver(a.Resolver),
		calculator.WithLogger(a.Logger.Named("calculator")),
	)
}

// Redis returns the shared client, nil when Redis is disabled
func (a *App) Redis() *redis.Client {
	return a.redis
}

// Close releases the Redis connection pool
func (a *App) Close() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}
