// Package config provides configuration management.
//
// Configuration is read with viper from an optional file (YAML, JSON
// or TOML) and VATCALC_* environment variables, e.g.
// VATCALC_SERVER_ADDRESS or VATCALC_VAT_CALCULATOR_BUSINESS_COUNTRY_CODE.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "vat-calculator/internal/errors"
	"vat-calculator/internal/logging"
)

// EnvPrefix prefixes environment variables
const EnvPrefix = "VATCALC"

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `mapstructure:"version"`

	// Logging contains logging configuration
	Logging logging.Config `mapstructure:"logging"`

	// Server contains HTTP API settings
	Server ServerConfig `mapstructure:"server"`

	// VIES contains VAT number registry settings
	VIES VIESConfig `mapstructure:"vies"`

	// Geo contains geolocation settings
	Geo GeoConfig `mapstructure:"geo"`

	// Redis contains the shared Redis connection
	Redis RedisConfig `mapstructure:"redis"`

	// Overrides lists where override rules come from
	Overrides OverridesConfig `mapstructure:"overrides"`

	// Output contains CLI output settings
	Output OutputConfig `mapstructure:"output"`

	// Audit contains API audit settings
	Audit AuditConfig `mapstructure:"audit"`

	v *viper.Viper
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	// Address to listen on
	Address string `mapstructure:"address"`

	// ReadTimeout for requests
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout for responses
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// MaxBodySize limits request body size in bytes
	MaxBodySize int64 `mapstructure:"max_body_size"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Mode is the gin mode (debug, release, test)
	Mode string `mapstructure:"mode"`
}

// VIESConfig contains VAT number registry settings
type VIESConfig struct {
	// Enabled turns registry checks on; when off every check is unavailable
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the checkVatService URL
	Endpoint string `mapstructure:"endpoint"`

	// Timeout bounds one check
	Timeout time.Duration `mapstructure:"timeout"`
}

// GeoConfig contains geolocation settings
type GeoConfig struct {
	// Enabled turns address lookups on
	Enabled bool `mapstructure:"enabled"`

	// BaseURL is the ip2c-style service root
	BaseURL string `mapstructure:"base_url"`

	// Timeout bounds one lookup
	Timeout time.Duration `mapstructure:"timeout"`

	// CacheTTL is how long answers are cached in Redis, when Redis is enabled
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RedisConfig contains the Redis connection
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// OverridesConfig lists override sources. Sources are consulted in
// order: Redis, then files in the order given, then the vat_calculator
// config section.
type OverridesConfig struct {
	// Files are HCL (.hcl) or YAML (.yaml, .yml) rules files
	Files []string `mapstructure:"files"`

	// Redis reads rules from Redis
	Redis bool `mapstructure:"redis"`

	// RedisKeyPrefix namespaces rule keys in Redis
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`
}

// OutputConfig contains CLI output settings
type OutputConfig struct {
	// DefaultFormat is the default output format
	DefaultFormat string `mapstructure:"default_format"`
}

// AuditConfig contains API audit settings. Entries always go to the
// log; Kafka is an additional sink.
type AuditConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// KafkaConfig contains the Kafka producer settings
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Version: "1.0",
		Logging: logging.DefaultConfig(),
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			MaxBodySize:     1 << 20,
			ShutdownTimeout: 10 * time.Second,
			Mode:            "release",
		},
		VIES: VIESConfig{
			Enabled:  true,
			Endpoint: "https://ec.europa.eu/taxation_customs/vies/services/checkVatService",
			Timeout:  10 * time.Second,
		},
		Geo: GeoConfig{
			Enabled:  true,
			BaseURL:  "https://ip2c.org",
			Timeout:  3 * time.Second,
			CacheTTL: 24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Overrides: OverridesConfig{
			RedisKeyPrefix: "vatcalc:overrides:",
		},
		Output: OutputConfig{
			DefaultFormat: "cli",
		},
		Audit: AuditConfig{
			Kafka: KafkaConfig{
				Brokers:      []string{"localhost:9092"},
				Topic:        "vatcalc.audit",
				WriteTimeout: 5 * time.Second,
			},
		},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.development", d.Logging.Development)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("vies.enabled", d.VIES.Enabled)
	v.SetDefault("vies.endpoint", d.VIES.Endpoint)
	v.SetDefault("vies.timeout", d.VIES.Timeout)
	v.SetDefault("geo.enabled", d.Geo.Enabled)
	v.SetDefault("geo.base_url", d.Geo.BaseURL)
	v.SetDefault("geo.timeout", d.Geo.Timeout)
	v.SetDefault("geo.cache_ttl", d.Geo.CacheTTL)
	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("overrides.files", d.Overrides.Files)
	v.SetDefault("overrides.redis", d.Overrides.Redis)
	v.SetDefault("overrides.redis_key_prefix", d.Overrides.RedisKeyPrefix)
	v.SetDefault("output.default_format", d.Output.DefaultFormat)
	v.SetDefault("audit.kafka.enabled", d.Audit.Kafka.Enabled)
	v.SetDefault("audit.kafka.brokers", d.Audit.Kafka.Brokers)
	v.SetDefault("audit.kafka.topic", d.Audit.Kafka.Topic)
	v.SetDefault("audit.kafka.write_timeout", d.Audit.Kafka.WriteTimeout)
}

// Load loads configuration from a file and the environment.
// An empty path searches ./vatcalc.* and ~/.vatcalc/vatcalc.*; a
// missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vatcalc")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".vatcalc"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.Config("failed to read config", err).WithContext("path", path)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.Config("failed to decode config", err)
	}
	cfg.v = v
	return cfg, nil
}

// Viper returns the viper instance the config was read from. It backs
// the vat_calculator override section.
func (c *Config) Viper() *viper.Viper {
	if c.v == nil {
		c.v = viper.New()
		setDefaults(c.v, c)
	}
	return c.v
}

// Save writes the configuration to a file; the format follows the extension
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Config("failed to create config directory", err)
	}
	if err := c.Viper().WriteConfigAs(path); err != nil {
		return apperrors.Config("failed to write config", err).WithContext("path", path)
	}
	return nil
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
