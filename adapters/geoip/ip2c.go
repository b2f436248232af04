// Package geoip implements geo.Lookup against ip2c-style services,
// optionally cached in Redis.
package geoip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "vat-calculator/internal/errors"
	"vat-calculator/internal/logging"
	"vat-calculator/internal/metrics"
)

// DefaultBaseURL is the public ip2c service
const DefaultBaseURL = "https://ip2c.org"

// ErrUnknown means the service has no country for the address
var ErrUnknown = errors.New("unknown IP address")

// Config holds client settings
type Config struct {
	// BaseURL is the service root; the address is appended as a path segment
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// Timeout bounds one lookup
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// DefaultConfig returns the public service with a 3s timeout
func DefaultConfig() Config {
	return Config{BaseURL: DefaultBaseURL, Timeout: 3 * time.Second}
}

// IP2CClient looks addresses up over HTTP. Answers are lines of the
// form "1;DE;DEU;Germany"; a leading 0 means bad input and 2 means
// unknown.
type IP2CClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewIP2CClient creates a client. Zero config fields take their defaults.
func NewIP2CClient(cfg Config, logger *zap.Logger) *IP2CClient {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &IP2CClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.OrNop(logger),
	}
}

// CountryForIP returns the alpha-2 code of addr
func (c *IP2CClient) CountryForIP(ctx context.Context, addr netip.Addr) (string, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", apperrors.Internal("failed to build geolocation request", err)
	}
	req.Header.Set("Accept", "text/plain")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveUpstream("ip2c", start)
	if err != nil {
		return "", apperrors.Network("geolocation request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.Newf(apperrors.TypeNetwork, "geolocation service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", apperrors.Network("failed to read geolocation response", err)
	}

	code, err := ParseIP2C(string(body))
	if err != nil {
		c.logger.Debug("no country for address", zap.String("address", addr.String()), zap.Error(err))
		return "", err
	}
	return code, nil
}

// ParseIP2C extracts the country code from an ip2c answer
func ParseIP2C(answer string) (string, error) {
	fields := strings.Split(strings.TrimSpace(answer), ";")
	if len(fields) < 2 {
		return "", apperrors.Parsing(fmt.Sprintf("malformed geolocation answer %q", answer), nil)
	}
	if fields[0] != "1" {
		return "", ErrUnknown
	}
	return fields[1], nil
}
