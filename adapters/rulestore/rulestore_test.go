package rulestore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vat-calculator/core/overrides"
	"vat-calculator/core/resolver"
	"vat-calculator/core/types"
	apperrors "vat-calculator/internal/errors"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireRule(t *testing.T, p overrides.Provider, country types.CountryCode) overrides.Rule {
	t.Helper()
	rule, ok, err := overrides.Lookup(p, country)
	require.NoError(t, err)
	require.True(t, ok, "no rule for %s", country)
	return rule
}

const hclRules = `
business_country_code = "de"
forward_soap_faults   = true

rule "NL" {
  rate = 0.21
}

rule "de" {
  rate  = 0.19
  rates = { high = 0.5, low = 0.07 }
}
`

func TestLoadHCL(t *testing.T) {
	p, err := LoadHCL([]byte(hclRules), "rules.hcl")
	require.NoError(t, err)

	assert.Equal(t, types.CountryCode("DE"), overrides.BusinessCountry(p))
	assert.True(t, overrides.ForwardFaults(p))

	nl := requireRule(t, p, "NL")
	assert.True(t, nl.Flat)
	assert.True(t, dec("0.21").Equal(nl.RateFor(types.RateLow)))

	de := requireRule(t, p, "DE")
	assert.False(t, de.Flat)
	assert.True(t, dec("0.5").Equal(de.RateFor(types.RateHigh)))
	assert.True(t, dec("0.07").Equal(de.RateFor(types.RateLow)))
	assert.True(t, dec("0.19").Equal(de.RateFor(types.RateDefault)))
}

func TestLoadHCLErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "syntax", src: `rule "DE" {`},
		{name: "missing rate", src: `rule "DE" { rates = { low = 0.1 } }`},
		{name: "rate above one", src: `rule "DE" { rate = 1.5 }`},
		{name: "named rate negative", src: "rule \"DE\" {\n  rate  = 0.1\n  rates = { low = -0.1 }\n}"},
		{name: "duplicate", src: "rule \"DE\" { rate = 0.1 }\nrule \"de\" { rate = 0.2 }"},
		{name: "business country not a string", src: `business_country_code = 5`},
		{name: "forward faults not a bool", src: `forward_soap_faults = "maybe"`},
		{name: "unknown attribute", src: `currency = "EUR"`},
		{name: "variable reference", src: `rule "DE" { rate = var.rate }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadHCL([]byte(tt.src), "bad.hcl")
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.TypeParsing), "%v", err)
		})
	}
}

func TestLoadHCLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.hcl")
	require.NoError(t, os.WriteFile(path, []byte(hclRules), 0o644))

	p, err := LoadHCLFile(path)
	require.NoError(t, err)
	assert.True(t, p.Has("rules.NL"))

	_, err = LoadHCLFile(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.True(t, apperrors.IsType(err, apperrors.TypeConfig))
}

const yamlRules = `
business_country_code: NL
forward_soap_faults: false
rules:
  nl: 0.21
  DE:
    rate: 0.19
    rates:
      high: 0.50
      low: 0.07
`

func TestLoadYAML(t *testing.T) {
	p, err := LoadYAML([]byte(yamlRules))
	require.NoError(t, err)

	assert.Equal(t, types.CountryCode("NL"), overrides.BusinessCountry(p))
	assert.True(t, p.Has(overrides.KeyForwardFaults))
	assert.False(t, overrides.ForwardFaults(p))

	assert.True(t, requireRule(t, p, "NL").Flat)
	de := requireRule(t, p, "DE")
	assert.True(t, dec("0.07").Equal(de.RateFor(types.RateLow)))
}

func TestLoadYAMLErrors(t *testing.T) {
	for _, src := range []string{
		"rules: [1, 2]",
		"rules:\n  DE: lots",
		"rules:\n  DE:\n    rates: {low: 0.1}",
		"rules:\n  DE: 19",
	} {
		_, err := LoadYAML([]byte(src))
		assert.Error(t, err, src)
	}
}

func TestDumpRoundTrip(t *testing.T) {
	p, err := LoadYAML([]byte(yamlRules))
	require.NoError(t, err)

	out, err := Dump(p)
	require.NoError(t, err)

	again, err := LoadYAML(out)
	require.NoError(t, err)
	assert.Equal(t, p.Keys(), again.Keys())
	assert.True(t, dec("0.5").Equal(requireRule(t, again, "DE").RateFor(types.RateHigh)))
	assert.True(t, requireRule(t, again, "NL").Flat)
}

func TestViperProvider(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
vat_calculator:
  business_country_code: DE
  forward_soap_faults: true
  rules:
    DE: 0.5
    NL:
      rate: 0.21
      rates:
        low: 0.09
`)))

	p := NewViperProvider(v, DefaultViperPrefix)
	assert.True(t, p.Has("rules.DE"))
	assert.False(t, p.Has("rules.FR"))
	assert.Equal(t, "fallback", p.Get("rules.FR", "fallback"))

	assert.Equal(t, types.CountryCode("DE"), overrides.BusinessCountry(p))
	assert.True(t, overrides.ForwardFaults(p))
	assert.True(t, dec("0.5").Equal(requireRule(t, p, "DE").Rate))
	assert.True(t, dec("0.09").Equal(requireRule(t, p, "NL").RateFor(types.RateLow)))

	root := NewViperProvider(v, "")
	assert.True(t, root.Has("vat_calculator.rules.de"))
}

// memoryRedis implements RedisClient over a map
type memoryRedis struct {
	data map[string]string
	err  error
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *memoryRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisProvider(t *testing.T) {
	client := newMemoryRedis()
	p := NewRedisProvider(client)
	ctx := context.Background()

	require.NoError(t, p.PutRule(ctx, "de", overrides.FlatRule(dec("0.5"))))
	require.NoError(t, p.PutRule(ctx, "NL", overrides.StructuredRule(dec("0.21"),
		map[types.RateType]decimal.Decimal{types.RateLow: dec("0.09")})))
	require.NoError(t, p.PutBusinessCountry(ctx, "AT"))

	assert.Contains(t, client.data, DefaultRedisKeyPrefix+"rules.DE")
	assert.True(t, p.Has("rules.DE"))
	assert.False(t, p.Has("rules.FR"))
	assert.Equal(t, 0, p.Get("rules.FR", 0))

	assert.True(t, dec("0.5").Equal(requireRule(t, p, "DE").RateFor(types.RateHigh)))
	assert.True(t, dec("0.09").Equal(requireRule(t, p, "NL").RateFor(types.RateLow)))
	assert.Equal(t, types.CountryCode("AT"), overrides.BusinessCountry(p))

	require.NoError(t, p.DeleteRule(ctx, "DE"))
	assert.False(t, p.Has("rules.DE"))
}

func TestRedisProviderRejectsInvalidRule(t *testing.T) {
	err := NewRedisProvider(newMemoryRedis()).PutRule(context.Background(), "DE", overrides.FlatRule(dec("2")))
	assert.True(t, apperrors.IsType(err, apperrors.TypeInput))
}

func TestRedisProviderRawStringAndFailures(t *testing.T) {
	client := newMemoryRedis()
	client.data["vat:business_country_code"] = "SE"
	p := NewRedisProvider(client, WithKeyPrefix("vat:"), WithTimeout(time.Second))
	assert.Equal(t, types.CountryCode("SE"), overrides.BusinessCountry(p))

	client.err = errors.New("connection refused")
	assert.False(t, p.Has("rules.DE"))
	assert.Equal(t, "fallback", p.Get("rules.DE", "fallback"))
	assert.True(t, apperrors.IsType(p.PutBusinessCountry(context.Background(), "DE"), apperrors.TypeNetwork))
}

// getFailingRedis answers EXISTS from the store but fails every GET
type getFailingRedis struct {
	*memoryRedis
	getErr error
}

func (g getFailingRedis) Get(_ context.Context, _ string) *redis.StringCmd {
	return redis.NewStringResult("", g.getErr)
}

func TestRedisReadFailureFallsBackToTable(t *testing.T) {
	tests := []struct {
		name string
		rule overrides.Rule
	}{
		{name: "flat rule at table rate", rule: overrides.FlatRule(dec("0.19"))},
		{name: "flat rule above table rate", rule: overrides.FlatRule(dec("0.5"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryRedis()
			require.NoError(t, NewRedisProvider(store).PutRule(context.Background(), "DE", tt.rule))

			client := getFailingRedis{memoryRedis: store, getErr: errors.New("i/o timeout")}
			p := NewRedisProvider(client)
			require.True(t, p.Has("rules.DE"))

			r := resolver.New(resolver.WithOverrides(p))
			rate := r.ResolveRate(resolver.Query{Country: "DE", RateType: types.RateHigh})
			assert.True(t, dec("0.19").Equal(rate), "got %s", rate)
		})
	}
}
