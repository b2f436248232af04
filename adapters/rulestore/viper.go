package rulestore

import (
	"github.com/spf13/viper"
)

// DefaultViperPrefix is the config section overrides are read from
const DefaultViperPrefix = "vat_calculator"

// ViperProvider reads overrides from a section of the application
// config, for example:
//
//	vat_calculator:
//	  business_country_code: DE
//	  rules:
//	    DE: 0.19
//
// Viper keys are case-insensitive, so rules.de and rules.DE are the same key.
type ViperProvider struct {
	v      *viper.Viper
	prefix string
}

// NewViperProvider creates a provider over v. An empty prefix reads
// keys from the root.
func NewViperProvider(v *viper.Viper, prefix string) *ViperProvider {
	return &ViperProvider{v: v, prefix: prefix}
}

func (p *ViperProvider) key(k string) string {
	if p.prefix == "" {
		return k
	}
	return p.prefix + "." + k
}

// Has reports whether the key is set in the config
func (p *ViperProvider) Has(key string) bool {
	return p.v.IsSet(p.key(key))
}

// Get returns the value of key or fallback
func (p *ViperProvider) Get(key string, fallback any) any {
	k := p.key(key)
	if !p.v.IsSet(k) {
		return fallback
	}
	return p.v.Get(k)
}
