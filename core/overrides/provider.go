// Package overrides defines the configuration source that can replace
// built-in VAT rates per country.
// File, viper and Redis implementations live in adapters/rulestore;
// MapProvider is the in-memory one.
package overrides

import (
	"strings"

	"vat-calculator/core/types"
)

// Keys read from a Provider
const (
	// RulesPrefix prefixes per-country rule keys: rules.DE
	RulesPrefix = "rules."

	// KeyBusinessCountry holds the seller's own country code
	KeyBusinessCountry = "business_country_code"

	// KeyForwardFaults makes VAT-number checks surface remote faults
	KeyForwardFaults = "forward_soap_faults"
)

// Provider is a key/value configuration source.
// Absence of a key means "defer to the built-in table".
type Provider interface {
	// Has reports whether key is set
	Has(key string) bool

	// Get returns the value of key, or fallback when it is not set.
	// Rule values are a bare number or a map with "rate" and "rates".
	Get(key string, fallback any) any
}

// RuleKey returns the provider key of a country's rule
func RuleKey(country types.CountryCode) string {
	return RulesPrefix + strings.ToUpper(string(country))
}

// BusinessCountry reads the seller's country, empty when unset
func BusinessCountry(p Provider) types.CountryCode {
	if p == nil || !p.Has(KeyBusinessCountry) {
		return ""
	}
	s, _ := p.Get(KeyBusinessCountry, "").(string)
	return types.Country(s)
}

// ForwardFaults reads the fault-forwarding flag, false when unset
func ForwardFaults(p Provider) bool {
	if p == nil || !p.Has(KeyForwardFaults) {
		return false
	}
	switch v := p.Get(KeyForwardFaults, false).(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true
		}
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	}
	return false
}
