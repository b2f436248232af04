// Package types defines core domain types shared across all layers.
// This package contains NO business logic - only type definitions.
package types

import "strings"

// CountryCode is an ISO-3166 alpha-2 country code
type CountryCode string

// Country normalizes a raw country code to trimmed upper case.
// VIES writes Greece as EL; it is folded to GR here.
func Country(raw string) CountryCode {
	code := CountryCode(strings.ToUpper(strings.TrimSpace(raw)))
	if code == "EL" {
		return "GR"
	}
	return code
}

// String returns the string representation of the country code
func (c CountryCode) String() string {
	return string(c)
}

// IsEmpty reports whether no country was given
func (c CountryCode) IsEmpty() bool {
	return c == ""
}

// IsAlpha2 checks that the code has the shape of an alpha-2 code.
// It says nothing about whether the country is known.
func (c CountryCode) IsAlpha2() bool {
	if len(c) != 2 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// RateType labels a rate category such as "high" or "low".
// The empty RateType selects a source's default rate.
type RateType string

const (
	RateDefault      RateType = ""
	RateHigh         RateType = "high"
	RateLow          RateType = "low"
	RateSuperReduced RateType = "super-reduced"
)

// String returns the string representation of the rate type
func (t RateType) String() string {
	return string(t)
}

// RateSource records which rule produced a resolved rate
type RateSource string

const (
	// SourceReverseCharge: cross-border business sale, the buyer accounts for VAT
	SourceReverseCharge RateSource = "reverse_charge"

	// SourcePostalExempt: the postal code lies in a VAT-exempt territory
	SourcePostalExempt RateSource = "postal_exempt"

	// SourceOverride: the override provider supplied the rate
	SourceOverride RateSource = "override"

	// SourceTerritory: a special territory rate from the built-in table
	SourceTerritory RateSource = "territory"

	// SourceTable: the built-in country table supplied the rate
	SourceTable RateSource = "table"

	// SourceUnknown: no source knows the country; rate is zero
	SourceUnknown RateSource = "unknown"
)

// String returns the string representation of the source
func (s RateSource) String() string {
	return string(s)
}
