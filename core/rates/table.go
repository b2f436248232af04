// Package rates holds the built-in VAT rate table and the postal-code
// rules for special territories.
// Both are immutable after construction and safe for concurrent reads.
package rates

import (
	"sort"

	"github.com/shopspring/decimal"

	"vat-calculator/core/types"
)

// CountryRate is the VAT regime of one country
type CountryRate struct {
	// Standard is the default rate
	Standard decimal.Decimal `json:"standard" yaml:"standard"`

	// Named maps rate-type labels to their rates
	Named map[types.RateType]decimal.Decimal `json:"named,omitempty" yaml:"named,omitempty"`

	// Territories maps special-territory names to a rate that replaces
	// every rate of the country inside that territory
	Territories map[string]decimal.Decimal `json:"territories,omitempty" yaml:"territories,omitempty"`
}

// RateFor returns the named rate for t, or Standard when t is empty or unknown
func (r CountryRate) RateFor(t types.RateType) decimal.Decimal {
	if t != types.RateDefault {
		if rate, ok := r.Named[t]; ok {
			return rate
		}
	}
	return r.Standard
}

// TerritoryRate returns the rate of a named territory, if the table has one
func (r CountryRate) TerritoryRate(name string) (decimal.Decimal, bool) {
	if name == "" {
		return decimal.Zero, false
	}
	rate, ok := r.Territories[name]
	return rate, ok
}

// Table maps country codes to their VAT regime
type Table struct {
	rates map[types.CountryCode]CountryRate
}

// NewTable creates a table from the given entries.
// Keys are normalized; later duplicates win.
func NewTable(entries map[types.CountryCode]CountryRate) *Table {
	t := &Table{rates: make(map[types.CountryCode]CountryRate, len(entries))}
	for code, rate := range entries {
		t.rates[types.Country(string(code))] = rate
	}
	return t
}

var builtin = NewTable(builtinRates)

// Default returns the built-in table
func Default() *Table {
	return builtin
}

// Lookup returns the regime of a country
func (t *Table) Lookup(code types.CountryCode) (CountryRate, bool) {
	rate, ok := t.rates[types.Country(string(code))]
	return rate, ok
}

// Has reports whether the table knows a country
func (t *Table) Has(code types.CountryCode) bool {
	_, ok := t.Lookup(code)
	return ok
}

// Codes returns every known country code in sorted order
func (t *Table) Codes() []types.CountryCode {
	codes := make([]types.CountryCode, 0, len(t.rates))
	for code := range t.rates {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Len returns the number of countries
func (t *Table) Len() int {
	return len(t.rates)
}
