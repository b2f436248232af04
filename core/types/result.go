// Package types - Calculation result types
package types

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places monetary outputs are rounded to
const MoneyPlaces = 2

// Resolution is the outcome of resolving a rate for a location
type Resolution struct {
	// Rate is the resolved fraction in [0, 1]
	Rate decimal.Decimal `json:"rate"`

	// Country is the normalized input country
	Country CountryCode `json:"country"`

	// EffectiveCountry is the country after postal-code rules were applied
	EffectiveCountry CountryCode `json:"effective_country"`

	// Territory names the special territory a postal rule matched, if any
	Territory string `json:"territory,omitempty"`

	// RateType is the requested rate category
	RateType RateType `json:"rate_type,omitempty"`

	// Source records which rule produced Rate
	Source RateSource `json:"source"`
}

// CalculationResult is the full result of a net or gross calculation
type CalculationResult struct {
	Resolution

	// PostalCode is the postal code the calculation used
	PostalCode string `json:"postal_code,omitempty"`

	// Company is true when the customer was treated as a business
	Company bool `json:"company"`

	// NetPrice is the amount before tax
	NetPrice decimal.Decimal `json:"net_price"`

	// TaxValue is the tax amount
	TaxValue decimal.Decimal `json:"tax_value"`

	// GrossPrice is the amount including tax
	GrossPrice decimal.Decimal `json:"gross_price"`
}

// RoundMoney rounds an amount to MoneyPlaces, half away from zero
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
