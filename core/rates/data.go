package rates

import (
	"github.com/shopspring/decimal"

	"vat-calculator/core/types"
)

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// named builds the rate-type map of a country. "high" always mirrors the
// standard rate; "low" is the main reduced rate.
func named(standard, low string, extra map[types.RateType]string) map[types.RateType]decimal.Decimal {
	m := map[types.RateType]decimal.Decimal{
		types.RateHigh: pct(standard),
	}
	if low != "" {
		m[types.RateLow] = pct(low)
	}
	for k, v := range extra {
		m[k] = pct(v)
	}
	return m
}

func regime(standard, low string, extra map[types.RateType]string) CountryRate {
	return CountryRate{
		Standard: pct(standard),
		Named:    named(standard, low, extra),
	}
}

func superReduced(rate string) map[types.RateType]string {
	return map[types.RateType]string{types.RateSuperReduced: rate}
}

var builtinRates = map[types.CountryCode]CountryRate{
	"AT": regime("0.20", "0.10", nil),
	"BE": regime("0.21", "0.06", nil),
	"BG": regime("0.20", "0.09", nil),
	"CY": regime("0.19", "0.05", nil),
	"CZ": regime("0.21", "0.15", nil),
	"DE": regime("0.19", "0.07", nil),
	"DK": regime("0.25", "", nil),
	"EE": regime("0.20", "0.09", nil),
	"ES": regime("0.21", "0.10", superReduced("0.04")),
	"FI": regime("0.24", "0.14", nil),
	"FR": regime("0.20", "0.055", superReduced("0.021")),
	"GB": regime("0.20", "0.05", nil),
	"GR": regime("0.24", "0.13", nil),
	"HR": regime("0.25", "0.13", nil),
	"HU": regime("0.27", "0.05", nil),
	"IE": regime("0.23", "0.135", superReduced("0.048")),
	"IT": regime("0.22", "0.10", superReduced("0.04")),
	"LT": regime("0.21", "0.09", nil),
	"LU": regime("0.17", "0.08", superReduced("0.03")),
	"LV": regime("0.21", "0.12", nil),
	"MT": regime("0.18", "0.05", nil),
	"NL": regime("0.21", "0.09", nil),
	"PL": regime("0.23", "0.08", nil),
	"PT": {
		Standard: pct("0.23"),
		Named:    named("0.23", "0.06", nil),
		Territories: map[string]decimal.Decimal{
			TerritoryMadeira: pct("0.22"),
			TerritoryAzores:  pct("0.18"),
		},
	},
	"RO": regime("0.19", "0.09", nil),
	"SE": regime("0.25", "0.12", nil),
	"SI": regime("0.22", "0.095", nil),
	"SK": regime("0.20", "0.10", nil),
}
