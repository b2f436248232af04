package rates

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vat-calculator/core/types"
)

func TestDefaultTableRates(t *testing.T) {
	tests := []struct {
		country  types.CountryCode
		rateType types.RateType
		want     string
	}{
		{country: "DE", rateType: types.RateDefault, want: "0.19"},
		{country: "DE", rateType: types.RateLow, want: "0.07"},
		{country: "NL", rateType: types.RateHigh, want: "0.21"},
		{country: "NL", rateType: types.RateLow, want: "0.09"},
		{country: "ES", rateType: types.RateDefault, want: "0.21"},
		{country: "GB", rateType: types.RateDefault, want: "0.20"},
		{country: "PT", rateType: types.RateDefault, want: "0.23"},
		{country: "FR", rateType: types.RateSuperReduced, want: "0.021"},
		// unknown label falls back to the standard rate
		{country: "DK", rateType: types.RateLow, want: "0.25"},
		{country: "DK", rateType: "parking", want: "0.25"},
		{country: "el", rateType: types.RateDefault, want: "0.24"},
	}

	table := Default()
	for _, tt := range tests {
		t.Run(string(tt.country)+"/"+string(tt.rateType), func(t *testing.T) {
			entry, ok := table.Lookup(tt.country)
			require.True(t, ok)
			got := entry.RateFor(tt.rateType)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestDefaultTableRatesAreFractions(t *testing.T) {
	one := decimal.NewFromInt(1)
	for _, code := range Default().Codes() {
		entry, _ := Default().Lookup(code)
		assert.True(t, entry.Standard.IsPositive() && entry.Standard.LessThanOrEqual(one), "%s standard", code)
		for label, rate := range entry.Named {
			assert.False(t, rate.IsNegative() || rate.GreaterThan(one), "%s %s", code, label)
		}
		for name, rate := range entry.Territories {
			assert.False(t, rate.IsNegative() || rate.GreaterThan(one), "%s %s", code, name)
		}
	}
}

func TestTableUnknownCountry(t *testing.T) {
	assert.False(t, Default().Has("XXX"))
	assert.False(t, Default().Has(""))
	assert.True(t, Default().Has("de"))
}

func TestTableCodesSorted(t *testing.T) {
	codes := Default().Codes()
	require.Len(t, codes, Default().Len())
	for i := 1; i < len(codes); i++ {
		assert.Less(t, codes[i-1], codes[i])
	}
}

func TestNewTableNormalizesKeys(t *testing.T) {
	table := NewTable(map[types.CountryCode]CountryRate{
		" xx": {Standard: decimal.RequireFromString("0.10")},
	})
	entry, ok := table.Lookup("XX")
	require.True(t, ok)
	assert.True(t, entry.Standard.Equal(decimal.RequireFromString("0.10")))
}

func TestMatcher(t *testing.T) {
	tests := []struct {
		name    string
		matcher Matcher
		code    string
		want    bool
	}{
		{name: "exact hit", matcher: Exact("27498"), code: "27498", want: true},
		{name: "exact miss", matcher: Exact("27498"), code: "27499", want: false},
		{name: "exact normalized token", matcher: Exact("bfpo 58"), code: "BFPO58", want: true},
		{name: "range low bound", matcher: Range(35000, 35999, 5), code: "35000", want: true},
		{name: "range high bound", matcher: Range(35000, 35999, 5), code: "35999", want: true},
		{name: "range outside", matcher: Range(35000, 35999, 5), code: "36000", want: false},
		{name: "range too short", matcher: Range(9000, 9499, 4), code: "912", want: false},
		{name: "range with extension", matcher: Range(9000, 9499, 4), code: "9000123", want: true},
		{name: "range rejects letters", matcher: Range(35000, 35999, 5), code: "35A01", want: false},
		{name: "prefix hit", matcher: Prefix("BFPO"), code: "BFPO58", want: true},
		{name: "prefix miss", matcher: Prefix("BFPO"), code: "S1A2AA", want: false},
		{name: "empty prefix never matches", matcher: Prefix(""), code: "12345", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.matcher.Match(tt.code))
		})
	}
}

func TestNormalizePostalCode(t *testing.T) {
	assert.Equal(t, "BFPO58", NormalizePostalCode("bfpo 58"))
	assert.Equal(t, "9000123", NormalizePostalCode("9000-123"))
	assert.Equal(t, "S1A2AA", NormalizePostalCode(" S1A\t2AA "))
	assert.Equal(t, "", NormalizePostalCode("  "))
}

func TestDefaultPostalResolver(t *testing.T) {
	tests := []struct {
		name      string
		country   types.CountryCode
		postal    string
		found     bool
		outcome   OutcomeKind
		effective types.CountryCode
		territory string
	}{
		{name: "Heligoland", country: "DE", postal: "27498", found: true, outcome: OutcomeExempt, effective: "DE", territory: "Heligoland"},
		{name: "Jungholz", country: "AT", postal: "6691", found: true, outcome: OutcomeRedirect, effective: "DE", territory: "Jungholz"},
		{name: "Mittelberg", country: "AT", postal: "6992", found: true, outcome: OutcomeRedirect, effective: "DE", territory: "Mittelberg"},
		{name: "Dhekelia", country: "GB", postal: "BFPO58", found: true, outcome: OutcomeRedirect, effective: "CY", territory: "Dhekelia"},
		{name: "Dhekelia spaced", country: "gb", postal: "BFPO 58", found: true, outcome: OutcomeRedirect, effective: "CY", territory: "Dhekelia"},
		{name: "Madeira", country: "PT", postal: "9122", found: true, outcome: OutcomeTerritory, effective: "PT", territory: TerritoryMadeira},
		{name: "Azores", country: "PT", postal: "9500-100", found: true, outcome: OutcomeTerritory, effective: "PT", territory: TerritoryAzores},
		{name: "Canary Islands", country: "ES", postal: "38001", found: true, outcome: OutcomeExempt, effective: "ES", territory: "Canary Islands"},
		{name: "Mount Athos via EL", country: "EL", postal: "63086", found: true, outcome: OutcomeExempt, effective: "GR", territory: "Mount Athos"},
		{name: "Madrid", country: "ES", postal: "28001", found: false},
		{name: "garbage", country: "ES", postal: "IGHJ987ERT35", found: false},
		{name: "Sheffield", country: "GB", postal: "S1A 2AA", found: false},
		{name: "empty postal", country: "DE", postal: "", found: false},
		{name: "country without rules", country: "NL", postal: "1011", found: false},
	}

	resolver := DefaultPostalResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := resolver.Resolve(tt.country, tt.postal)
			require.Equal(t, tt.found, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.outcome, rule.Outcome.Kind)
			assert.Equal(t, tt.effective, rule.EffectiveCountry())
			assert.Equal(t, tt.territory, rule.Name)
		})
	}
}

func TestPostalRulesEvaluatedExactBeforeRangeBeforePrefix(t *testing.T) {
	resolver := NewPostalResolver([]PostalRule{
		{Country: "XX", Name: "prefix", Match: Prefix("12"), Outcome: Exempt()},
		{Country: "XX", Name: "range", Match: Range(12000, 12999, 5), Outcome: Redirect("DE")},
		{Country: "XX", Name: "exact", Match: Exact("12345"), Outcome: Redirect("AT")},
	})

	rule, ok := resolver.Resolve("XX", "12345")
	require.True(t, ok)
	assert.Equal(t, "exact", rule.Name)

	rule, ok = resolver.Resolve("XX", "12346")
	require.True(t, ok)
	assert.Equal(t, "range", rule.Name)

	rule, ok = resolver.Resolve("XX", "12AB")
	require.True(t, ok)
	assert.Equal(t, "prefix", rule.Name)

	names := make([]string, 0, 3)
	for _, r := range resolver.Rules("xx") {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"exact", "range", "prefix"}, names)
}

func TestTerritoryRate(t *testing.T) {
	pt, ok := Default().Lookup("PT")
	require.True(t, ok)

	rate, ok := pt.TerritoryRate(TerritoryMadeira)
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.22")))

	_, ok = pt.TerritoryRate("")
	assert.False(t, ok)
}
