package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"vat-calculator/core/overrides"
	"vat-calculator/core/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(types.MoneyPlaces))
}

func TestCalculateGross(t *testing.T) {
	c := New()
	result := c.Calculate(dec("24.00"), Input{CountryCode: "DE"})

	assertMoney(t, "28.56", result.GrossPrice)
	assertMoney(t, "24.00", result.NetPrice)
	assertMoney(t, "4.56", result.TaxValue)
	assert.True(t, dec("0.19").Equal(result.Rate))

	assertMoney(t, "28.56", c.GrossPrice())
	assertMoney(t, "24.00", c.NetPrice())
	assertMoney(t, "4.56", c.TaxValue())
	assert.True(t, dec("0.19").Equal(c.TaxRate()))
	assert.Equal(t, result, c.LastResult())
}

func TestCalculateNet(t *testing.T) {
	c := New()
	result := c.CalculateNet(dec("28.56"), Input{CountryCode: "DE"})

	assertMoney(t, "24.00", result.NetPrice)
	assertMoney(t, "28.56", result.GrossPrice)
	assertMoney(t, "4.56", result.TaxValue)
	assert.True(t, dec("0.19").Equal(c.TaxRate()))
}

func TestCompanyWithoutBusinessCountryIsReverseCharged(t *testing.T) {
	c := New()
	result := c.Calculate(dec("24.00"), Input{CountryCode: "DE", Company: Company(true)})

	assertMoney(t, "24.00", result.GrossPrice)
	assertMoney(t, "0.00", result.TaxValue)
	assert.True(t, c.TaxRate().IsZero())
	assert.Equal(t, types.SourceReverseCharge, result.Source)
}

func TestBusinessCountryFromProvider(t *testing.T) {
	p := overrides.NewMapProvider(map[string]any{overrides.KeyBusinessCountry: "DE"})
	c := NewWithOverrides(p, nil)
	assert.Equal(t, types.CountryCode("DE"), c.BusinessCountryCode())

	result := c.Calculate(dec("24.00"), Input{CountryCode: "DE", Company: Company(true)})
	assertMoney(t, "28.56", result.GrossPrice)
	assert.True(t, dec("0.19").Equal(c.TaxRate()))

	c.SetBusinessCountryCode("nl")
	assert.Equal(t, types.CountryCode("NL"), c.BusinessCountryCode())
	result = c.Calculate(dec("24.00"), Input{CountryCode: "DE", Company: Company(true)})
	assertMoney(t, "24.00", result.GrossPrice)
	assert.True(t, c.TaxRate().IsZero())
}

func TestExplicitInputsBecomeDefaults(t *testing.T) {
	c := New()
	c.Calculate(dec("24.00"), Input{CountryCode: "nl", PostalCode: "1011", Company: Company(false)})

	assert.Equal(t, types.CountryCode("NL"), c.CountryCode())
	assert.Equal(t, "1011", c.PostalCode())
	assert.False(t, c.IsCompany())

	result := c.Calculate(dec("24.00"), Input{})
	assertMoney(t, "29.04", result.GrossPrice)
	assert.Equal(t, types.CountryCode("NL"), result.Country)
	assert.Equal(t, "1011", result.PostalCode)
}

func TestSettersFeedCalculation(t *testing.T) {
	c := New()
	c.SetCountryCode("DE")
	c.SetPostalCode("27498")
	c.SetCompany(false)

	assert.Equal(t, types.CountryCode("DE"), c.CountryCode())
	assert.Equal(t, "27498", c.PostalCode())

	result := c.Calculate(dec("24.00"), Input{})
	assertMoney(t, "24.00", result.GrossPrice)
	assert.Equal(t, types.SourcePostalExempt, result.Source)
}

func TestGettersBeforeAnyCalculation(t *testing.T) {
	c := New()
	assert.True(t, c.TaxRate().IsZero())
	assert.True(t, c.GrossPrice().IsZero())
	assert.True(t, c.NetPrice().IsZero())
	assert.True(t, c.TaxValue().IsZero())
	assert.Equal(t, types.CountryCode(""), c.CountryCode())
	assert.False(t, c.IsCompany())
}

func TestRateTypes(t *testing.T) {
	tests := []struct {
		name     string
		rateType types.RateType
		gross    string
	}{
		{name: "default", rateType: types.RateDefault, gross: "29.04"},
		{name: "high", rateType: types.RateHigh, gross: "29.04"},
		{name: "low", rateType: types.RateLow, gross: "26.16"},
		{name: "unknown type uses default", rateType: "parking", gross: "29.04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New().Calculate(dec("24.00"), Input{CountryCode: "NL", RateType: tt.rateType})
			assertMoney(t, tt.gross, result.GrossPrice)
		})
	}
}

func TestOverrides(t *testing.T) {
	flat := overrides.NewMapProvider(map[string]any{"rules.DE": 0.50})
	c := NewWithOverrides(flat, nil)
	result := c.Calculate(dec("24.00"), Input{CountryCode: "DE"})
	assertMoney(t, "36.00", result.GrossPrice)
	assert.True(t, dec("0.5").Equal(c.TaxRate()))
	assert.Equal(t, types.SourceOverride, result.Source)

	structured := overrides.NewMapProvider(map[string]any{
		"rules.DE": map[string]any{
			"rate":  0.19,
			"rates": map[string]any{"high": 0.50, "low": 0.07},
		},
	})
	c = NewWithOverrides(structured, nil)
	assertMoney(t, "36.00", c.Calculate(dec("24.00"), Input{CountryCode: "DE", RateType: types.RateHigh}).GrossPrice)
	assertMoney(t, "25.68", c.Calculate(dec("24.00"), Input{CountryCode: "DE", RateType: types.RateLow}).GrossPrice)
	assertMoney(t, "28.56", c.Calculate(dec("24.00"), Input{CountryCode: "DE"}).GrossPrice)
}

func TestPostalCodeScenarios(t *testing.T) {
	tests := []struct {
		name    string
		country string
		postal  string
		gross   string
		rate    string
	}{
		{name: "Heligoland", country: "DE", postal: "27498", gross: "24.00", rate: "0"},
		{name: "Jungholz", country: "AT", postal: "6691", gross: "28.56", rate: "0.19"},
		{name: "Dhekelia", country: "GB", postal: "BFPO58", gross: "28.56", rate: "0.19"},
		{name: "Madeira", country: "PT", postal: "9122", gross: "29.28", rate: "0.22"},
		{name: "invalid Spanish postal code", country: "ES", postal: "IGHJ987ERT35", gross: "29.04", rate: "0.21"},
		{name: "valid UK postal code", country: "GB", postal: "S1A 2AA", gross: "28.80", rate: "0.20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			result := c.Calculate(dec("24.00"), Input{CountryCode: tt.country, PostalCode: tt.postal})
			assertMoney(t, tt.gross, result.GrossPrice)
			assert.True(t, dec(tt.rate).Equal(c.TaxRate()), "rate %s", c.TaxRate())
		})
	}
}

func TestRoundingHalfUp(t *testing.T) {
	// 0.05 * 0.19 = 0.0095 -> 0.01
	result := New().Calculate(dec("0.05"), Input{CountryCode: "DE"})
	assertMoney(t, "0.01", result.TaxValue)
	assertMoney(t, "0.06", result.GrossPrice)
}

func TestGrossNetRoundTrip(t *testing.T) {
	amounts := []string{"0.01", "0.99", "1.00", "9.99", "24.00", "100.10", "1234.56", "99999.99"}
	for _, code := range []string{"DE", "NL", "HU", "LU", "IE", "XX"} {
		for _, amount := range amounts {
			c := New()
			gross := c.Calculate(dec(amount), Input{CountryCode: code}).GrossPrice
			net := c.CalculateNet(gross, Input{}).NetPrice
			assertMoney(t, amount, net)
		}
	}
}

func TestTaxIsGrossMinusNet(t *testing.T) {
	c := New()
	for _, amount := range []string{"10.00", "33.33", "0.07"} {
		r := c.CalculateNet(dec(amount), Input{CountryCode: "FR"})
		assert.True(t, r.GrossPrice.Sub(r.NetPrice).Equal(r.TaxValue))
	}
}

func TestTaxRateQueriesDoNotChangeState(t *testing.T) {
	c := New()
	c.Calculate(dec("24.00"), Input{CountryCode: "NL"})

	assert.True(t, dec("0.19").Equal(c.TaxRateForCountry("DE", false, types.RateDefault)))
	assert.True(t, dec("0.07").Equal(c.TaxRateForCountry("de", false, types.RateLow)))
	assert.True(t, c.TaxRateForCountry("DE", true, types.RateDefault).IsZero())
	assert.True(t, c.TaxRateForLocation("DE", "27498", false, types.RateDefault).IsZero())
	assert.True(t, dec("0.22").Equal(c.TaxRateForLocation("PT", "9122", false, types.RateDefault)))

	assert.Equal(t, types.CountryCode("NL"), c.CountryCode())
	assert.True(t, dec("0.21").Equal(c.TaxRate()))
}

func TestShouldCollectVAT(t *testing.T) {
	c := New()
	assert.True(t, c.ShouldCollectVAT("DE"))
	assert.True(t, c.ShouldCollectVAT("nl"))
	assert.False(t, c.ShouldCollectVAT(""))
	assert.False(t, c.ShouldCollectVAT("XXX"))
	assert.False(t, c.ShouldCollectVAT("TEST"))

	p := overrides.NewMapProvider(map[string]any{"rules.TEST": 0.1})
	assert.True(t, NewWithOverrides(p, nil).ShouldCollectVAT("TEST"))
}
