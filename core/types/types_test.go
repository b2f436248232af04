package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCountryNormalizes(t *testing.T) {
	tests := []struct {
		raw  string
		want CountryCode
	}{
		{raw: "de", want: "DE"},
		{raw: " nl ", want: "NL"},
		{raw: "EL", want: "GR"},
		{raw: "el", want: "GR"},
		{raw: "", want: ""},
		{raw: "xxx", want: "XXX"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Country(tt.raw))
		})
	}
}

func TestCountryCodeIsAlpha2(t *testing.T) {
	assert.True(t, CountryCode("DE").IsAlpha2())
	assert.False(t, CountryCode("XXX").IsAlpha2())
	assert.False(t, CountryCode("D1").IsAlpha2())
	assert.False(t, CountryCode("").IsAlpha2())
	assert.True(t, CountryCode("").IsEmpty())
}

func TestRoundMoneyHalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "4.565", want: "4.57"},
		{in: "4.564", want: "4.56"},
		{in: "28.56", want: "28.56"},
		{in: "0.005", want: "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := RoundMoney(decimal.RequireFromString(tt.in))
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}
