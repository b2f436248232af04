package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"vat-calculator/core/rates"
	"vat-calculator/core/types"
)

func sampleResult() types.CalculationResult {
	return types.CalculationResult{
		Resolution: types.Resolution{
			Rate:             decimal.RequireFromString("0.19"),
			Country:          "AT",
			EffectiveCountry: "DE",
			Territory:        "Jungholz",
			Source:           types.SourceTable,
		},
		PostalCode: "6691",
		NetPrice:   decimal.RequireFromString("24"),
		TaxValue:   decimal.RequireFromString("4.56"),
		GrossPrice: decimal.RequireFromString("28.56"),
	}
}

func TestNewCalculationFixesMoneyPlaces(t *testing.T) {
	doc := NewCalculation(sampleResult())
	assert.Equal(t, "24.00", doc.NetPrice)
	assert.Equal(t, "4.56", doc.TaxValue)
	assert.Equal(t, "28.56", doc.GrossPrice)
	assert.Equal(t, "0.19", doc.Rate)
	assert.Equal(t, "DE", doc.EffectiveCountry)
	assert.Equal(t, "table", doc.Source)
}

func TestJSONCalculation(t *testing.T) {
	f, err := New(FormatJSON)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.RenderCalculation(&buf, NewCalculation(sampleResult())))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "28.56", got["gross_price"])
	assert.Equal(t, "Jungholz", got["territory"])
	assert.NotContains(t, got, "rate_type")
}

func TestYAMLRates(t *testing.T) {
	rows, err := RateRows(rates.Default(), "pt", "DE")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "DE", rows[0].Country)
	assert.Equal(t, "PT", rows[1].Country)

	f, err := New(FormatYAML)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.RenderRates(&buf, rows))

	var got []RateRow
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, rows, got)
	assert.Equal(t, "0.22", got[1].Territories[string(rates.TerritoryMadeira)])
}

func TestRateRowsAllAndUnknown(t *testing.T) {
	rows, err := RateRows(rates.Default())
	require.NoError(t, err)
	assert.Len(t, rows, rates.Default().Len())

	_, err = RateRows(rates.Default(), "XX")
	assert.Error(t, err)
}

func TestCLIFormatter(t *testing.T) {
	f, err := New(FormatCLI)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.RenderCalculation(&buf, NewCalculation(sampleResult())))
	out := buf.String()
	for _, want := range []string{"VAT calculation", "AT (taxed as DE)", "Jungholz", "0.19", "24.00", "28.56"} {
		assert.Contains(t, out, want)
	}

	buf.Reset()
	require.NoError(t, f.RenderValidation(&buf, Validation{VATNumber: "DE123", Valid: false, Error: "VAT number check unavailable"}))
	assert.Contains(t, buf.String(), "invalid")
	assert.Contains(t, buf.String(), "unavailable")

	buf.Reset()
	require.NoError(t, f.RenderLocation(&buf, Location{Address: "8.8.8.8", Country: "US", Found: true}))
	assert.Contains(t, buf.String(), "US")

	buf.Reset()
	rows, _ := RateRows(rates.Default(), "ES")
	require.NoError(t, f.RenderRates(&buf, rows))
	assert.Contains(t, buf.String(), "low=0.1")
}

func TestUnknownFormat(t *testing.T) {
	_, err := New("html")
	assert.Error(t, err)
	assert.Equal(t, []Format{FormatCLI, FormatJSON, FormatYAML}, Formats())
}
