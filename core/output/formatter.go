// Package output renders calculator results for humans and machines.
package output

import (
	"fmt"
	"io"
	"sort"

	"vat-calculator/core/rates"
	"vat-calculator/core/types"
	apperrors "vat-calculator/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable terminal view
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"

	// FormatYAML is machine-readable YAML
	FormatYAML Format = "yaml"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	RenderCalculation(w io.Writer, doc Calculation) error
	RenderRates(w io.Writer, rows []RateRow) error
	RenderValidation(w io.Writer, doc Validation) error
	RenderLocation(w io.Writer, doc Location) error
}

// Calculation is the rendered form of a CalculationResult.
// Money is fixed to two places; rates keep full precision.
type Calculation struct {
	Country          string `json:"country" yaml:"country"`
	EffectiveCountry string `json:"effective_country" yaml:"effective_country"`
	PostalCode       string `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`
	Territory        string `json:"territory,omitempty" yaml:"territory,omitempty"`
	Company          bool   `json:"company" yaml:"company"`
	RateType         string `json:"rate_type,omitempty" yaml:"rate_type,omitempty"`
	Source           string `json:"source" yaml:"source"`
	Rate             string `json:"rate" yaml:"rate"`
	NetPrice         string `json:"net_price" yaml:"net_price"`
	TaxValue         string `json:"tax_value" yaml:"tax_value"`
	GrossPrice       string `json:"gross_price" yaml:"gross_price"`
}

// NewCalculation converts a result for rendering
func NewCalculation(r types.CalculationResult) Calculation {
	return Calculation{
		Country:          r.Country.String(),
		EffectiveCountry: r.EffectiveCountry.String(),
		PostalCode:       r.PostalCode,
		Territory:        r.Territory,
		Company:          r.Company,
		RateType:         r.RateType.String(),
		Source:           r.Source.String(),
		Rate:             r.Rate.String(),
		NetPrice:         r.NetPrice.StringFixed(types.MoneyPlaces),
		TaxValue:         r.TaxValue.StringFixed(types.MoneyPlaces),
		GrossPrice:       r.GrossPrice.StringFixed(types.MoneyPlaces),
	}
}

// RateRow is one country of the rate table
type RateRow struct {
	Country     string            `json:"country" yaml:"country"`
	Standard    string            `json:"standard" yaml:"standard"`
	Named       map[string]string `json:"named,omitempty" yaml:"named,omitempty"`
	Territories map[string]string `json:"territories,omitempty" yaml:"territories,omitempty"`
}

// RateRows lists a table, sorted by country. Empty codes list every country.
func RateRows(table *rates.Table, codes ...types.CountryCode) ([]RateRow, error) {
	if len(codes) == 0 {
		codes = table.Codes()
	}

	rows := make([]RateRow, 0, len(codes))
	for _, code := range codes {
		entry, ok := table.Lookup(code)
		if !ok {
			return nil, apperrors.Newf(apperrors.TypeInput, "no rates for country %q", code)
		}
		row := RateRow{Country: types.Country(code.String()).String(), Standard: entry.Standard.String()}
		if len(entry.Named) > 0 {
			row.Named = make(map[string]string, len(entry.Named))
			for label, rate := range entry.Named {
				row.Named[label.String()] = rate.String()
			}
		}
		if len(entry.Territories) > 0 {
			row.Territories = make(map[string]string, len(entry.Territories))
			for name, rate := range entry.Territories {
				row.Territories[name] = rate.String()
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Country < rows[j].Country })
	return rows, nil
}

// Validation is the outcome of a VAT number check
type Validation struct {
	VATNumber   string `json:"vat_number" yaml:"vat_number"`
	CountryCode string `json:"country_code" yaml:"country_code"`
	Valid       bool   `json:"valid" yaml:"valid"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Address     string `json:"address,omitempty" yaml:"address,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Location is the outcome of an address lookup
type Location struct {
	Address string `json:"address" yaml:"address"`
	Country string `json:"country,omitempty" yaml:"country,omitempty"`
	Found   bool   `json:"found" yaml:"found"`
}

var formatters = map[Format]Formatter{
	FormatCLI:  &CLIFormatter{},
	FormatJSON: &JSONFormatter{Indent: "  "},
	FormatYAML: &YAMLFormatter{},
}

// New returns the formatter of a format
func New(format Format) (Formatter, error) {
	f, ok := formatters[format]
	if !ok {
		return nil, apperrors.Input(fmt.Sprintf("unknown output format %q", format))
	}
	return f, nil
}

// Formats lists the supported formats
func Formats() []Format {
	out := make([]Format, 0, len(formatters))
	for f := range formatters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
