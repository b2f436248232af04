// Package rulestore loads VAT override rules from files, application
// config and Redis, and exposes them as overrides.Provider values.
package rulestore

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"
	"github.com/zclconf/go-cty/cty"

	"vat-calculator/core/overrides"
	"vat-calculator/core/types"
	apperrors "vat-calculator/internal/errors"
)

// An HCL rules file looks like:
//
//	business_country_code = "DE"
//	forward_soap_faults   = true
//
//	rule "NL" {
//	  rate = 0.21
//	}
//
//	rule "DE" {
//	  rate  = 0.19
//	  rates = { high = 0.19, low = 0.07 }
//	}
//
// A rule without rates is flat and applies whatever the rate type.
var fileSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: overrides.KeyBusinessCountry},
		{Name: overrides.KeyForwardFaults},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "rule", LabelNames: []string{"country"}},
	},
}

var ruleSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "rate", Required: true},
		{Name: "rates"},
	},
}

// LoadHCLFile reads an HCL rules file
func LoadHCLFile(path string) (*overrides.MapProvider, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Config("failed to read rules file", err).WithContext("path", path)
	}
	return LoadHCL(src, path)
}

// LoadHCL parses HCL rules. filename is used in diagnostics only.
func LoadHCL(src []byte, filename string) (*overrides.MapProvider, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagError(filename, diags)
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, diagError(filename, diags)
	}

	p := overrides.NewMapProvider(nil)

	if attr, ok := content.Attributes[overrides.KeyBusinessCountry]; ok {
		val, err := evalAttr(filename, attr)
		if err != nil {
			return nil, err
		}
		s, ok := val.(string)
		if !ok {
			return nil, attrError(filename, attr, "must be a string")
		}
		p.Set(overrides.KeyBusinessCountry, s)
	}

	if attr, ok := content.Attributes[overrides.KeyForwardFaults]; ok {
		val, err := evalAttr(filename, attr)
		if err != nil {
			return nil, err
		}
		b, ok := val.(bool)
		if !ok {
			return nil, attrError(filename, attr, "must be a bool")
		}
		p.Set(overrides.KeyForwardFaults, b)
	}

	seen := make(map[types.CountryCode]hcl.Range)
	for _, block := range content.Blocks {
		country := types.Country(block.Labels[0])
		if prev, dup := seen[country]; dup {
			return nil, apperrors.Newf(apperrors.TypeParsing, "%s: duplicate rule %q, first defined at %s",
				block.DefRange, country, prev)
		}
		seen[country] = block.DefRange

		rule, err := decodeRule(filename, block)
		if err != nil {
			return nil, err
		}
		p.SetRule(country, rule)
	}

	return p, nil
}

func decodeRule(filename string, block *hcl.Block) (overrides.Rule, error) {
	content, diags := block.Body.Content(ruleSchema)
	if diags.HasErrors() {
		return overrides.Rule{}, diagError(filename, diags)
	}

	raw := map[string]any{}
	for name, attr := range content.Attributes {
		val, err := evalAttr(filename, attr)
		if err != nil {
			return overrides.Rule{}, err
		}
		raw[name] = val
	}

	var (
		rule overrides.Rule
		err  error
	)
	if _, structured := raw["rates"]; structured {
		rule, err = overrides.ParseRule(raw)
	} else {
		rule, err = overrides.ParseRule(raw["rate"])
	}
	if err != nil {
		return overrides.Rule{}, apperrors.Wrapf(apperrors.TypeParsing, err, "%s: rule %q", block.DefRange, block.Labels[0])
	}
	return rule, nil
}

func evalAttr(filename string, attr *hcl.Attribute) (any, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, diagError(filename, diags)
	}
	v, err := ctyToGo(val)
	if err != nil {
		return nil, attrError(filename, attr, err.Error())
	}
	return v, nil
}

// ctyToGo converts a literal cty value. Numbers become decimals so no
// precision is lost between the file and the rule.
func ctyToGo(val cty.Value) (any, error) {
	if !val.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	if val.IsNull() {
		return nil, nil
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil

	case ty == cty.Number:
		return decimal.NewFromString(val.AsBigFloat().Text('f', -1))

	case ty == cty.Bool:
		return val.True(), nil

	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any, val.LengthInt())
		iter := val.ElementIterator()
		for iter.Next() {
			k, v := iter.Element()
			converted, err := ctyToGo(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k.AsString(), err)
			}
			out[k.AsString()] = converted
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported type %s", ty.FriendlyName())
	}
}

func diagError(filename string, diags hcl.Diagnostics) error {
	return apperrors.Parsing("invalid rules file", diags).WithContext("path", filename)
}

func attrError(filename string, attr *hcl.Attribute, msg string) error {
	return apperrors.Newf(apperrors.TypeParsing, "%s: %s %s", attr.Range, attr.Name, msg).
		WithContext("path", filename)
}
