package rulestore

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"vat-calculator/core/overrides"
	"vat-calculator/core/types"
	apperrors "vat-calculator/internal/errors"
)

// yamlFile is the shape of a YAML rules file:
//
//	business_country_code: DE
//	forward_soap_faults: true
//	rules:
//	  NL: 0.21
//	  DE:
//	    rate: 0.19
//	    rates: {high: 0.19, low: 0.07}
type yamlFile struct {
	BusinessCountryCode string         `yaml:"business_country_code,omitempty"`
	ForwardSOAPFaults   *bool          `yaml:"forward_soap_faults,omitempty"`
	Rules               map[string]any `yaml:"rules,omitempty"`
}

// LoadYAMLFile reads a YAML rules file
func LoadYAMLFile(path string) (*overrides.MapProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Config("failed to read rules file", err).WithContext("path", path)
	}
	p, err := LoadYAML(data)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.TypeParsing, err, "parsing %s", path)
	}
	return p, nil
}

// LoadYAML parses YAML rules. Every rule is validated up front.
func LoadYAML(data []byte) (*overrides.MapProvider, error) {
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, apperrors.Parsing("invalid YAML rules", err)
	}

	p := overrides.NewMapProvider(nil)
	if f.BusinessCountryCode != "" {
		p.Set(overrides.KeyBusinessCountry, f.BusinessCountryCode)
	}
	if f.ForwardSOAPFaults != nil {
		p.Set(overrides.KeyForwardFaults, *f.ForwardSOAPFaults)
	}

	// sorted so the first bad rule reported is stable
	countries := make([]string, 0, len(f.Rules))
	for c := range f.Rules {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	for _, c := range countries {
		rule, err := overrides.ParseRule(f.Rules[c])
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.TypeParsing, err, "rule %q", c)
		}
		p.SetRule(types.Country(c), rule)
	}
	return p, nil
}

// Dump renders the rules of a MapProvider back to YAML
func Dump(p *overrides.MapProvider) ([]byte, error) {
	f := yamlFile{Rules: map[string]any{}}
	for _, key := range p.Keys() {
		switch key {
		case overrides.KeyBusinessCountry:
			f.BusinessCountryCode = overrides.BusinessCountry(p).String()
		case overrides.KeyForwardFaults:
			forward := overrides.ForwardFaults(p)
			f.ForwardSOAPFaults = &forward
		default:
			country, ok := strings.CutPrefix(key, overrides.RulesPrefix)
			if !ok {
				continue
			}
			rule, err := overrides.ParseRule(p.Get(key, nil))
			if err != nil {
				return nil, apperrors.Wrapf(apperrors.TypeParsing, err, "rule %q", country)
			}
			f.Rules[country] = encodeRule(rule)
		}
	}
	out, err := yaml.Marshal(f)
	if err != nil {
		return nil, apperrors.Internal("failed to encode rules", err)
	}
	return out, nil
}

// encodeRule turns a rule into plain values that decode back through
// ParseRule. Rates are kept as numbers.
func encodeRule(rule overrides.Rule) any {
	if rule.Flat {
		return rule.Rate.InexactFloat64()
	}
	out := map[string]any{"rate": rule.Rate.InexactFloat64()}
	if len(rule.Rates) > 0 {
		named := make(map[string]any, len(rule.Rates))
		for label, r := range rule.Rates {
			named[string(label)] = r.InexactFloat64()
		}
		out["rates"] = named
	}
	return out
}
