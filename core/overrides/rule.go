// Package overrides - Rule values
package overrides

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"vat-calculator/core/types"
	apperrors "vat-calculator/internal/errors"
)

var one = decimal.NewFromInt(1)

// Rule is an override for one country.
// A flat rule applies Rate whatever the rate type; a structured rule
// looks the rate type up in Rates and falls back to Rate.
type Rule struct {
	Flat  bool                               `json:"flat" yaml:"flat"`
	Rate  decimal.Decimal                    `json:"rate" yaml:"rate"`
	Rates map[types.RateType]decimal.Decimal `json:"rates,omitempty" yaml:"rates,omitempty"`
}

// FlatRule creates a rule that ignores the rate type
func FlatRule(rate decimal.Decimal) Rule {
	return Rule{Flat: true, Rate: rate}
}

// StructuredRule creates a rule with a default and named rates
func StructuredRule(rate decimal.Decimal, named map[types.RateType]decimal.Decimal) Rule {
	return Rule{Rate: rate, Rates: named}
}

// RateFor returns the rate that applies to t
func (r Rule) RateFor(t types.RateType) decimal.Decimal {
	if r.Flat || t == types.RateDefault {
		return r.Rate
	}
	if rate, ok := r.Rates[t]; ok {
		return rate
	}
	return r.Rate
}

// Validate checks that every rate of the rule is a fraction in [0, 1]
func (r Rule) Validate() error {
	if err := checkFraction(r.Rate); err != nil {
		return err
	}
	for label, rate := range r.Rates {
		if err := checkFraction(rate); err != nil {
			return fmt.Errorf("rate %q: %w", label, err)
		}
	}
	return nil
}

func checkFraction(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(one) {
		return apperrors.Newf(apperrors.TypeInput, "rate %s outside [0, 1]", d)
	}
	return nil
}

// Lookup reads and parses the rule of a country.
// ok is false when the provider has no rule; err is set when it has a
// rule that cannot be used.
func Lookup(p Provider, country types.CountryCode) (rule Rule, ok bool, err error) {
	if p == nil {
		return Rule{}, false, nil
	}
	key := RuleKey(country)
	if !p.Has(key) {
		return Rule{}, false, nil
	}
	// A key can vanish or fail to read between Has and Get.
	v := p.Get(key, nil)
	if v == nil {
		return Rule{}, false, nil
	}
	rule, err = ParseRule(v)
	if err != nil {
		return Rule{}, true, apperrors.Parsing("invalid override "+key, err)
	}
	return rule, true, nil
}

// ParseRule converts a raw provider value into a Rule.
// Numbers and numeric strings are flat rules; maps with "rate" and an
// optional "rates" map are structured rules.
func ParseRule(v any) (Rule, error) {
	var rule Rule
	switch val := v.(type) {
	case Rule:
		rule = val
	case *Rule:
		if val == nil {
			return Rule{}, fmt.Errorf("nil rule")
		}
		rule = *val
	case map[string]any:
		r, err := parseStructured(val)
		if err != nil {
			return Rule{}, err
		}
		rule = r
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[fmt.Sprint(k)] = inner
		}
		r, err := parseStructured(m)
		if err != nil {
			return Rule{}, err
		}
		rule = r
	default:
		d, err := toDecimal(v)
		if err != nil {
			return Rule{}, err
		}
		rule = FlatRule(d)
	}

	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func parseStructured(m map[string]any) (Rule, error) {
	raw, ok := m["rate"]
	if !ok {
		return Rule{}, fmt.Errorf("structured rule has no \"rate\"")
	}
	rate, err := toDecimal(raw)
	if err != nil {
		return Rule{}, fmt.Errorf("rate: %w", err)
	}

	rule := Rule{Rate: rate}
	rawRates, ok := m["rates"]
	if !ok || rawRates == nil {
		return rule, nil
	}

	named, err := toRateMap(rawRates)
	if err != nil {
		return Rule{}, err
	}
	rule.Rates = named
	return rule, nil
}

func toRateMap(v any) (map[types.RateType]decimal.Decimal, error) {
	out := make(map[types.RateType]decimal.Decimal)
	add := func(k string, raw any) error {
		d, err := toDecimal(raw)
		if err != nil {
			return fmt.Errorf("rates.%s: %w", k, err)
		}
		out[types.RateType(strings.TrimSpace(k))] = d
		return nil
	}

	switch m := v.(type) {
	case map[string]any:
		for k, raw := range m {
			if err := add(k, raw); err != nil {
				return nil, err
			}
		}
	case map[any]any:
		for k, raw := range m {
			if err := add(fmt.Sprint(k), raw); err != nil {
				return nil, err
			}
		}
	case map[string]float64:
		for k, raw := range m {
			out[types.RateType(k)] = decimal.NewFromFloat(raw)
		}
	case map[types.RateType]decimal.Decimal:
		for k, raw := range m {
			out[k] = raw
		}
	default:
		return nil, fmt.Errorf("rates: unsupported type %T", v)
	}
	return out, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, fmt.Errorf("nil decimal")
		}
		return *n, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		s := strings.TrimSpace(n)
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return decimal.Zero, fmt.Errorf("not a number: %q", n)
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Zero, fmt.Errorf("unsupported rule value %T", v)
	}
}
