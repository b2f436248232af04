// Package rates - Postal-code rules for special territories
package rates

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"vat-calculator/core/types"
)

// MatcherKind tags the variant of a Matcher
type MatcherKind int

const (
	// MatchExact matches one normalized postal code
	MatchExact MatcherKind = iota

	// MatchRange matches a numeric range over the leading digits
	MatchRange

	// MatchPrefix matches a normalized postal-code prefix
	MatchPrefix
)

// String returns the kind name
func (k MatcherKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchRange:
		return "range"
	case MatchPrefix:
		return "prefix"
	default:
		return "unknown"
	}
}

// Matcher tests a normalized postal code.
// Rules of one country are evaluated exact first, then range, then prefix.
type Matcher struct {
	Kind MatcherKind

	// Token is the code for MatchExact and the prefix for MatchPrefix
	Token string

	// From and To bound MatchRange, inclusive
	From, To int

	// Digits is how many leading digits MatchRange reads
	Digits int
}

// Exact matches a single postal code
func Exact(code string) Matcher {
	return Matcher{Kind: MatchExact, Token: NormalizePostalCode(code)}
}

// Range matches codes whose first digits lie in [from, to].
// Any characters after the leading digits must also be digits.
func Range(from, to, digits int) Matcher {
	return Matcher{Kind: MatchRange, From: from, To: to, Digits: digits}
}

// Prefix matches codes starting with prefix
func Prefix(prefix string) Matcher {
	return Matcher{Kind: MatchPrefix, Token: NormalizePostalCode(prefix)}
}

// Match reports whether a normalized postal code satisfies the matcher
func (m Matcher) Match(code string) bool {
	switch m.Kind {
	case MatchExact:
		return code == m.Token
	case MatchPrefix:
		return m.Token != "" && strings.HasPrefix(code, m.Token)
	case MatchRange:
		if m.Digits <= 0 || len(code) < m.Digits || !allDigits(code) {
			return false
		}
		n, err := strconv.Atoi(code[:m.Digits])
		if err != nil {
			return false
		}
		return n >= m.From && n <= m.To
	}
	return false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// OutcomeKind tags what a matching postal rule does
type OutcomeKind int

const (
	// OutcomeRedirect taxes the location under another country's regime
	OutcomeRedirect OutcomeKind = iota

	// OutcomeExempt takes the location out of the VAT area
	OutcomeExempt

	// OutcomeTerritory applies a territory rate of the effective country
	OutcomeTerritory
)

// String returns the outcome name
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRedirect:
		return "redirect"
	case OutcomeExempt:
		return "exempt"
	case OutcomeTerritory:
		return "territory"
	default:
		return "unknown"
	}
}

// Outcome is the effect of a matching postal rule
type Outcome struct {
	Kind OutcomeKind

	// Country is the effective country for redirect and territory outcomes
	Country types.CountryCode
}

// Redirect taxes a location as part of country
func Redirect(country types.CountryCode) Outcome {
	return Outcome{Kind: OutcomeRedirect, Country: country}
}

// Exempt marks a location as outside the VAT area
func Exempt() Outcome {
	return Outcome{Kind: OutcomeExempt}
}

// Territory applies the named territory rate of country
func Territory(country types.CountryCode) Outcome {
	return Outcome{Kind: OutcomeTerritory, Country: country}
}

// PostalRule binds a postal-code matcher of a country to an outcome
type PostalRule struct {
	// Country is the nominal country of the postal code
	Country types.CountryCode

	// Name is the territory name, also the key for territory rates
	Name string

	Match   Matcher
	Outcome Outcome
}

// EffectiveCountry returns the country whose regime applies after the rule
func (r PostalRule) EffectiveCountry() types.CountryCode {
	if r.Outcome.Country != "" {
		return r.Outcome.Country
	}
	return r.Country
}

// PostalResolver finds the postal rule matching a location
type PostalResolver struct {
	rules map[types.CountryCode][]PostalRule
}

// NewPostalResolver indexes rules by country in evaluation order
func NewPostalResolver(rules []PostalRule) *PostalResolver {
	p := &PostalResolver{rules: make(map[types.CountryCode][]PostalRule)}
	for _, r := range rules {
		r.Country = types.Country(string(r.Country))
		p.rules[r.Country] = append(p.rules[r.Country], r)
	}
	for code := range p.rules {
		list := p.rules[code]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Match.Kind < list[j].Match.Kind
		})
	}
	return p
}

var builtinPostal = NewPostalResolver(builtinPostalRules)

// DefaultPostalResolver returns the resolver over the built-in rules
func DefaultPostalResolver() *PostalResolver {
	return builtinPostal
}

// Resolve returns the first rule of country matching postalCode
func (p *PostalResolver) Resolve(country types.CountryCode, postalCode string) (PostalRule, bool) {
	code := NormalizePostalCode(postalCode)
	if code == "" {
		return PostalRule{}, false
	}
	for _, rule := range p.rules[types.Country(string(country))] {
		if rule.Match.Match(code) {
			return rule, true
		}
	}
	return PostalRule{}, false
}

// Rules returns the rules of a country in evaluation order
func (p *PostalResolver) Rules(country types.CountryCode) []PostalRule {
	list := p.rules[types.Country(string(country))]
	out := make([]PostalRule, len(list))
	copy(out, list)
	return out
}

// NormalizePostalCode upper-cases a postal code and drops spaces and dashes
func NormalizePostalCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if unicode.IsSpace(r) || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
