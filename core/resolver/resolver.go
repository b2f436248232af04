// Package resolver turns a location and customer status into a VAT rate.
//
// Precedence, highest first:
//  1. reverse charge for business customers outside the seller's country
//  2. postal-code rules (exempt territories, redirects, territory rates)
//  3. the override provider, keyed by the effective country
//  4. the built-in rate table
//
// Unknown countries resolve to zero. No step returns an error: a
// malformed override is logged and skipped.
package resolver

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vat-calculator/core/overrides"
	"vat-calculator/core/rates"
	"vat-calculator/core/types"
	"vat-calculator/internal/logging"
)

// Query is everything the resolver needs for one decision
type Query struct {
	Country         types.CountryCode
	PostalCode      string
	Company         bool
	RateType        types.RateType
	BusinessCountry types.CountryCode
}

// Resolver combines the rate sources into one decision procedure.
// It holds no mutable state and is safe for concurrent use when its
// provider is.
type Resolver struct {
	table     *rates.Table
	postal    *rates.PostalResolver
	overrides overrides.Provider
	logger    *zap.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithTable replaces the built-in rate table
func WithTable(t *rates.Table) Option {
	return func(r *Resolver) { r.table = t }
}

// WithPostalResolver replaces the built-in postal rules
func WithPostalResolver(p *rates.PostalResolver) Option {
	return func(r *Resolver) { r.postal = p }
}

// WithOverrides sets the override provider
func WithOverrides(p overrides.Provider) Option {
	return func(r *Resolver) { r.overrides = p }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a resolver over the built-in table and postal rules
func New(opts ...Option) *Resolver {
	r := &Resolver{
		table:  rates.Default(),
		postal: rates.DefaultPostalResolver(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	return r
}

// Overrides returns the configured provider, possibly nil
func (r *Resolver) Overrides() overrides.Provider {
	return r.overrides
}

// Table returns the rate table in use
func (r *Resolver) Table() *rates.Table {
	return r.table
}

// ResolveRate returns only the rate of a query
func (r *Resolver) ResolveRate(q Query) decimal.Decimal {
	return r.Resolve(q).Rate
}

// Resolve runs the full decision procedure
func (r *Resolver) Resolve(q Query) types.Resolution {
	country := types.Country(string(q.Country))
	res := types.Resolution{
		Rate:             decimal.Zero,
		Country:          country,
		EffectiveCountry: country,
		RateType:         q.RateType,
	}

	if q.Company && country != types.Country(string(q.BusinessCountry)) {
		res.Source = types.SourceReverseCharge
		return res
	}

	if rule, ok := r.postal.Resolve(country, q.PostalCode); ok {
		res.Territory = rule.Name
		res.EffectiveCountry = rule.EffectiveCountry()
		if rule.Outcome.Kind == rates.OutcomeExempt {
			res.Source = types.SourcePostalExempt
			return res
		}
		r.logger.Debug("postal rule matched",
			zap.String("country", country.String()),
			zap.String("postal_code", q.PostalCode),
			zap.String("rule", rule.Name),
			zap.String("effective_country", res.EffectiveCountry.String()),
		)
	}

	if rate, ok := r.overrideRate(res.EffectiveCountry, q.RateType); ok {
		res.Rate = rate
		res.Source = types.SourceOverride
		return res
	}

	entry, ok := r.table.Lookup(res.EffectiveCountry)
	if !ok {
		res.Source = types.SourceUnknown
		return res
	}
	if rate, ok := entry.TerritoryRate(res.Territory); ok {
		res.Rate = rate
		res.Source = types.SourceTerritory
		return res
	}
	res.Rate = entry.RateFor(q.RateType)
	res.Source = types.SourceTable
	return res
}

func (r *Resolver) overrideRate(country types.CountryCode, rateType types.RateType) (decimal.Decimal, bool) {
	rule, ok, err := overrides.Lookup(r.overrides, country)
	if err != nil {
		r.logger.Warn("ignoring override",
			zap.String("country", country.String()),
			zap.Error(err),
		)
		return decimal.Zero, false
	}
	if !ok {
		return decimal.Zero, false
	}
	return rule.RateFor(rateType), true
}

// HasOverride reports whether the provider has a rule for country,
// usable or not
func (r *Resolver) HasOverride(country types.CountryCode) bool {
	return r.overrides != nil && r.overrides.Has(overrides.RuleKey(types.Country(string(country))))
}
