// Package calculator is the stateful façade billing code talks to.
//
// Every calculation returns a full CalculationResult. The façade also
// keeps the last-used country, postal code and company flag as defaults
// for later calls, and the last result for the getters. It is not safe
// for concurrent use; create one Calculator per request.
package calculator

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vat-calculator/core/overrides"
	"vat-calculator/core/resolver"
	"vat-calculator/core/types"
	"vat-calculator/internal/logging"
	"vat-calculator/internal/metrics"
)

// Input carries the optional arguments of a calculation.
// Zero values mean "use the façade's current setting".
type Input struct {
	CountryCode string
	PostalCode  string

	// Company overrides the façade's company flag when non-nil
	Company *bool

	RateType types.RateType
}

// Company is a convenience for Input.Company
func Company(b bool) *bool {
	return &b
}

// Calculator computes net and gross prices
type Calculator struct {
	resolver *resolver.Resolver
	logger   *zap.Logger

	countryCode     types.CountryCode
	postalCode      string
	company         bool
	businessCountry types.CountryCode

	last types.CalculationResult
}

// Option configures a Calculator
type Option func(*Calculator)

// WithResolver sets the rate resolver
func WithResolver(r *resolver.Resolver) Option {
	return func(c *Calculator) { c.resolver = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Calculator) { c.logger = l }
}

// New creates a calculator. The business country is read from the
// resolver's override provider when it has business_country_code.
func New(opts ...Option) *Calculator {
	c := &Calculator{}
	for _, opt := range opts {
		opt(c)
	}
	if c.resolver == nil {
		c.resolver = resolver.New()
	}
	c.logger = logging.OrNop(c.logger)
	c.businessCountry = overrides.BusinessCountry(c.resolver.Overrides())
	c.last = emptyResult()
	return c
}

// NewWithOverrides creates a calculator whose resolver uses p
func NewWithOverrides(p overrides.Provider, logger *zap.Logger) *Calculator {
	return New(
		WithResolver(resolver.New(resolver.WithOverrides(p), resolver.WithLogger(logger))),
		WithLogger(logger),
	)
}

func emptyResult() types.CalculationResult {
	return types.CalculationResult{
		Resolution: types.Resolution{Rate: decimal.Zero},
		NetPrice:   decimal.Zero,
		TaxValue:   decimal.Zero,
		GrossPrice: decimal.Zero,
	}
}

// Calculate treats amount as a net price and adds tax
func (c *Calculator) Calculate(amount decimal.Decimal, in Input) types.CalculationResult {
	res := c.resolve(in)

	tax := amount.Mul(res.Rate)
	result := types.CalculationResult{
		Resolution: res,
		PostalCode: c.postalCode,
		Company:    c.company,
		NetPrice:   types.RoundMoney(amount),
		TaxValue:   types.RoundMoney(tax),
		GrossPrice: types.RoundMoney(amount.Add(tax)),
	}
	return c.record(result, "gross")
}

// CalculateNet treats amount as a gross price and removes tax
func (c *Calculator) CalculateNet(amount decimal.Decimal, in Input) types.CalculationResult {
	res := c.resolve(in)

	net := types.RoundMoney(amount.Div(decimal.NewFromInt(1).Add(res.Rate)))
	result := types.CalculationResult{
		Resolution: res,
		PostalCode: c.postalCode,
		Company:    c.company,
		NetPrice:   net,
		TaxValue:   types.RoundMoney(amount).Sub(net),
		GrossPrice: types.RoundMoney(amount),
	}
	return c.record(result, "net")
}

// resolve folds explicit inputs into the façade defaults, then resolves
func (c *Calculator) resolve(in Input) types.Resolution {
	if in.CountryCode != "" {
		c.SetCountryCode(in.CountryCode)
	}
	if in.PostalCode != "" {
		c.SetPostalCode(in.PostalCode)
	}
	if in.Company != nil {
		c.SetCompany(*in.Company)
	}

	return c.resolver.Resolve(resolver.Query{
		Country:         c.countryCode,
		PostalCode:      c.postalCode,
		Company:         c.company,
		RateType:        in.RateType,
		BusinessCountry: c.businessCountry,
	})
}

func (c *Calculator) record(result types.CalculationResult, direction string) types.CalculationResult {
	c.last = result
	metrics.ObserveCalculation(direction, result.Source.String())
	c.logger.Debug("vat calculated",
		zap.String("direction", direction),
		zap.String("country", result.Country.String()),
		zap.String("effective_country", result.EffectiveCountry.String()),
		zap.String("source", result.Source.String()),
		zap.String("rate", result.Rate.String()),
		zap.String("net", result.NetPrice.StringFixed(types.MoneyPlaces)),
		zap.String("gross", result.GrossPrice.StringFixed(types.MoneyPlaces)),
	)
	return result
}

// TaxRateForLocation resolves a rate without touching the façade state
func (c *Calculator) TaxRateForLocation(countryCode, postalCode string, company bool, rateType types.RateType) decimal.Decimal {
	return c.resolver.ResolveRate(resolver.Query{
		Country:         types.Country(countryCode),
		PostalCode:      postalCode,
		Company:         company,
		RateType:        rateType,
		BusinessCountry: c.businessCountry,
	})
}

// TaxRateForCountry resolves a rate for a country without a postal code
func (c *Calculator) TaxRateForCountry(countryCode string, company bool, rateType types.RateType) decimal.Decimal {
	return c.TaxRateForLocation(countryCode, "", company, rateType)
}

// ShouldCollectVAT is a coarse check that ignores postal codes and
// company status: true when the table has a non-zero standard rate for
// the country or the override provider has a rule for it.
func (c *Calculator) ShouldCollectVAT(countryCode string) bool {
	code := types.Country(countryCode)
	if code.IsEmpty() {
		return false
	}
	if c.resolver.HasOverride(code) {
		return true
	}
	entry, ok := c.resolver.Table().Lookup(code)
	return ok && !entry.Standard.IsZero()
}

// SetCountryCode sets the default country
func (c *Calculator) SetCountryCode(code string) {
	c.countryCode = types.Country(code)
}

// CountryCode returns the default country
func (c *Calculator) CountryCode() types.CountryCode {
	return c.countryCode
}

// SetPostalCode sets the default postal code
func (c *Calculator) SetPostalCode(code string) {
	c.postalCode = code
}

// PostalCode returns the default postal code
func (c *Calculator) PostalCode() string {
	return c.postalCode
}

// SetCompany sets whether the customer is a business
func (c *Calculator) SetCompany(company bool) {
	c.company = company
}

// IsCompany returns the company flag
func (c *Calculator) IsCompany() bool {
	return c.company
}

// SetBusinessCountryCode sets the seller's country
func (c *Calculator) SetBusinessCountryCode(code string) {
	c.businessCountry = types.Country(code)
}

// BusinessCountryCode returns the seller's country
func (c *Calculator) BusinessCountryCode() types.CountryCode {
	return c.businessCountry
}

// TaxRate returns the rate of the last calculation
func (c *Calculator) TaxRate() decimal.Decimal {
	return c.last.Rate
}

// TaxValue returns the tax of the last calculation
func (c *Calculator) TaxValue() decimal.Decimal {
	return c.last.TaxValue
}

// NetPrice returns the net price of the last calculation
func (c *Calculator) NetPrice() decimal.Decimal {
	return c.last.NetPrice
}

// GrossPrice returns the gross price of the last calculation
func (c *Calculator) GrossPrice() decimal.Decimal {
	return c.last.GrossPrice
}

// LastResult returns the last calculation
func (c *Calculator) LastResult() types.CalculationResult {
	return c.last
}
