package vies

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"vat-calculator/core/overrides"
	apperrors "vat-calculator/internal/errors"
	"vat-calculator/internal/logging"
	"vat-calculator/internal/metrics"
)

// Validator checks VAT numbers through a Checker
type Validator struct {
	checker       Checker
	forwardFaults bool
	logger        *zap.Logger
}

// Option configures a Validator
type Option func(*Validator)

// WithForwardFaults makes registry faults surface as ErrCheckUnavailable
// instead of a plain "invalid"
func WithForwardFaults(forward bool) Option {
	return func(v *Validator) { v.forwardFaults = forward }
}

// WithProvider reads forward_soap_faults from an override provider
func WithProvider(p overrides.Provider) Option {
	return func(v *Validator) { v.forwardFaults = overrides.ForwardFaults(p) }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// NewValidator creates a validator. A nil checker is allowed; every
// check then fails with ErrCheckUnavailable.
func NewValidator(checker Checker, opts ...Option) *Validator {
	v := &Validator{checker: checker}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = logging.OrNop(v.logger)
	return v
}

// ForwardFaults reports whether registry faults are surfaced
func (v *Validator) ForwardFaults() bool {
	return v.forwardFaults
}

// ParseNumber strips all whitespace and splits off the first two
// characters as the country prefix. No case folding is applied.
func ParseNumber(raw string) CheckRequest {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	split := 0
	for i := 0; i < 2 && split < len(compact); i++ {
		_, size := utf8.DecodeRuneInString(compact[split:])
		split += size
	}
	return CheckRequest{CountryCode: compact[:split], VATNumber: compact[split:]}
}

// IsValidNumber reports whether the registry considers raw valid.
// With fault forwarding off, a registry fault is logged and reported
// as invalid.
func (v *Validator) IsValidNumber(ctx context.Context, raw string) (bool, error) {
	resp, err := v.Check(ctx, raw)
	if err != nil {
		return false, err
	}
	return resp.Valid, nil
}

// Check is Details under the fault-forwarding policy: with forwarding
// off, a registry fault becomes an invalid response with no record.
// A missing checker is always an error.
func (v *Validator) Check(ctx context.Context, raw string) (*CheckResponse, error) {
	resp, err := v.Details(ctx, raw)
	if err == nil {
		return resp, nil
	}
	if v.forwardFaults || v.checker == nil {
		return nil, err
	}
	v.logger.Warn("VAT number check failed, treating as invalid",
		zap.String("vat_number", raw),
		zap.Error(err),
	)
	return &CheckResponse{Valid: false}, nil
}

// Details returns the registry record of raw. Any failure, including a
// missing checker, is ErrCheckUnavailable regardless of fault forwarding.
func (v *Validator) Details(ctx context.Context, raw string) (*CheckResponse, error) {
	if v.checker == nil {
		metrics.ObserveVATCheck("unavailable")
		return nil, ErrCheckUnavailable
	}

	req := ParseNumber(raw)
	resp, err := v.checker.CheckVat(ctx, req)
	if err == nil && resp == nil {
		err = apperrors.Internal("registry returned no response", nil)
	}
	if err != nil {
		metrics.ObserveVATCheck("fault")
		return nil, apperrors.Unavailable("VAT number check unavailable", err).
			WithContext("country_code", req.CountryCode)
	}

	if resp.Valid {
		metrics.ObserveVATCheck("valid")
	} else {
		metrics.ObserveVATCheck("invalid")
	}
	return resp, nil
}
