// Package vies validates EU VAT registration numbers against a registry.
//
// The Validator only strips whitespace and splits the two-character
// country prefix; format rules are left to the registry. Transport
// lives behind the Checker interface (see adapters/vies).
package vies

import (
	"context"
	"time"

	apperrors "vat-calculator/internal/errors"
)

// ErrCheckUnavailable is returned when the registry cannot answer.
// Match it with errors.Is; every TypeUnavailable error matches.
var ErrCheckUnavailable = apperrors.New(apperrors.TypeUnavailable, "VAT number check unavailable")

// CheckRequest is the argument of a registry check
type CheckRequest struct {
	// CountryCode is the two-character prefix, verbatim
	CountryCode string `json:"country_code"`

	// VATNumber is the number body without the prefix
	VATNumber string `json:"vat_number"`
}

// CheckResponse is the registry's answer
type CheckResponse struct {
	CountryCode string    `json:"country_code"`
	VATNumber   string    `json:"vat_number"`
	RequestDate time.Time `json:"request_date,omitempty"`
	Valid       bool      `json:"valid"`
	Name        string    `json:"name,omitempty"`
	Address     string    `json:"address,omitempty"`
}

// Checker performs one registry check
type Checker interface {
	CheckVat(ctx context.Context, req CheckRequest) (*CheckResponse, error)
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context, req CheckRequest) (*CheckResponse, error)

// CheckVat calls f
func (f CheckerFunc) CheckVat(ctx context.Context, req CheckRequest) (*CheckResponse, error) {
	return f(ctx, req)
}
