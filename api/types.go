// Package api - HTTP request and response types
package api

import (
	"github.com/shopspring/decimal"

	"vat-calculator/core/output"
)

// CalculateRequest is the input to POST /v1/calculate
type CalculateRequest struct {
	// Amount is a JSON number or numeric string
	Amount decimal.Decimal `json:"amount"`

	// From says what Amount is: "net" (default) or "gross"
	From string `json:"from,omitempty"`

	// CountryCode of the customer; when empty it is inferred from the
	// client address
	CountryCode string `json:"country_code,omitempty"`

	PostalCode string `json:"postal_code,omitempty"`
	Company    bool   `json:"company,omitempty"`
	RateType   string `json:"rate_type,omitempty"`
}

// CalculateResponse is the output of POST /v1/calculate
type CalculateResponse struct {
	output.Calculation

	// CountryInferred is true when the country came from the client address
	CountryInferred bool `json:"country_inferred,omitempty"`

	RequestID string `json:"request_id"`
}

// RateResponse is the output of GET /v1/rates/:country
type RateResponse struct {
	Country          string `json:"country"`
	EffectiveCountry string `json:"effective_country"`
	PostalCode       string `json:"postal_code,omitempty"`
	Territory        string `json:"territory,omitempty"`
	Company          bool   `json:"company"`
	RateType         string `json:"rate_type,omitempty"`
	Rate             string `json:"rate"`
	Source           string `json:"source"`
	ShouldCollectVAT bool   `json:"should_collect_vat"`
}

// ValidateRequest is the input to POST /v1/vat-numbers/validate
type ValidateRequest struct {
	VATNumber string `json:"vat_number" binding:"required"`
}

// ErrorBody is the error payload of every failed request
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse wraps ErrorBody
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error codes
const (
	CodeInvalidJSON    = "INVALID_JSON"
	CodeValidation     = "VALIDATION_ERROR"
	CodeUnavailable    = "VAT_CHECK_UNAVAILABLE"
	CodeInternal       = "INTERNAL_ERROR"
	CodeUnknownCountry = "UNKNOWN_COUNTRY"
)
