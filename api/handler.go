// Package api - Request handlers
// Handlers only translate between HTTP and the calculator; rate
// decisions stay in core/resolver.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vat-calculator/core/calculator"
	"vat-calculator/core/geo"
	"vat-calculator/core/output"
	"vat-calculator/core/resolver"
	"vat-calculator/core/types"
	"vat-calculator/core/vies"
	apperrors "vat-calculator/internal/errors"
	"vat-calculator/internal/logging"
)

// Handler serves the v1 endpoints
type Handler struct {
	resolver  *resolver.Resolver
	validator *vies.Validator
	geo       *geo.Resolver
	audit     AuditLogger
	logger    *zap.Logger
}

// NewHandler creates a handler from deps. A nil resolver means the
// built-in tables without overrides.
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		resolver:  deps.Resolver,
		validator: deps.Validator,
		geo:       deps.Geo,
		audit:     deps.Audit,
		logger:    logging.OrNop(deps.Logger),
	}
	if h.resolver == nil {
		h.resolver = resolver.New(resolver.WithLogger(h.logger))
	}
	if h.audit == nil {
		h.audit = nopAuditLogger{}
	}
	return h
}

func (h *Handler) newCalculator() *calculator.Calculator {
	return calculator.New(
		calculator.WithResolver(h.resolver),
		calculator.WithLogger(h.logger),
	)
}

// Calculate handles POST /v1/calculate
func (h *Handler) Calculate(c *gin.Context) {
	start := time.Now()
	entry := AuditEntry{
		Timestamp: start.UTC(),
		RequestID: requestID(c),
		Operation: "calculate",
		ClientIP:  geo.ClientAddress(c.Request),
		UserAgent: c.Request.UserAgent(),
		Success:   true,
	}
	defer func() {
		entry.SetDuration(time.Since(start))
		if err := h.audit.Log(entry); err != nil {
			h.logger.Warn("audit log failed", zap.Error(err))
		}
	}()

	var req CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		entry.MarkFailed(err)
		writeError(c, http.StatusBadRequest, CodeInvalidJSON, err.Error())
		return
	}
	if err := validateCalculateRequest(&req); err != nil {
		entry.MarkFailed(err)
		writeError(c, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}

	inferred := false
	if strings.TrimSpace(req.CountryCode) == "" {
		code, ok := h.inferCountry(c)
		if !ok {
			err := apperrors.Input("country_code is required when the client address cannot be located")
			entry.MarkFailed(err)
			writeError(c, http.StatusBadRequest, CodeUnknownCountry, err.Message)
			return
		}
		req.CountryCode = code.String()
		inferred = true
	}

	env := Normalize(req)
	entry.InputHash = env.InputHash

	calc := h.newCalculator()
	in := calculator.Input{
		CountryCode: env.CountryCode.String(),
		PostalCode:  env.PostalCode,
		Company:     calculator.Company(env.Company),
		RateType:    env.RateType,
	}

	var result types.CalculationResult
	if env.From == "gross" {
		result = calc.CalculateNet(req.Amount, in)
	} else {
		result = calc.Calculate(req.Amount, in)
	}

	c.JSON(http.StatusOK, CalculateResponse{
		Calculation:     output.NewCalculation(result),
		CountryInferred: inferred,
		RequestID:       entry.RequestID,
	})
}

func validateCalculateRequest(req *CalculateRequest) error {
	switch strings.ToLower(strings.TrimSpace(req.From)) {
	case "", "net", "gross":
	default:
		return apperrors.Newf(apperrors.TypeInput, "from must be net or gross, got %q", req.From)
	}
	if code := strings.TrimSpace(req.CountryCode); code != "" && len(code) < 2 {
		return apperrors.Newf(apperrors.TypeInput, "invalid country_code %q", req.CountryCode)
	}
	if req.Amount.IsNegative() {
		return apperrors.Newf(apperrors.TypeInput, "amount must not be negative, got %s", req.Amount)
	}
	return nil
}

func (h *Handler) inferCountry(c *gin.Context) (types.CountryCode, bool) {
	if h.geo == nil {
		return "", false
	}
	return h.geo.ResolveRequestCountry(c.Request.Context(), c.Request)
}

// ListRates handles GET /v1/rates
func (h *Handler) ListRates(c *gin.Context) {
	rows, err := output.RateRows(h.resolver.Table())
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": rows, "count": len(rows)})
}

// GetRate handles GET /v1/rates/:country
func (h *Handler) GetRate(c *gin.Context) {
	country := types.Country(c.Param("country"))

	company := false
	if raw := c.Query("company"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, CodeValidation, "company must be a boolean")
			return
		}
		company = b
	}

	calc := h.newCalculator()
	res := h.resolver.Resolve(resolver.Query{
		Country:         country,
		PostalCode:      c.Query("postal_code"),
		Company:         company,
		RateType:        types.RateType(strings.ToLower(c.Query("rate_type"))),
		BusinessCountry: calc.BusinessCountryCode(),
	})

	c.JSON(http.StatusOK, RateResponse{
		Country:          res.Country.String(),
		EffectiveCountry: res.EffectiveCountry.String(),
		PostalCode:       c.Query("postal_code"),
		Territory:        res.Territory,
		Company:          company,
		RateType:         res.RateType.String(),
		Rate:             res.Rate.String(),
		Source:           res.Source.String(),
		ShouldCollectVAT: calc.ShouldCollectVAT(country.String()),
	})
}

// ValidateNumber handles POST /v1/vat-numbers/validate. A registry
// fault is 503 when faults are forwarded and valid:false otherwise.
func (h *Handler) ValidateNumber(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, CodeInvalidJSON, err.Error())
		return
	}

	parsed := vies.ParseNumber(req.VATNumber)
	if h.validator == nil {
		writeError(c, http.StatusServiceUnavailable, CodeUnavailable, vies.ErrCheckUnavailable.Message)
		return
	}

	resp, err := h.validator.Check(c.Request.Context(), req.VATNumber)
	if err != nil {
		_ = c.Error(err)
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, output.Validation{
		VATNumber:   parsed.VATNumber,
		CountryCode: parsed.CountryCode,
		Valid:       resp.Valid,
		Name:        resp.Name,
		Address:     resp.Address,
	})
}

// Locate handles GET /v1/geo. Without ?ip the caller's own address is used.
func (h *Handler) Locate(c *gin.Context) {
	address := c.Query("ip")
	if address == "" {
		address = geo.ClientAddress(c.Request)
	}
	if _, ok := geo.ParseAddress(address); !ok {
		writeError(c, http.StatusBadRequest, CodeValidation, "invalid ip address")
		return
	}

	loc := output.Location{Address: address}
	if h.geo != nil {
		if code, ok := h.geo.ResolveCountry(c.Request.Context(), address); ok {
			loc.Country = code.String()
			loc.Found = true
		}
	}
	c.JSON(http.StatusOK, loc)
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: requestID(c),
	}})
}

// writeAppError maps an error type onto a status and code
func writeAppError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		writeError(c, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}

	switch appErr.Type {
	case apperrors.TypeInput:
		writeError(c, http.StatusBadRequest, CodeValidation, appErr.Message)
	case apperrors.TypeUnavailable:
		writeError(c, http.StatusServiceUnavailable, CodeUnavailable, appErr.Message)
	default:
		writeError(c, http.StatusInternalServerError, CodeInternal, appErr.Message)
	}
}
