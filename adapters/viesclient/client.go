// Package viesclient is a SOAP client for the EU VIES checkVatService.
package viesclient

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"vat-calculator/core/vies"
	apperrors "vat-calculator/internal/errors"
	"vat-calculator/internal/logging"
	"vat-calculator/internal/metrics"
)

const (
	// DefaultEndpoint is the public VIES SOAP endpoint
	DefaultEndpoint = "https://ec.europa.eu/taxation_customs/vies/services/checkVatService"

	soapNS  = "http://schemas.xmlsoap.org/soap/envelope/"
	typesNS = "urn:ec.europa.eu:taxud:vies:services:checkVat:types"

	// cap on response bodies; real answers are a few hundred bytes
	maxResponseBytes = 1 << 20
)

// Config holds client settings
type Config struct {
	// Endpoint is the checkVatService URL
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// Timeout bounds one check
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// DefaultConfig returns the public endpoint with a 10s timeout
func DefaultConfig() Config {
	return Config{
		Endpoint: DefaultEndpoint,
		Timeout:  10 * time.Second,
	}
}

// Fault is a SOAP fault returned by the service, e.g. MS_UNAVAILABLE
// or INVALID_INPUT
type Fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

func (f *Fault) Error() string {
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
}

// Client implements vies.Checker over HTTP
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client. Zero config fields take their defaults.
func New(cfg Config, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.OrNop(logger),
	}
}

type requestEnvelope struct {
	XMLName xml.Name    `xml:"soapenv:Envelope"`
	SoapNS  string      `xml:"xmlns:soapenv,attr"`
	TypesNS string      `xml:"xmlns:urn,attr"`
	Body    requestBody `xml:"soapenv:Body"`
}

type requestBody struct {
	Check checkVat `xml:"urn:checkVat"`
}

type checkVat struct {
	CountryCode string `xml:"urn:countryCode"`
	VATNumber   string `xml:"urn:vatNumber"`
}

type responseEnvelope struct {
	Body struct {
		Fault    *Fault            `xml:"Fault"`
		Response *checkVatResponse `xml:"checkVatResponse"`
	} `xml:"Body"`
}

type checkVatResponse struct {
	CountryCode string `xml:"countryCode"`
	VATNumber   string `xml:"vatNumber"`
	RequestDate string `xml:"requestDate"`
	Valid       bool   `xml:"valid"`
	Name        string `xml:"name"`
	Address     string `xml:"address"`
}

// CheckVat calls the checkVat operation
func (c *Client) CheckVat(ctx context.Context, req vies.CheckRequest) (*vies.CheckResponse, error) {
	payload, err := xml.Marshal(requestEnvelope{
		SoapNS:  soapNS,
		TypesNS: typesNS,
		Body:    requestBody{Check: checkVat{CountryCode: req.CountryCode, VATNumber: req.VATNumber}},
	})
	if err != nil {
		return nil, apperrors.Internal("failed to encode checkVat request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		bytes.NewReader(append([]byte(xml.Header), payload...)))
	if err != nil {
		return nil, apperrors.Internal("failed to build checkVat request", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", `""`)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	metrics.ObserveUpstream("vies", start)
	if err != nil {
		c.logger.Warn("VIES request failed", zap.String("country_code", req.CountryCode), zap.Error(err))
		return nil, apperrors.Network("VIES request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.Network("failed to read VIES response", err)
	}

	var env responseEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, apperrors.Newf(apperrors.TypeNetwork, "VIES returned status %d", resp.StatusCode)
		}
		return nil, apperrors.Parsing("invalid VIES response", err)
	}

	// faults usually come with a 500
	if env.Body.Fault != nil {
		c.logger.Debug("VIES fault",
			zap.String("country_code", req.CountryCode),
			zap.String("fault", env.Body.Fault.String),
		)
		return nil, env.Body.Fault
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf(apperrors.TypeNetwork, "VIES returned status %d", resp.StatusCode)
	}
	if env.Body.Response == nil {
		return nil, apperrors.Parsing("VIES response has no checkVatResponse", nil)
	}

	r := env.Body.Response
	return &vies.CheckResponse{
		CountryCode: r.CountryCode,
		VATNumber:   r.VATNumber,
		RequestDate: parseRequestDate(r.RequestDate),
		Valid:       r.Valid,
		Name:        cleanField(r.Name),
		Address:     cleanField(r.Address),
	}, nil
}

// parseRequestDate reads xsd:date values such as 2024-01-02+01:00
func parseRequestDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// cleanField drops the "---" placeholder VIES sends for withheld data
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if s == "---" {
		return ""
	}
	return s
}
