// Package api - Request normalization and audit
// Every calculation is normalized and hashed before it reaches the
// calculator, so identical requests share an input hash in the audit log.
package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"vat-calculator/core/types"
)

// CalculationEnvelope is the normalized form of a CalculateRequest
type CalculationEnvelope struct {
	Amount      string            `json:"amount"`
	From        string            `json:"from"`
	CountryCode types.CountryCode `json:"country_code"`
	PostalCode  string            `json:"postal_code,omitempty"`
	Company     bool              `json:"company"`
	RateType    types.RateType    `json:"rate_type,omitempty"`

	// InputHash identifies the normalized request
	InputHash string `json:"input_hash"`
}

// Normalize canonicalizes a request. Amounts are rendered with
// trailing zeros trimmed so 24, 24.0 and "24.00" hash alike.
func Normalize(req CalculateRequest) CalculationEnvelope {
	env := CalculationEnvelope{
		Amount:      req.Amount.String(),
		From:        normalizeFrom(req.From),
		CountryCode: types.Country(req.CountryCode),
		PostalCode:  strings.TrimSpace(req.PostalCode),
		Company:     req.Company,
		RateType:    types.RateType(strings.ToLower(strings.TrimSpace(req.RateType))),
	}
	env.InputHash = computeInputHash(env)
	return env
}

func normalizeFrom(from string) string {
	if strings.EqualFold(strings.TrimSpace(from), "gross") {
		return "gross"
	}
	return "net"
}

func computeInputHash(env CalculationEnvelope) string {
	env.InputHash = ""
	data, _ := json.Marshal(env)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash returns the first 12 characters of the hash
func (e CalculationEnvelope) ShortHash() string {
	if len(e.InputHash) >= 12 {
		return e.InputHash[:12]
	}
	return e.InputHash
}

// AuditEntry is the audit record of one API call
type AuditEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	Operation  string    `json:"operation"`
	InputHash  string    `json:"input_hash,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

// MarkFailed marks the audit entry as failed
func (e *AuditEntry) MarkFailed(err error) {
	e.Success = false
	e.Error = err.Error()
}

// SetDuration sets the duration
func (e *AuditEntry) SetDuration(d time.Duration) {
	e.DurationMs = d.Milliseconds()
}

// AuditLogger records audit entries
type AuditLogger interface {
	Log(entry AuditEntry) error
}

// ZapAuditLogger writes audit entries as structured log lines
type ZapAuditLogger struct {
	logger *zap.Logger
}

// NewZapAuditLogger creates an audit logger on l
func NewZapAuditLogger(l *zap.Logger) *ZapAuditLogger {
	return &ZapAuditLogger{logger: l.Named("audit")}
}

// Log writes one entry at info level
func (l *ZapAuditLogger) Log(e AuditEntry) error {
	l.logger.Info("audit",
		zap.Time("timestamp", e.Timestamp),
		zap.String("request_id", e.RequestID),
		zap.String("operation", e.Operation),
		zap.String("input_hash", e.InputHash),
		zap.String("client_ip", e.ClientIP),
		zap.String("user_agent", e.UserAgent),
		zap.Int64("duration_ms", e.DurationMs),
		zap.Bool("success", e.Success),
		zap.String("error", e.Error),
	)
	return nil
}

// MultiAuditLogger writes every entry to each of its loggers
type MultiAuditLogger []AuditLogger

// Log writes to all loggers and joins their errors
func (m MultiAuditLogger) Log(e AuditEntry) error {
	var errs []error
	for _, l := range m {
		if err := l.Log(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopAuditLogger struct{}

func (nopAuditLogger) Log(AuditEntry) error { return nil }
