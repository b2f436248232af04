// Package auditlog ships API audit entries to Kafka.
package auditlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"vat-calculator/api"
	apperrors "vat-calculator/internal/errors"
	"vat-calculator/internal/logging"
)

// DefaultTopic receives audit entries when no topic is configured
const DefaultTopic = "vatcalc.audit"

// DefaultBatchTimeout bounds how long a single audit entry waits for a
// batch to fill
const DefaultBatchTimeout = 10 * time.Millisecond

// Config holds Kafka settings
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	BatchTimeout time.Duration
}

// MessageWriter is the part of *kafka.Writer the logger uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter creates a Kafka writer for cfg
func NewWriter(cfg Config) *kafka.Writer {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = DefaultBatchTimeout
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
}

// KafkaLogger implements api.AuditLogger. Entries are keyed by input
// hash so identical calculations land on one partition.
type KafkaLogger struct {
	writer  MessageWriter
	timeout time.Duration
	logger  *zap.Logger
}

var _ api.AuditLogger = (*KafkaLogger)(nil)

// NewKafkaLogger creates a logger on w. Each write is bounded by timeout.
func NewKafkaLogger(w MessageWriter, timeout time.Duration, logger *zap.Logger) *KafkaLogger {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaLogger{writer: w, timeout: timeout, logger: logging.OrNop(logger)}
}

// Log publishes one entry
func (l *KafkaLogger) Log(e api.AuditEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return apperrors.Internal("failed to encode audit entry", err)
	}

	key := e.InputHash
	if key == "" {
		key = e.RequestID
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "operation", Value: []byte(e.Operation)},
			{Key: "request_id", Value: []byte(e.RequestID)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := l.writer.WriteMessages(ctx, msg); err != nil {
		l.logger.Error("failed to publish audit entry",
			zap.String("request_id", e.RequestID),
			zap.Error(err),
		)
		return apperrors.Network("failed to publish audit entry", err)
	}
	return nil
}

// Close flushes and closes the writer
func (l *KafkaLogger) Close() error {
	return l.writer.Close()
}
