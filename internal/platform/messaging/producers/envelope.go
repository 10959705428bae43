package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/debit-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// EnvelopeProducer publishes transaction envelopes for the processor. Messages are keyed
// by source account so one account's transactions stay on one partition, in order.
type EnvelopeProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewEnvelopeProducer ensures the transaction topic exists and opens a synchronous writer
func NewEnvelopeProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*EnvelopeProducer, error) {
	if cfg.TransactionTopic == "" {
		return nil, fmt.Errorf("kafka transaction topic is not configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for envelope producer: %w", err)
	}
	defer conn.Close()

	if err := ensureTopic(conn, cfg.TransactionTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure transaction topic %s exists: %w", cfg.TransactionTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.TransactionTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return &EnvelopeProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.TransactionTopic,
	}, nil
}

// Publish writes value as JSON and returns once the brokers acknowledged it
func (p *EnvelopeProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish envelope",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish envelope to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published envelope",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *EnvelopeProducer) Close() error {
	p.logger.Info("Closing envelope producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
