// internal/pkg/events/producer.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
)

// Producer publishes domain events to a Kafka topic. Payloads are JSON; the
// key routes events for the same subject to the same partition.
type Producer struct {
	writer *kafka.Writer
	log    *logrus.Logger
}

// NewProducer creates a producer for the configured order topic. Returns nil
// when the stream is disabled; callers treat a nil producer as a no-op.
func NewProducer(cfg *config.Config, log *logrus.Logger) *Producer {
	if !cfg.Kafka.Enabled {
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
	}

	return &Producer{
		writer: writer,
		log:    log,
	}
}

// Publish serializes payload and writes it to the topic
func (p *Producer) Publish(ctx context.Context, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"topic": p.writer.Topic,
		"key":   key,
	}).Debug("Event published")
	return nil
}

// Close flushes and closes the underlying writer
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
