// Package events publishes platform activity to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/internal/domain/service"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// KafkaProducer is the Kafka-backed EventProducer.
type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

var _ service.EventProducer = (*KafkaProducer)(nil)

// NewKafkaProducer creates a producer for the platform event topic.
func NewKafkaProducer(cfg *config.KafkaConfig, log logger.Logger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.EventTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: time.Duration(cfg.BatchTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
	}
	return &KafkaProducer{
		writer: writer,
		logger: log.WithComponent("KafkaProducer"),
	}
}

// Publish sends a platform event. Failures are logged and returned; callers
// treat event publishing as best effort.
func (p *KafkaProducer) Publish(ctx context.Context, event *models.PlatformEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(ctx, "failed to marshal platform event", err)
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Type),
		Value: payload,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to write platform event", err, logger.String("type", event.Type))
	}
	return err
}

// Close closes the underlying writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// noopProducer drops events. Used when Kafka is disabled and in tests.
type noopProducer struct{}

// NewNoopProducer creates a producer that discards events.
func NewNoopProducer() service.EventProducer {
	return &noopProducer{}
}

func (noopProducer) Publish(ctx context.Context, event *models.PlatformEvent) error { return nil }
func (noopProducer) Close() error                                                   { return nil }
