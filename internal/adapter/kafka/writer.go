package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/city-locator/internal/config"
	"github.com/couchcryptid/city-locator/internal/domain"
	"github.com/couchcryptid/city-locator/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes resolved cities to a Kafka topic.
type Writer struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, metrics: metrics, logger: logger}
}

// Publish serializes a resolved city and writes it to the topic. Cities are
// keyed by name so lookups of the same city land on one partition.
func (w *Writer) Publish(ctx context.Context, city domain.ResolvedCity) error {
	msg, err := serializeToMessage(city)
	if err != nil {
		w.metrics.PublishErrors.Inc()
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		w.metrics.PublishErrors.Inc()
		return fmt.Errorf("publish resolved city: %w", err)
	}
	w.metrics.CitiesPublished.Inc()
	w.logger.Debug("resolved city published", "city", city.CityName)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ResolvedCity into a Kafka message.
func serializeToMessage(city domain.ResolvedCity) (kafkago.Message, error) {
	data, err := json.Marshal(city)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize resolved city: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(city.CityName),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "city", Value: []byte(city.CityName)},
			{Key: "resolved_at", Value: []byte(city.ResolvedAt.Format(time.RFC3339))},
		},
	}, nil
}
