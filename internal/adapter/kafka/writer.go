package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
	"github.com/couchcryptid/storm-flash-track/internal/observability"
)

// Writer publishes aggregated observations to a Kafka topic, one message per
// observation. It implements pipeline.SeriesLoader.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the given brokers and sink topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// LoadSeries publishes every observation of the run in a single
// WriteMessages call. Messages are keyed by sample timestamp so a re-run
// lands each observation on the same partition.
func (w *Writer) LoadSeries(ctx context.Context, run domain.RunOutput) error {
	obs := run.Series.Observations
	if len(obs) == 0 {
		return nil
	}
	processedAt := domain.Now()
	msgs := make([]kafkago.Message, len(obs))
	for i := range obs {
		msg, err := serializeToMessage(obs[i], processedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d observations to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.metrics.ObservationsPublished.Add(float64(len(msgs)))
	w.logger.Info("observations published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an observation into a Kafka message.
func serializeToMessage(obs domain.AggregatedObservation, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(obs)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(obs.Timestamp.UTC().Format(time.RFC3339)),
		Value: data,
		Time:  obs.Timestamp,
		Headers: []kafkago.Header{
			{Key: "event_count", Value: []byte(strconv.Itoa(obs.EventCount))},
			{Key: "processed_at", Value: []byte(processedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
