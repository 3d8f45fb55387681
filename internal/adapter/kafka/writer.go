package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-atcf-tracker/internal/config"
	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
)

// Writer publishes track-update notifications to the sink topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic. Messages
// are keyed by ATCF ID so updates to one storm stay ordered on a partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes the appended updates of a batch in a single
// WriteMessages call. Duplicates are not announced.
func (w *Writer) LoadBatch(ctx context.Context, updates []domain.TrackUpdate) error {
	msgs := make([]kafkago.Message, 0, len(updates))
	for _, u := range updates {
		if !u.Appended {
			continue
		}
		msg, err := serializeToMessage(u)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish track updates: %w", err)
	}
	w.logger.Debug("track updates published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a TrackUpdate into a Kafka message.
func serializeToMessage(u domain.TrackUpdate) (kafkago.Message, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize track update: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(u.StormID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "atcf_id", Value: []byte(u.StormID)},
			{Key: "technique", Value: []byte(u.Technique)},
			{Key: "processed_at", Value: []byte(u.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
