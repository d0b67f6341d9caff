package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"identity-plane/internal/identity/domain"
)

const kafkaWriteTimeout = 5 * time.Second

// KafkaSink is an event handler that publishes every delivered event to a
// Kafka topic as JSON, keyed by aggregate id. Best-effort: write failures are
// logged, never surfaced.
type KafkaSink struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewKafkaSink creates a sink writing to topic on the given brokers. Returns
// nil when brokers or topic are unset (event streaming disabled). Call Close
// on shutdown.
func NewKafkaSink(brokers []string, topic string, log *zap.Logger) *KafkaSink {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaSink{writer: writer, log: log}
}

// Handle implements Handler.
func (s *KafkaSink) Handle(ctx context.Context, evt domain.Event) {
	if s == nil || s.writer == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		s.log.Error("event stream: marshal failed", zap.Error(err))
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, kafkaWriteTimeout)
	defer cancel()
	err = s.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(evt.AggregateID()),
		Value: payload,
	})
	if err != nil {
		s.log.Warn("event stream: kafka write failed",
			zap.String("event_type", string(evt.Type())),
			zap.Error(err))
	}
}

// Close closes the Kafka writer. Safe to call on a nil sink.
func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
