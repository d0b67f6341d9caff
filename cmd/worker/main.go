// Worker tails the domain event stream from Kafka and logs each event.
// Useful for watching registrations, logins, and notification outcomes in
// development. Set KAFKA_BROKERS and EVENTS_TOPIC.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"identity-plane/internal/config"
	"identity-plane/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "identity-plane-worker")
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.EventsTopic,
		GroupID:        "identity-plane-worker",
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("worker shutting down")
		cancel()
	}()

	logger.Info("tailing event stream",
		zap.Strings("brokers", brokers),
		zap.String("topic", cfg.EventsTopic))

	for {
		msg, err := reader.ReadMessage(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			logger.Error("read message", zap.Error(err))
			continue
		}

		var evt struct {
			EventID    string `json:"event_id"`
			EventType  string `json:"event_type"`
			Aggregate  string `json:"aggregate_id"`
			OccurredAt string `json:"occurred_at"`
		}
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Warn("malformed event", zap.Error(err), zap.ByteString("value", msg.Value))
			continue
		}
		logger.Info("event",
			zap.String("event_type", evt.EventType),
			zap.String("event_id", evt.EventID),
			zap.String("aggregate_id", evt.Aggregate),
			zap.String("occurred_at", evt.OccurredAt))
	}
}
