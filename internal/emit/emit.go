package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"walletwatch/internal/model"
)

// Sink mirrors normalized events to an external consumer.
type Sink interface {
	Emit(ctx context.Context, events []model.TransactionEvent) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Emit(context.Context, []model.TransactionEvent) error { return nil }
func (Nop) Close() error                                         { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each event as JSON keyed by its tx hash.
type KafkaSink struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaSink builds a writer for the given brokers.
func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) (*KafkaSink, error) {
	var addrs []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(addrs...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
		},
		logger: logger,
	}, nil
}

// Emit writes the events in one call; ordering per tx hash follows the partition.
func (k *KafkaSink) Emit(ctx context.Context, events []model.TransactionEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", ev.TxHash, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(ev.TxHash), Value: value})
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write to kafka: %w", err)
	}
	if k.logger != nil {
		k.logger.Debug("events mirrored", zap.Int("count", len(msgs)))
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
