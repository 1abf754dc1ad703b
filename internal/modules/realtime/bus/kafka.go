package bus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	// GroupPrefix is combined with a per-process suffix so that every instance
	// receives every message.
	GroupPrefix string
	// ReadErrorBackoff is the pause after a failed fetch. Defaults to one second.
	ReadErrorBackoff time.Duration
}

type kafkaBus struct {
	cfg     KafkaConfig
	groupID string
	writer  *kafka.Writer
}

// messageReader is the part of *kafka.Reader the read loop uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// NewKafkaBus carries all logical topics on one Kafka topic, keyed by logical topic
// so that messages for the same vote event stay ordered within a partition.
func NewKafkaBus(cfg KafkaConfig) Bus {
	if cfg.GroupPrefix == "" {
		cfg.GroupPrefix = "vote-ledger-notifier"
	}
	if cfg.ReadErrorBackoff <= 0 {
		cfg.ReadErrorBackoff = time.Second
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		Compression:  kafka.Snappy,
	}
	// One group per process; resubscribing after an error rejoins it instead of
	// creating another one on the broker.
	return &kafkaBus{cfg: cfg, groupID: cfg.GroupPrefix + "-" + uuid.NewString(), writer: w}
}

func (b *kafkaBus) Publish(ctx context.Context, topic string, payload []byte) error {
	msg := kafka.Message{
		Key:   []byte(topic),
		Value: payload,
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (b *kafkaBus) Subscribe(ctx context.Context) (<-chan Message, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.cfg.Brokers,
		Topic:    b.cfg.Topic,
		GroupID:  b.groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  250 * time.Millisecond,
		// Notifications are advisory, a new instance does not replay history.
		StartOffset: kafka.LastOffset,
	})

	out := make(chan Message, subscriberBuffer)
	go func() {
		defer close(out)
		defer r.Close()
		pump(ctx, r, out, b.cfg.ReadErrorBackoff)
	}()

	return out, nil
}

// pump copies messages into out until ctx is done. Fetch errors are logged and
// retried after backoff.
func pump(ctx context.Context, r messageReader, out chan<- Message, backoff time.Duration) {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			slog.Warn("error reading message from kafka", "error", err, "backoff", backoff)

			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
				continue
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
		select {
		case out <- Message{Topic: string(msg.Key), Payload: msg.Value}:
		case <-ctx.Done():
			return
		default:
			slog.Warn("bus subscriber is slow, dropping message", "topic", string(msg.Key))
		}
	}
}

func (b *kafkaBus) Close() error {
	if err := b.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}
