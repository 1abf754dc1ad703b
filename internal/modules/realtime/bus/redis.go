package bus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "ledger:"

type redisBus struct {
	rdb redis.UniversalClient
}

// NewRedisBus publishes each topic on its own Redis channel under a shared prefix.
func NewRedisBus(rdb redis.UniversalClient) Bus {
	return &redisBus{rdb: rdb}
}

func (b *redisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channelPrefix+topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

func (b *redisBus) Subscribe(ctx context.Context) (<-chan Message, error) {
	sub := b.rdb.PSubscribe(ctx, channelPrefix+"*")

	// Wait for confirmation that subscription is created
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis psubscribe: %w", err)
	}

	out := make(chan Message, subscriberBuffer)
	go func() {
		defer close(out)
		defer sub.Close()

		msgCh := sub.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				select {
				case out <- Message{Topic: strings.TrimPrefix(msg.Channel, channelPrefix), Payload: []byte(msg.Payload)}:
				default:
					slog.Warn("bus subscriber is slow, dropping message", "topic", msg.Channel)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (b *redisBus) Close() error {
	return nil
}
