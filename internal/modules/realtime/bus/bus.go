package bus

import (
	"context"
)

// Message is one payload received from the bus, tagged with its logical topic.
type Message struct {
	Topic   string
	Payload []byte
}

// Bus fans change notifications out to every service instance.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe delivers messages for every topic until ctx is done, then closes the channel.
	Subscribe(ctx context.Context) (<-chan Message, error)
	Close() error
}

const subscriberBuffer = 256
