package service

import (
	"context"
	"log/slog"
	"time"

	"anoa.com/voteledger/internal/modules/realtime/bus"
	"anoa.com/voteledger/pkg/retry"
)

// Broadcaster is the local fan-out the relay feeds.
type Broadcaster interface {
	Broadcast(topic string, payload []byte)
}

// Relay forwards every bus message to this instance's subscribers.
type Relay struct {
	bus    bus.Bus
	target Broadcaster
	policy retry.Policy
}

func NewRelay(b bus.Bus, target Broadcaster) *Relay {
	return &Relay{
		bus:    b,
		target: target,
		policy: retry.Policy{
			MaxAttempts:    10,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     30 * time.Second,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("bus subscribe failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	}
}

// Run blocks until ctx is done. A dropped subscription is re-established, and
// an exhausted retry round starts over, so a long bus outage never ends the relay.
func (r *Relay) Run(ctx context.Context) error {
	for {
		msgs, err := r.subscribe(ctx)
		if err != nil {
			return nil
		}

		for msg := range msgs {
			r.target.Broadcast(msg.Topic, msg.Payload)
		}

		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("bus subscription closed, resubscribing")
	}
}

// alwaysResubscribe retries every error; retry.Do itself stops waiting when ctx is done.
func alwaysResubscribe(error) retry.Action { return retry.Retry }

// subscribe returns an error only once ctx is done.
func (r *Relay) subscribe(ctx context.Context) (<-chan bus.Message, error) {
	for {
		msgs, err := retry.Do(ctx, r.policy, alwaysResubscribe, func() (<-chan bus.Message, error) {
			return r.bus.Subscribe(ctx)
		})
		if err == nil {
			return msgs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Error("bus still unavailable, starting a new retry round", "attempts", r.policy.MaxAttempts, "error", err)
	}
}
