package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"anoa.com/voteledger/internal/metrics"
	"anoa.com/voteledger/internal/modules/realtime/bus"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
)

// Change is the advisory payload pushed to subscribers. Clients re-fetch the
// authoritative state after receiving it.
type Change struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Topic       string     `json:"topic"`
	VoteEventID uuid.UUID  `json:"vote_event_id"`
	EntityID    *uuid.UUID `json:"entity_id,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// Notifier publishes committed changes. Delivery is best effort and failures
// never reach the caller.
type Notifier interface {
	Publish(ctx context.Context, change Change, topics ...string)
}

type NotifierOptions struct {
	PublishTimeout time.Duration
	// Consecutive failures before the breaker opens.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

var DefaultNotifierOptions = NotifierOptions{
	PublishTimeout:   2 * time.Second,
	FailureThreshold: 5,
	OpenTimeout:      30 * time.Second,
}

type notifier struct {
	bus   bus.Bus
	cb    *gobreaker.CircuitBreaker
	clock clockwork.Clock
	opts  NotifierOptions
}

func NewNotifier(b bus.Bus, clock clockwork.Clock, opts NotifierOptions) Notifier {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notifier",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			metrics.NotifierBreakerState.Set(stateToFloat(to))
		},
	})

	return &notifier{bus: b, cb: cb, clock: clock, opts: opts}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (n *notifier) Publish(ctx context.Context, change Change, topics ...string) {
	if change.ID == uuid.Nil {
		change.ID = uuid.New()
	}
	if change.OccurredAt.IsZero() {
		change.OccurredAt = n.clock.Now().UTC()
	}

	// The request may be finished by the time the bus answers.
	ctx = context.WithoutCancel(ctx)

	for _, topic := range topics {
		msg := change
		msg.Topic = topic

		payload, err := json.Marshal(msg)
		if err != nil {
			slog.Error("failed to marshal change", "type", change.Type, "error", err)
			continue
		}

		_, err = n.cb.Execute(func() (interface{}, error) {
			pctx, cancel := context.WithTimeout(ctx, n.opts.PublishTimeout)
			defer cancel()
			return nil, n.bus.Publish(pctx, topic, payload)
		})
		if err != nil {
			metrics.NotificationsPublished.WithLabelValues(change.Type, "failed").Inc()
			slog.Warn("failed to publish change", "type", change.Type, "topic", topic, "error", err)
			continue
		}
		metrics.NotificationsPublished.WithLabelValues(change.Type, "ok").Inc()
	}
}

type nopNotifier struct{}

// NewNopNotifier discards every change.
func NewNopNotifier() Notifier {
	return nopNotifier{}
}

func (nopNotifier) Publish(context.Context, Change, ...string) {}
