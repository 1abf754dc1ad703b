package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"anoa.com/voteledger/internal/modules/realtime/bus"
	"github.com/stretchr/testify/assert"
)

func TestRelay_ForwardsAndResubscribes(t *testing.T) {
	subscriptions := 0
	b := &mockBus{
		subscribeFn: func(ctx context.Context) (<-chan bus.Message, error) {
			subscriptions++
			ch := make(chan bus.Message, 2)
			ch <- bus.Message{Topic: "feed:activity", Payload: []byte("x")}
			if subscriptions == 1 {
				// First subscription ends right away, the relay must reconnect.
				close(ch)
				return ch, nil
			}
			go func() {
				<-ctx.Done()
				close(ch)
			}()
			return ch, nil
		},
	}
	target := &recordingBroadcaster{}
	relay := NewRelay(b, target)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	assert.Eventually(t, func() bool { return target.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
	assert.Equal(t, 2, subscriptions)
}

func TestRelay_SurvivesLongBusOutage(t *testing.T) {
	const failures = 25
	var subscriptions atomic.Int32
	b := &mockBus{
		subscribeFn: func(ctx context.Context) (<-chan bus.Message, error) {
			if subscriptions.Add(1) <= failures {
				return nil, errors.New("redis: connection refused")
			}
			ch := make(chan bus.Message, 1)
			ch <- bus.Message{Topic: "feed:events", Payload: []byte("back")}
			go func() {
				<-ctx.Done()
				close(ch)
			}()
			return ch, nil
		},
	}
	target := &recordingBroadcaster{}
	relay := NewRelay(b, target)
	relay.policy.InitialBackoff = time.Millisecond
	relay.policy.MaxBackoff = 2 * time.Millisecond
	relay.policy.OnRetry = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	assert.Eventually(t, func() bool { return target.count() == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, failures+1, subscriptions.Load())

	select {
	case err := <-done:
		t.Fatalf("relay stopped while ctx was live: %v", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRelay_StopsWhileBusIsDown(t *testing.T) {
	b := &mockBus{
		subscribeFn: func(context.Context) (<-chan bus.Message, error) {
			return nil, errors.New("redis: connection refused")
		},
	}
	relay := NewRelay(b, &recordingBroadcaster{})
	relay.policy.InitialBackoff = time.Millisecond
	relay.policy.MaxBackoff = time.Millisecond
	relay.policy.OnRetry = nil

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	select {
	case err := <-runAsync(ctx, relay):
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after ctx expired")
	}
}

func runAsync(ctx context.Context, r *Relay) <-chan error {
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	return done
}
