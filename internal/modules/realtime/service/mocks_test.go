package service

import (
	"context"
	"sync"

	"anoa.com/voteledger/internal/modules/realtime/bus"
)

type mockBus struct {
	mu          sync.Mutex
	published   []bus.Message
	publishErr  error
	subscribeFn func(ctx context.Context) (<-chan bus.Message, error)
}

func (m *mockBus) Publish(_ context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, bus.Message{Topic: topic, Payload: payload})
	return nil
}

func (m *mockBus) Subscribe(ctx context.Context) (<-chan bus.Message, error) {
	return m.subscribeFn(ctx)
}

func (m *mockBus) Close() error { return nil }

func (m *mockBus) messages() []bus.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bus.Message(nil), m.published...)
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	msgs []bus.Message
}

func (r *recordingBroadcaster) Broadcast(topic string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, bus.Message{Topic: topic, Payload: payload})
}

func (r *recordingBroadcaster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}
