package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu       sync.Mutex
	calls    int
	failures int
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	r.calls++
	call := r.calls
	r.mu.Unlock()

	if call <= r.failures {
		return kafka.Message{}, errors.New("kafka: leader not available")
	}
	if call == r.failures+1 {
		return kafka.Message{Key: []byte("feed:events"), Value: []byte("x")}, nil
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestPump_BacksOffOnReadErrors(t *testing.T) {
	reader := &fakeReader{failures: 1000}
	out := make(chan Message, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	pump(ctx, reader, out, 40*time.Millisecond)

	// 100ms with a 40ms pause allows three reads, not a spin.
	assert.LessOrEqual(t, reader.callCount(), 4)
}

func TestPump_RecoversAfterErrors(t *testing.T) {
	reader := &fakeReader{failures: 3}
	out := make(chan Message, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pump(ctx, reader, out, time.Millisecond)
		close(done)
	}()

	select {
	case msg := <-out:
		assert.Equal(t, "feed:events", msg.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("no message after the reader recovered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop")
	}
}

func TestNewKafkaBus_KeepsOneGroupPerProcess(t *testing.T) {
	b := NewKafkaBus(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "changes"}).(*kafkaBus)
	t.Cleanup(func() { _ = b.Close() })

	require.NotEmpty(t, b.groupID)
	assert.Contains(t, b.groupID, "vote-ledger-notifier-")
	assert.Equal(t, time.Second, b.cfg.ReadErrorBackoff)
}
