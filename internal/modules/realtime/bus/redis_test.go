package bus

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

var testRedisURL string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	testRedisURL, err = container.ConnectionString(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func setupClient(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	opts, err := goredis.ParseURL(testRedisURL)
	require.NoError(t, err)
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisBus_PublishSubscribe(t *testing.T) {
	b := NewRedisBus(setupClient(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := b.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "vote_event:abc", []byte(`{"type":"vote.cast"}`)))
	require.NoError(t, b.Publish(ctx, "feed:activity", []byte(`{"type":"comment.created"}`)))

	var got []Message
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case msg := <-msgs:
			got = append(got, msg)
		case <-timeout:
			t.Fatalf("timed out, received %d messages", len(got))
		}
	}

	assert.Equal(t, "vote_event:abc", got[0].Topic)
	assert.JSONEq(t, `{"type":"vote.cast"}`, string(got[0].Payload))
	assert.Equal(t, "feed:activity", got[1].Topic)
}

func TestRedisBus_SubscriptionClosesWithContext(t *testing.T) {
	b := NewRedisBus(setupClient(t))
	ctx, cancel := context.WithCancel(context.Background())

	msgs, err := b.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("subscription channel was not closed")
	}
}
