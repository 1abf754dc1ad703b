package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestVoteOutcomes_CountsByLabel(t *testing.T) {
	before := testutil.ToFloat64(VoteOutcomes.WithLabelValues("already_voted"))

	VoteOutcomes.WithLabelValues("already_voted").Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(VoteOutcomes.WithLabelValues("already_voted")))
}

func TestWebSocketConnections_Gauge(t *testing.T) {
	WebSocketConnections.Set(0)
	WebSocketConnections.Inc()
	WebSocketConnections.Inc()
	WebSocketConnections.Dec()

	assert.Equal(t, float64(1), testutil.ToFloat64(WebSocketConnections))
}
