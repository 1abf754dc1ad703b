package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vote_ledger"

var (
	// VoteOutcomes counts CastVote results by outcome ("ok", "already_voted", ...).
	VoteOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "votes",
			Name:      "cast_total",
			Help:      "Vote cast attempts by outcome",
		},
		[]string{"outcome"},
	)

	VoteCastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "votes",
			Name:      "cast_duration_seconds",
			Help:      "Time spent in the vote cast transaction",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	PointsDebited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "points_debited_total",
			Help:      "Points spent on votes",
		},
	)

	PointsCredited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "points_credited_total",
			Help:      "Points granted or credited",
		},
		[]string{"action"},
	)

	// InteractionsRecorded counts interactions by type and whether they were new.
	InteractionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interactions",
			Name:      "recorded_total",
			Help:      "Interaction records by type and result",
		},
		[]string{"type", "result"},
	)

	CommentLikeToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comments",
			Name:      "like_toggles_total",
			Help:      "Comment like toggles by resulting state",
		},
		[]string{"state"},
	)

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "published_total",
			Help:      "Change notifications handed to the bus by result",
		},
		[]string{"type", "result"},
	)

	NotifierBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "breaker_state",
			Help:      "Notifier circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections",
			Help:      "Currently connected websocket subscribers",
		},
	)

	WebSocketDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "slow_clients_dropped_total",
			Help:      "Subscribers disconnected because their send buffer overflowed",
		},
	)

	WebSocketRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rejected_total",
			Help:      "Websocket upgrades refused by reason",
		},
		[]string{"reason"},
	)

	ScoreDecayRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interactions",
			Name:      "decay_runs_total",
			Help:      "Score decay job runs by result",
		},
		[]string{"result"},
	)
)
