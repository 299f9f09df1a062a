package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WebSocket connection metrics
var (
	// ConnectionsCurrent tracks the number of currently registered connections
	ConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_current",
			Help: "Number of currently registered WebSocket connections",
		},
	)

	// ConnectionsTotal tracks accepted connections since start
	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total WebSocket connections accepted",
		},
	)

	// MessagesReceived tracks inbound client messages by envelope type
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Inbound WebSocket messages by envelope type",
		},
		[]string{"type"},
	)

	// MessagesDelivered tracks successful local deliveries to clients
	MessagesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_delivered_total",
			Help: "Messages successfully written to local WebSocket clients",
		},
	)

	// DeliveryFailures tracks sends that failed against registered connections
	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_delivery_failures_total",
			Help: "Message sends that failed against registered connections",
		},
	)

	// HeartbeatTimeouts tracks connections evicted by the liveness monitor
	HeartbeatTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_heartbeat_timeouts_total",
			Help: "Connections evicted after missing their heartbeat window",
		},
	)
)

// Pub/Sub metrics
var (
	// PubSubMessagesReceived tracks messages received from the broker by channel
	PubSubMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubsub_messages_received_total",
			Help: "Messages received from the pub/sub broker by channel",
		},
		[]string{"channel"},
	)

	// PubSubPublishErrors tracks failed broker publishes
	PubSubPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pubsub_publish_errors_total",
			Help: "Total failed publishes to the pub/sub broker",
		},
	)

	// PubSubResubscribes tracks listener reconnection attempts
	PubSubResubscribes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pubsub_resubscribes_total",
			Help: "Times the pub/sub listener re-established its subscription",
		},
	)
)

// Redis broker metrics
var (
	// RedisCommands counts commands the broker issues (publish, subscribe,
	// ping) by command name and outcome
	RedisCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_redis_commands_total",
			Help: "Redis commands issued by the pub/sub broker, by command and status",
		},
		[]string{"command", "status"},
	)

	// RedisCommandDuration tracks broker command latency in seconds
	RedisCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "broker_redis_command_duration_seconds",
			Help:    "Latency of Redis commands issued by the pub/sub broker",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"command"},
	)

	// RedisDialErrors counts failed attempts to open a Redis connection
	RedisDialErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_redis_dial_errors_total",
			Help: "Failed attempts to establish a Redis connection",
		},
	)
)
