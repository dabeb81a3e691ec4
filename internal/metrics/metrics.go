package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsugu_commands_total",
			Help: "Commands dispatched to a handler",
		},
		[]string{"action"},
	)

	CommandFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsugu_command_failures_total",
			Help: "Commands that ended in an upstream failure reply",
		},
		[]string{"action"},
	)

	RoomSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsugu_room_submissions_total",
			Help: "Room announcements accepted from chat",
		},
		[]string{"relayed"}, // "true" or "false"
	)

	RoomFeedErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tsugu_room_feed_errors_total",
			Help: "Failed fetches of the external room feed",
		},
	)

	RoomsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsugu_rooms_live",
			Help: "Rooms in the live set after the last query",
		},
	)

	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsugu_backend_requests_total",
			Help: "Requests to the Tsugu backend",
		},
		[]string{"endpoint", "outcome"}, // outcome: "ok" or "error"
	)
)
