package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "triplink", Name: "booking_transitions_total", Help: "Booking ledger operations by outcome"},
		[]string{"operation", "outcome"},
	)
	SeatsReserved = promauto.NewCounter(prometheus.CounterOpts{Namespace: "triplink", Name: "seats_reserved_total", Help: "Seats taken by accepted bookings"})
	SeatsReleased = promauto.NewCounter(prometheus.CounterOpts{Namespace: "triplink", Name: "seats_released_total", Help: "Seats returned by deleted accepted bookings"})

	ReviewsCreated = promauto.NewCounter(prometheus.CounterOpts{Namespace: "triplink", Name: "reviews_created_total", Help: "Reviews written"})

	LocationLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "triplink", Name: "location_lookups_total", Help: "City coordinate lookups by the source that answered"},
		[]string{"source"},
	)
	CityPrefetches = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "triplink", Name: "city_prefetch_total", Help: "City list prefetches by outcome"},
		[]string{"outcome"},
	)

	ChatReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "triplink", Name: "chat_replies_total", Help: "Chat replies by intent and outcome"},
		[]string{"intent", "outcome"},
	)
	GenerationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "triplink",
		Name:      "chat_generation_seconds",
		Help:      "Text generation latency, including time queued behind other requests",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "triplink", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "triplink",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Outcome labels shared by the counters above
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
