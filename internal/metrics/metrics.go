package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "byronhub",
			Name:      "booking_submitted_total",
			Help:      "Count of reservation requests sent by outcome.",
		},
		[]string{"status"},
	)

	cartMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "byronhub",
			Name:      "cart_mutations_total",
			Help:      "Count of selection cart mutations by operation.",
		},
		[]string{"op"},
	)

	resolverSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "byronhub",
			Name:      "availability_skipped_records_total",
			Help:      "Count of reservation records skipped as malformed.",
		},
	)

	staleLoads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "byronhub",
			Name:      "availability_stale_loads_total",
			Help:      "Count of availability fetches discarded because the view moved on.",
		},
	)

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "byronhub",
			Name:      "api_requests_total",
			Help:      "Count of backend requests by method and status class.",
		},
		[]string{"method", "status"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingSubmitted, cartMutations, resolverSkipped, staleLoads, apiRequests)
	})
}

func IncBookingSubmitted(status string) {
	bookingSubmitted.WithLabelValues(status).Inc()
}

func IncCartMutation(op string) {
	cartMutations.WithLabelValues(op).Inc()
}

func IncResolverSkipped() {
	resolverSkipped.Inc()
}

func IncStaleLoad() {
	staleLoads.Inc()
}

func IncAPIRequest(method, status string) {
	apiRequests.WithLabelValues(method, status).Inc()
}
