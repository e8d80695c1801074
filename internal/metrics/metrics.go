package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingRequested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "societyhub",
			Name:      "booking_requested_total",
			Help:      "Count of booking requests by outcome.",
		},
		[]string{"outcome"},
	)

	bookingDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "societyhub",
			Name:      "booking_decision_total",
			Help:      "Count of staff decisions over bookings.",
		},
		[]string{"decision"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "societyhub",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled by requesters or staff.",
		},
	)

	visitorTransition = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "societyhub",
			Name:      "visitor_transition_total",
			Help:      "Count of visitor status transitions.",
		},
		[]string{"to"},
	)

	notificationsQueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "societyhub",
			Name:      "notifications_queued_total",
			Help:      "Count of notification rows written.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "societyhub",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route and status class.",
		},
		[]string{"route", "class"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingRequested,
			bookingDecision,
			bookingCancelled,
			visitorTransition,
			notificationsQueued,
			httpRequests,
		)
	})
}

func IncBookingRequested(outcome string) {
	bookingRequested.WithLabelValues(outcome).Inc()
}

func IncBookingDecision(decision string) {
	bookingDecision.WithLabelValues(decision).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncVisitorTransition(to string) {
	visitorTransition.WithLabelValues(to).Inc()
}

func IncNotificationQueued() {
	notificationsQueued.Inc()
}

func IncHTTP(route, class string) {
	httpRequests.WithLabelValues(route, class).Inc()
}
