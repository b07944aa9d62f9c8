package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vitrina"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking lifecycle operations by transition and outcome.",
		},
		[]string{"transition", "outcome"},
	)

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_checks_total",
			Help:      "Slot availability checks by result.",
		},
		[]string{"result"},
	)

	numberingRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_number_retries_total",
			Help:      "Booking creations retried after a booking number collision.",
		},
	)

	simulatorRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulator_runs_total",
			Help:      "Demo activity simulator runs by trigger.",
		},
		[]string{"trigger"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			bookingTransitions,
			availabilityChecks,
			numberingRetries,
			simulatorRuns,
		)
	})
}

// ObserveHTTP records one served request.
func ObserveHTTP(route, method string, status int, dur time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(dur.Seconds())
}

// IncTransition counts a lifecycle operation; outcome is "ok" or an error class.
func IncTransition(transition, outcome string) {
	bookingTransitions.WithLabelValues(transition, outcome).Inc()
}

func IncAvailabilityCheck(available bool) {
	result := "unavailable"
	if available {
		result = "available"
	}
	availabilityChecks.WithLabelValues(result).Inc()
}

func IncNumberingRetry() {
	numberingRetries.Inc()
}

func IncSimulatorRun(trigger string) {
	simulatorRuns.WithLabelValues(trigger).Inc()
}
