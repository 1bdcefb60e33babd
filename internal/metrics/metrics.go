// Package metrics exposes Prometheus counters for reservations, redemptions
// and HTTP traffic. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ecoplate-api/internal/model"
)

const namespace = "ecoplate"

// Reservation outcomes.
const (
	ReserveCreated   = "created"
	ReserveSoldOut   = "sold_out"
	ReserveDuplicate = "duplicate"
	ReserveInvalid   = "invalid"
	ReserveError     = "error"
)

// Metrics holds every collector the service reports.
type Metrics struct {
	reservations *prometheus.CounterVec
	redemptions  *prometheus.CounterVec
	cancels      prometheus.Counter
	noShows      prometheus.Counter
	cache        *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome.",
		}, []string{"result"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemptions_total",
			Help:      "Redeem calls by outcome.",
		}, []string{"result"}),
		cancels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Reservations cancelled.",
		}),
		noShows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "no_shows_total",
			Help:      "Reservations marked as no-show.",
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drop_list_cache_total",
			Help:      "Drop list cache lookups by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.reservations, m.redemptions, m.cancels, m.noShows, m.cache, m.httpRequests, m.httpDuration)
	return m
}

// Reservation counts one reserve attempt.
func (m *Metrics) Reservation(result string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(result).Inc()
}

// Redemption counts one redeem call. reason is empty for a valid code.
func (m *Metrics) Redemption(valid bool, reason string) {
	if m == nil {
		return
	}
	result := "valid"
	if !valid {
		result = redemptionLabel(reason)
	}
	m.redemptions.WithLabelValues(result).Inc()
}

func redemptionLabel(reason string) string {
	switch reason {
	case model.ReasonNotFound:
		return "not_found"
	case model.ReasonAlreadyRedeemed:
		return "already_redeemed"
	case model.ReasonExpired:
		return "expired"
	}
	return "invalid"
}

// Cancellation counts one cancel.
func (m *Metrics) Cancellation() {
	if m == nil {
		return
	}
	m.cancels.Inc()
}

// NoShow counts one reserved → no_show transition.
func (m *Metrics) NoShow() {
	if m == nil {
		return
	}
	m.noShows.Inc()
}

// CacheLookup counts a drop list cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cache.WithLabelValues("hit").Inc()
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}
