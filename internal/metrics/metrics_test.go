package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Reservation(ReserveCreated)
	m.Reservation(ReserveCreated)
	m.Reservation(ReserveSoldOut)
	m.Redemption(true, "")
	m.Redemption(false, "Already redeemed")
	m.Redemption(false, "Code not found")
	m.Cancellation()
	m.NoShow()
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.HTTPRequest("GET", "/api/v1/drops", 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reservations.WithLabelValues(ReserveCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reservations.WithLabelValues(ReserveSoldOut)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redemptions.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redemptions.WithLabelValues("already_redeemed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redemptions.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cancels))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.noShows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/drops", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Reservation(ReserveCreated)
		m.Redemption(false, "x")
		m.Cancellation()
		m.NoShow()
		m.CacheLookup(true)
		m.HTTPRequest("GET", "/", 200, time.Millisecond)
	})
}
