// Package metrics exposes Prometheus counters for escrow activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bount3-backend/core/escrow"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bount3_escrow_events_total",
		Help: "Escrow state changes by event type.",
	}, []string{"type"})

	platformEarned = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bount3_escrow_platform_earned_microunits",
		Help: "Accrued platform fees in microunits.",
	})
)

// ObserveEvent counts a committed escrow state change. Register it as an
// event sink.
func ObserveEvent(evt escrow.Event) {
	eventsTotal.WithLabelValues(evt.Type).Inc()
}

// SetPlatformEarned records the accrued platform fee total.
func SetPlatformEarned(amount uint64) {
	platformEarned.Set(float64(amount))
}

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
