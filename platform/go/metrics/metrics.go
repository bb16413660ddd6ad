package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the engine's Prometheus collectors.
type Metrics struct {
	BookingsCreated  prometheus.Counter
	Transitions      *prometheus.CounterVec
	ConflictsTotal   prometheus.Counter
	LockWaitSeconds  prometheus.Histogram
	SweepsTotal      prometheus.Counter
	SweepErrors      prometheus.Counter
	HoldsExpired     prometheus.Counter
	RelayPublished   prometheus.Counter
	RelayErrorsTotal prometheus.Counter
}

// New registers the engine collectors on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the collectors on the provided registerer. Tests pass a
// fresh prometheus.NewRegistry so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "pencilbook_bookings_created_total",
			Help: "Total number of bookings created",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pencilbook_booking_transitions_total",
			Help: "Booking transitions by target status and outcome",
		}, []string{"target", "outcome"}),
		ConflictsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pencilbook_booking_conflicts_total",
			Help: "Interval conflicts detected during check-then-write",
		}),
		LockWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pencilbook_resource_lock_wait_seconds",
			Help:    "Time spent waiting for the per-resource advisory lock",
			Buckets: prometheus.DefBuckets,
		}),
		SweepsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pencilbook_hold_sweeps_total",
			Help: "Hold expiry sweep passes",
		}),
		SweepErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "pencilbook_hold_sweep_errors_total",
			Help: "Hold expiry sweep passes that failed to query the store",
		}),
		HoldsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "pencilbook_holds_expired_total",
			Help: "Holds cancelled by the expiry sweeper",
		}),
		RelayPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "pencilbook_relay_events_published_total",
			Help: "Booking events published to the outbound stream",
		}),
		RelayErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pencilbook_relay_errors_total",
			Help: "Failures while publishing booking events",
		}),
	}
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
