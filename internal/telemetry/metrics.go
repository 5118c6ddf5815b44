package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/gatebridge/internal/loop"
	"github.com/san-kum/gatebridge/internal/setpoint"
)

const namespace = "gatebridge"

const (
	ResultAccepted   = "accepted"
	ResultOverflow   = "overflow"
	ResultOutOfOrder = "out_of_order"
)

// Metrics holds the Prometheus instruments for the bridge. Label children
// are resolved at construction so updates from the tick path are plain
// atomic adds.
type Metrics struct {
	registry *prometheus.Registry

	ticks        prometheus.Counter
	trips        prometheus.Counter
	saturated    prometheus.Counter
	overruns     prometheus.Counter
	faults       prometheus.Counter
	dropped      prometheus.Counter
	tickDuration prometheus.Histogram
	setpointAge  prometheus.Gauge
	submissions  *prometheus.CounterVec

	accepted   prometheus.Counter
	overflow   prometheus.Counter
	outOfOrder prometheus.Counter
}

// NewMetrics registers every instrument on registry, or on a fresh registry
// when nil.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Control ticks executed.",
		}),
		trips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watchdog_trips_total",
			Help:      "Setpoints invalidated by the watchdog for staleness.",
		}),
		saturated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saturated_commands_total",
			Help:      "Actuator commands clamped to their limits.",
		}),
		overruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_overruns_total",
			Help:      "Ticks whose execution exceeded the loop period.",
		}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_faults_total",
			Help:      "Ticks that ended with a plant error or recovered panic.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_dropped_total",
			Help:      "Alerts discarded because the alert queue was full.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock execution time of one control tick.",
			Buckets:   []float64{10e-6, 25e-6, 50e-6, 100e-6, 250e-6, 500e-6, 1e-3, 2.5e-3, 5e-3},
		}),
		setpointAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "setpoint_age_ms",
			Help:      "Age of the setpoint driving the last tick.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Setpoint submissions by outcome.",
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.ticks, m.trips, m.saturated, m.overruns, m.faults, m.dropped,
		m.tickDuration, m.setpointAge, m.submissions,
	)

	m.accepted = m.submissions.WithLabelValues(ResultAccepted)
	m.overflow = m.submissions.WithLabelValues(ResultOverflow)
	m.outOfOrder = m.submissions.WithLabelValues(ResultOutOfOrder)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// OnTick implements loop.Observer.
func (m *Metrics) OnTick(r *loop.Record) {
	m.ticks.Inc()
	if r.Saturated > 0 {
		m.saturated.Add(float64(r.Saturated))
	}
	if r.Err != nil {
		m.faults.Inc()
	}
	if r.Valid && r.Tick >= r.SetpointTick {
		m.setpointAge.Set(float64(r.Tick - r.SetpointTick))
	}
}

// OnSubmit implements setpoint.SubmitObserver.
func (m *Metrics) OnSubmit(*setpoint.Setpoint) { m.accepted.Inc() }

func (m *Metrics) ObserveTickDuration(d time.Duration) {
	m.tickDuration.Observe(d.Seconds())
}

func (m *Metrics) incTrip()       { m.trips.Inc() }
func (m *Metrics) incOverflow()   { m.overflow.Inc() }
func (m *Metrics) incOutOfOrder() { m.outOfOrder.Inc() }
func (m *Metrics) incOverrun()    { m.overruns.Inc() }
func (m *Metrics) incDropped()    { m.dropped.Inc() }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
