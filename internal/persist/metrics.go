package persist

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts background writes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	writesTotal   *prometheus.CounterVec
	coalesced     prometheus.Counter
	writeDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		writesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "persist",
			Name:      "writes_total",
			Help:      "Background state writes by outcome",
		}, []string{"status"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "persist",
			Name:      "coalesced_total",
			Help:      "Snapshots replaced by a newer one before being written",
		}),
		writeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agenda",
			Subsystem: "persist",
			Name:      "write_duration_seconds",
			Help:      "Latency of state writes",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.writesTotal, m.coalesced, m.writeDuration)
	return m
}

func (m *Metrics) observeWrite(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.writesTotal.WithLabelValues(status).Inc()
	m.writeDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeCoalesced() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}
