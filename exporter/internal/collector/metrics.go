package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "gatling_exporter"

// BufferStats is the read-only view of the line buffer exported as self-metrics.
type BufferStats interface {
	Len() int
	Cap() int
	Dropped() uint64
	Pushed() uint64
}

// selfMetrics tracks the exporter's own health.
type selfMetrics struct {
	scrapes          prometheus.Counter
	malformedBatches prometheus.Counter
	events           prometheus.Counter
	skipped          prometheus.Counter
}

// newSelfMetrics registers the exporter and runtime collectors on reg.
func newSelfMetrics(reg *prometheus.Registry, buf BufferStats) *selfMetrics {
	m := &selfMetrics{
		scrapes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrapes_total",
			Help:      "Number of collection cycles run.",
		}),
		malformedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_batches_total",
			Help:      "Collection cycles cut short by a malformed line.",
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "REQUEST records applied to the counters.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_skipped_total",
			Help:      "Lines of record kinds other than REQUEST.",
		}),
	}

	reg.MustRegister(
		m.scrapes, m.malformedBatches, m.events, m.skipped,
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_read_total",
			Help:      "Lines read from the simulation log.",
		}, func() float64 { return float64(buf.Pushed()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_dropped_total",
			Help:      "Lines evicted from a full buffer before being scraped.",
		}, func() float64 { return float64(buf.Dropped()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_lines",
			Help:      "Lines waiting in the buffer.",
		}, func() float64 { return float64(buf.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_capacity_lines",
			Help:      "Fixed capacity of the line buffer.",
		}, func() float64 { return float64(buf.Cap()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
