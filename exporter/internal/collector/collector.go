package collector

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/protobuf/proto"

	"github.com/gatlingexporter/gatling-exporter/exporter/internal/compute"
	"github.com/gatlingexporter/gatling-exporter/exporter/internal/parser"
)

// Exported family names.
const (
	LatencyFamily = "loadgenerator"
	ErrorsFamily  = "loadgenerator_errors"
	SummaryFamily = "loadgenerator_summary"
)

// Label keys.
const (
	LabelOperation = "operation_id"
	LabelStatus    = "status"
	LabelError     = "error_message"
)

// family is one exported gauge family definition.
type family struct {
	name string
	help string
	desc *prometheus.Desc
}

func newFamilyDef(name, help string, labels ...string) family {
	return family{name: name, help: help, desc: prometheus.NewDesc(name, help, labels, nil)}
}

var (
	latencyFamily = newFamilyDef(LatencyFamily,
		"loadgenerator statements response time in milliseconds",
		LabelOperation, LabelStatus)
	errorsFamily = newFamilyDef(ErrorsFamily,
		"loadgenerator aggregated errors count",
		LabelError, LabelOperation, LabelStatus)
	summaryFamily = newFamilyDef(SummaryFamily,
		"loadgenerator requests count per operation and status",
		LabelOperation, LabelStatus)
)

// Source is the line buffer as seen by the collector.
type Source interface {
	compute.Source
	BufferStats
}

// Collector runs one aggregation cycle per Gather.
type Collector struct {
	engine *compute.Engine
	src    Source
	limit  int
	reg    *prometheus.Registry
	self   *selfMetrics
}

// New wires a Collector to engine and src. Each Gather drains at most
// src.Cap() lines.
func New(engine *compute.Engine, src Source) *Collector {
	reg := prometheus.NewRegistry()
	return &Collector{
		engine: engine,
		src:    src,
		limit:  src.Cap(),
		reg:    reg,
		self:   newSelfMetrics(reg, src),
	}
}

// Gather implements prometheus.Gatherer.
func (c *Collector) Gather() ([]*dto.MetricFamily, error) {
	cycle := c.engine.Run(c.src, c.limit)
	c.observe(cycle)

	slog.Debug("collector: cycle done",
		"drained", cycle.Drained,
		"applied", cycle.Applied,
		"latency_samples", len(cycle.Latencies),
		"truncated", cycle.Truncated,
	)

	mfs := render(cycle)
	self, err := c.reg.Gather()
	mfs = append(mfs, self...)
	if err != nil {
		return mfs, fmt.Errorf("collector: gather self-metrics: %w", err)
	}
	return mfs, nil
}

// Handler returns the /metrics HTTP handler. Self-metric errors are logged
// and the load-test families are still served.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c, promhttp.HandlerOpts{
		ErrorLog:      errorLogger{},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func (c *Collector) observe(cycle *compute.Cycle) {
	c.self.scrapes.Inc()
	c.self.events.Add(float64(cycle.Applied))
	c.self.skipped.Add(float64(cycle.Skipped))
	if cycle.Truncated {
		c.self.malformedBatches.Inc()
	}
}

// render converts a cycle into gauge families in latency, errors, summary
// order. Families without samples are left out.
func render(cycle *compute.Cycle) []*dto.MetricFamily {
	latency := latencyFamily.record()
	for _, s := range cycle.Latencies {
		latencyFamily.add(latency, float64(s.LatencyMs), s.Operation, s.Status.String())
	}

	errs := errorsFamily.record()
	for _, s := range cycle.Errors {
		errorsFamily.add(errs, float64(s.Count), s.Error, s.Operation, parser.Failure.String())
	}

	summary := summaryFamily.record()
	for _, s := range cycle.Summary {
		summaryFamily.add(summary, float64(s.Count), s.Operation, s.Status.String())
	}

	out := make([]*dto.MetricFamily, 0, 3)
	for _, mf := range []*dto.MetricFamily{latency, errs, summary} {
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	return out
}

// record returns an empty family record.
func (f family) record() *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(f.name),
		Help: proto.String(f.help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

// add appends one gauge sample to mf. Label values follow the label order of
// the family. A sample that cannot be encoded is logged and skipped.
func (f family) add(mf *dto.MetricFamily, v float64, labelValues ...string) {
	m, err := prometheus.NewConstMetric(f.desc, prometheus.GaugeValue, v, labelValues...)
	if err == nil {
		pb := &dto.Metric{}
		if err = m.Write(pb); err == nil {
			mf.Metric = append(mf.Metric, pb)
			return
		}
	}
	slog.Warn("collector: skipping sample", "family", f.name, "labels", labelValues, "err", err)
}

// errorLogger routes promhttp errors to slog.
type errorLogger struct{}

func (errorLogger) Println(v ...interface{}) {
	slog.Error("collector: serve metrics", "err", fmt.Sprint(v...))
}
