package compute

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/gatlingexporter/gatling-exporter/exporter/internal/parser"
)

// Latency histogram bounds in milliseconds: 1ms to 1h, 3 significant figures.
const (
	histLowestMs  = 1
	histHighestMs = 3_600_000
	histSigFigs   = 3
)

// Source is the consumer side of the line buffer.
type Source interface {
	Drain(limit int) []string
	Cap() int
}

// LatencySample is the latency of one successful request seen in a cycle.
type LatencySample struct {
	Operation string
	Status    parser.Status
	LatencyMs int64
}

// ErrorSample is the cumulative count of one failure message for one operation.
type ErrorSample struct {
	Error     string
	Operation string
	Count     uint64
}

// SummarySample is the cumulative request count for one (operation, status).
type SummarySample struct {
	Operation string
	Status    parser.Status
	Count     uint64
}

// Cycle is the result of one Run.
type Cycle struct {
	Latencies []LatencySample
	Errors    []ErrorSample
	Summary   []SummarySample

	Drained   int  // raw lines taken from the source
	Applied   int  // REQUEST events applied to the counters
	Skipped   int  // lines of other record kinds
	Truncated bool // a malformed line ended the batch early
}

// OperationStats is a read-only view of one operation's cumulative state.
type OperationStats struct {
	Operation string
	Success   uint64
	Failure   uint64
	P50Ms     int64
	P95Ms     int64
	P99Ms     int64
	MaxMs     int64
}

type errorKey struct {
	err       string
	operation string
}

// opState holds the cumulative counters for one operation.
type opState struct {
	success uint64
	failure uint64
	latency *hdrhistogram.Histogram
}

// Engine accumulates counters across Run calls.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	ops    map[string]*opState
	errors map[errorKey]uint64
}

// NewEngine returns an Engine with empty state.
func NewEngine() *Engine {
	return &Engine{
		ops:    make(map[string]*opState),
		errors: make(map[errorKey]uint64),
	}
}

// Run drains up to limit lines from src and applies them. A limit of zero or less
// drains at most src.Cap() lines, so one call never processes more than one
// full buffer.
func (e *Engine) Run(src Source, limit int) *Cycle {
	e.mu.Lock()
	defer e.mu.Unlock()

	if limit <= 0 {
		limit = src.Cap()
	}
	lines := src.Drain(limit)
	out := &Cycle{Drained: len(lines)}

	for i, line := range lines {
		ev, err := parser.Parse(line)
		if errors.Is(err, parser.ErrNotOfInterest) {
			out.Skipped++
			continue
		}
		if err != nil {
			// No more well-formed records in this batch.
			out.Truncated = true
			slog.Debug("compute: malformed line, ending batch",
				"position", i, "discarded", len(lines)-i, "err", err)
			break
		}
		e.apply(ev, out)
		out.Applied++
	}

	out.Errors = e.errorSnapshot()
	out.Summary = e.summarySnapshot()
	return out
}

// apply records one fully parsed event.
func (e *Engine) apply(ev parser.Event, out *Cycle) {
	st := e.stateFor(ev.Operation)
	if ev.Status == parser.Success {
		st.success++
		st.record(ev.LatencyMs)
		out.Latencies = append(out.Latencies, LatencySample{
			Operation: ev.Operation,
			Status:    parser.Success,
			LatencyMs: ev.LatencyMs,
		})
		return
	}
	st.failure++
	e.errors[errorKey{err: ev.Error, operation: ev.Operation}]++
}

// Operations returns the cumulative per-operation view, sorted by operation.
// It does not drain anything.
func (e *Engine) Operations() []OperationStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]OperationStats, 0, len(e.ops))
	for _, name := range e.operationNames() {
		st := e.ops[name]
		stats := OperationStats{
			Operation: name,
			Success:   st.success,
			Failure:   st.failure,
		}
		if st.latency.TotalCount() > 0 {
			stats.P50Ms = st.latency.ValueAtQuantile(50)
			stats.P95Ms = st.latency.ValueAtQuantile(95)
			stats.P99Ms = st.latency.ValueAtQuantile(99)
			stats.MaxMs = st.latency.Max()
		}
		out = append(out, stats)
	}
	return out
}

func (e *Engine) stateFor(op string) *opState {
	if st, ok := e.ops[op]; ok {
		return st
	}
	st := &opState{latency: hdrhistogram.New(histLowestMs, histHighestMs, histSigFigs)}
	e.ops[op] = st
	return st
}

func (e *Engine) operationNames() []string {
	names := make([]string, 0, len(e.ops))
	for name := range e.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// summarySnapshot lists Failure then Success for every operation ever seen,
// zero counts included. The order matches a registry's label-sorted output.
func (e *Engine) summarySnapshot() []SummarySample {
	out := make([]SummarySample, 0, 2*len(e.ops))
	for _, name := range e.operationNames() {
		st := e.ops[name]
		out = append(out,
			SummarySample{Operation: name, Status: parser.Failure, Count: st.failure},
			SummarySample{Operation: name, Status: parser.Success, Count: st.success},
		)
	}
	return out
}

// errorSnapshot is sorted by error then operation, the label order of
// loadgenerator_errors.
func (e *Engine) errorSnapshot() []ErrorSample {
	out := make([]ErrorSample, 0, len(e.errors))
	for k, n := range e.errors {
		out = append(out, ErrorSample{Error: k.err, Operation: k.operation, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Error != out[j].Error {
			return out[i].Error < out[j].Error
		}
		return out[i].Operation < out[j].Operation
	})
	return out
}

// record adds a latency to the quantile histogram. Negative values from a
// malformed log are left out of the quantiles; they still reach the gauge.
func (st *opState) record(ms int64) {
	if ms < 0 {
		return
	}
	if ms < st.latency.LowestTrackableValue() {
		ms = st.latency.LowestTrackableValue()
	}
	if ms > st.latency.HighestTrackableValue() {
		ms = st.latency.HighestTrackableValue()
	}
	_ = st.latency.RecordValue(ms)
}
