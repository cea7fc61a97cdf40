package compute

import (
	"fmt"
	"sync"
	"testing"

	"github.com/gatlingexporter/gatling-exporter/exporter/internal/buffer"
	"github.com/gatlingexporter/gatling-exporter/exporter/internal/parser"
)

// ring builds a buffer pre-filled with lines.
func ring(capacity int, lines ...string) *buffer.Ring {
	r := buffer.New(capacity)
	for _, l := range lines {
		r.Push(l)
	}
	return r
}

// summaryCount returns the cumulative count for (op, status) or -1 if absent.
func summaryCount(c *Cycle, op string, status parser.Status) int64 {
	for _, s := range c.Summary {
		if s.Operation == op && s.Status == status {
			return int64(s.Count)
		}
	}
	return -1
}

func errorCount(c *Cycle, msg, op string) int64 {
	for _, s := range c.Errors {
		if s.Error == msg && s.Operation == op {
			return int64(s.Count)
		}
	}
	return -1
}

// --- Single events ---

func TestEngine_SuccessEvent(t *testing.T) {
	e := NewEngine()
	out := e.Run(ring(10, "REQUEST insert 1 group 1000 1450 OK"), 0)

	if len(out.Latencies) != 1 {
		t.Fatalf("Latencies len = %d, want 1", len(out.Latencies))
	}
	got := out.Latencies[0]
	if got.Operation != "insert" || got.Status != parser.Success || got.LatencyMs != 450 {
		t.Errorf("latency sample = %+v, want {insert Success 450}", got)
	}
	if n := summaryCount(out, "insert", parser.Success); n != 1 {
		t.Errorf("summary[insert,Success] = %d, want 1", n)
	}
	if n := summaryCount(out, "insert", parser.Failure); n != 0 {
		t.Errorf("summary[insert,Failure] = %d, want 0", n)
	}
	if len(out.Errors) != 0 {
		t.Errorf("Errors = %+v, want none", out.Errors)
	}
}

func TestEngine_FailureEvent(t *testing.T) {
	e := NewEngine()
	out := e.Run(ring(10, "REQUEST select 1 group 2000 2600 KO - timeout on node X"), 0)

	if len(out.Latencies) != 0 {
		t.Errorf("failures must not emit latency, got %+v", out.Latencies)
	}
	if n := summaryCount(out, "select", parser.Failure); n != 1 {
		t.Errorf("summary[select,Failure] = %d, want 1", n)
	}
	if n := errorCount(out, "timeout on node X", "select"); n != 1 {
		t.Errorf("errors[timeout on node X, select] = %d, want 1", n)
	}
}

func TestEngine_NegativeLatencyNotClamped(t *testing.T) {
	e := NewEngine()
	out := e.Run(ring(10, "REQUEST insert 1 group 2000 1990 OK"), 0)
	if len(out.Latencies) != 1 || out.Latencies[0].LatencyMs != -10 {
		t.Fatalf("Latencies = %+v, want one sample of -10", out.Latencies)
	}
}

// --- Cumulative behaviour ---

func TestEngine_CountersAccumulateAcrossCycles(t *testing.T) {
	e := NewEngine()
	r := buffer.New(100)

	for cycle := 0; cycle < 3; cycle++ {
		for i := 0; i < 4; i++ {
			r.Push(fmt.Sprintf("REQUEST insert %d group 0 10 OK", i))
		}
		r.Push("REQUEST insert 9 group 0 10 KO - boom")
		e.Run(r, 0)
	}
	out := e.Run(r, 0)

	if n := summaryCount(out, "insert", parser.Success); n != 12 {
		t.Errorf("summary[insert,Success] = %d, want 12", n)
	}
	if n := summaryCount(out, "insert", parser.Failure); n != 3 {
		t.Errorf("summary[insert,Failure] = %d, want 3", n)
	}
	if n := errorCount(out, "boom", "insert"); n != 3 {
		t.Errorf("errors[boom,insert] = %d, want 3", n)
	}
}

func TestEngine_ReemissionIsIdempotent(t *testing.T) {
	e := NewEngine()
	r := ring(10,
		"REQUEST insert 1 group 1000 1450 OK",
		"REQUEST select 1 group 2000 2600 KO - timeout",
	)
	first := e.Run(r, 0)
	second := e.Run(r, 0)

	if len(first.Latencies) != 1 {
		t.Fatalf("first Latencies len = %d, want 1", len(first.Latencies))
	}
	if len(second.Latencies) != 0 {
		t.Errorf("second Latencies = %+v, want none", second.Latencies)
	}
	if fmt.Sprint(first.Summary) != fmt.Sprint(second.Summary) {
		t.Errorf("summary changed without input:\n%v\n%v", first.Summary, second.Summary)
	}
	if fmt.Sprint(first.Errors) != fmt.Sprint(second.Errors) {
		t.Errorf("errors changed without input:\n%v\n%v", first.Errors, second.Errors)
	}
}

func TestEngine_ErrorsKeyedByMessageAndOperation(t *testing.T) {
	e := NewEngine()
	out := e.Run(ring(10,
		"REQUEST a 1 g 0 1 KO - refused",
		"REQUEST b 1 g 0 1 KO - refused",
		"REQUEST a 1 g 0 1 KO - refused",
		"REQUEST a 1 g 0 1 KO - reset by peer",
	), 0)

	if len(out.Errors) != 3 {
		t.Fatalf("Errors len = %d, want 3: %+v", len(out.Errors), out.Errors)
	}
	if n := errorCount(out, "refused", "a"); n != 2 {
		t.Errorf("errors[refused,a] = %d, want 2", n)
	}
	if n := errorCount(out, "refused", "b"); n != 1 {
		t.Errorf("errors[refused,b] = %d, want 1", n)
	}
	// Sorted by message, then operation.
	want := []ErrorSample{
		{Error: "refused", Operation: "a", Count: 2},
		{Error: "refused", Operation: "b", Count: 1},
		{Error: "reset by peer", Operation: "a", Count: 1},
	}
	for i, w := range want {
		if out.Errors[i] != w {
			t.Errorf("Errors[%d] = %+v, want %+v", i, out.Errors[i], w)
		}
	}
}

func TestEngine_SummaryOrderFailureBeforeSuccess(t *testing.T) {
	e := NewEngine()
	out := e.Run(ring(10,
		"REQUEST select 1 g 0 1 KO - x",
		"REQUEST insert 1 g 0 1 OK",
	), 0)

	want := []SummarySample{
		{Operation: "insert", Status: parser.Failure, Count: 0},
		{Operation: "insert", Status: parser.Success, Count: 1},
		{Operation: "select", Status: parser.Failure, Count: 1},
		{Operation: "select", Status: parser.Success, Count: 0},
	}
	if len(out.Summary) != len(want) {
		t.Fatalf("Summary = %+v, want %+v", out.Summary, want)
	}
	for i, w := range want {
		if out.Summary[i] != w {
			t.Errorf("Summary[%d] = %+v, want %+v", i, out.Summary[i], w)
		}
	}
}

func TestEngine_ErrorTextStartsAtNinthField(t *testing.T) {
	e := NewEngine()
	out := e.Run(ring(10, "REQUEST select 1 group 2000 2600 KO timeout on node X"), 0)

	if n := summaryCount(out, "select", parser.Failure); n != 1 {
		t.Fatalf("summary[select,Failure] = %d, want 1", n)
	}
	if n := errorCount(out, "on node X", "select"); n != 1 {
		t.Errorf("errors[on node X,select] = %d, want 1: %+v", n, out.Errors)
	}
}

// --- Batch handling ---

func TestEngine_SkipsOtherRecordKinds(t *testing.T) {
	e := NewEngine()
	out := e.Run(ring(10,
		"RUN sim basic 1500000000000 desc 3.0",
		"USER scn 1 START 1000 1000",
		"REQUEST insert 1 group 1000 1100 OK",
	), 0)

	if out.Skipped != 2 || out.Applied != 1 {
		t.Errorf("Skipped=%d Applied=%d, want 2 and 1", out.Skipped, out.Applied)
	}
	if out.Truncated {
		t.Error("Truncated should be false")
	}
}

func TestEngine_MalformedLineEndsBatch(t *testing.T) {
	e := NewEngine()
	e.Run(ring(10, "REQUEST insert 1 group 0 5 OK"), 0)

	r := ring(10,
		"REQUEST insert 1 group 0 5 OK",
		"REQUEST insert 1 group 0",
		"REQUEST insert 1 group 0 5 OK",
		"REQUEST select 1 group 0 5 KO - lost",
	)
	out := e.Run(r, 0)

	if !out.Truncated {
		t.Error("Truncated should be true")
	}
	if out.Drained != 4 || out.Applied != 1 {
		t.Errorf("Drained=%d Applied=%d, want 4 and 1", out.Drained, out.Applied)
	}
	if n := summaryCount(out, "insert", parser.Success); n != 2 {
		t.Errorf("summary[insert,Success] = %d, want 2 (previous state kept)", n)
	}
	if n := summaryCount(out, "select", parser.Failure); n != -1 {
		t.Errorf("select must not be seen after the malformed line, got %d", n)
	}
	// Lines after the malformed one were drained and are gone.
	if r.Len() != 0 {
		t.Errorf("buffer Len() = %d, want 0", r.Len())
	}
}

func TestEngine_DrainLimit(t *testing.T) {
	e := NewEngine()
	r := buffer.New(10)
	for i := 0; i < 6; i++ {
		r.Push("REQUEST op 1 g 0 1 OK")
	}

	out := e.Run(r, 4)
	if out.Drained != 4 || len(out.Latencies) != 4 {
		t.Errorf("Drained=%d latencies=%d, want 4 and 4", out.Drained, len(out.Latencies))
	}
	if r.Len() != 2 {
		t.Errorf("remaining = %d, want 2", r.Len())
	}
}

func TestEngine_EmptySource(t *testing.T) {
	out := NewEngine().Run(buffer.New(5), 0)
	if out.Drained != 0 || len(out.Summary) != 0 || len(out.Errors) != 0 || len(out.Latencies) != 0 {
		t.Errorf("empty cycle = %+v", out)
	}
}

// --- Operations view ---

func TestEngine_Operations(t *testing.T) {
	e := NewEngine()
	lines := []string{"REQUEST b 1 g 0 1 KO - x"}
	for i := 1; i <= 100; i++ {
		lines = append(lines, fmt.Sprintf("REQUEST a 1 g 0 %d OK", i))
	}
	e.Run(ring(200, lines...), 0)

	ops := e.Operations()
	if len(ops) != 2 {
		t.Fatalf("Operations len = %d, want 2", len(ops))
	}
	a, b := ops[0], ops[1]
	if a.Operation != "a" || b.Operation != "b" {
		t.Fatalf("order = %q, %q; want a, b", a.Operation, b.Operation)
	}
	if a.Success != 100 || a.Failure != 0 {
		t.Errorf("a counts = %d/%d, want 100/0", a.Success, a.Failure)
	}
	if a.P50Ms != 50 || a.P99Ms != 99 || a.MaxMs != 100 {
		t.Errorf("a quantiles p50=%d p99=%d max=%d, want 50/99/100", a.P50Ms, a.P99Ms, a.MaxMs)
	}
	if b.Failure != 1 || b.P50Ms != 0 {
		t.Errorf("b = %+v, want one failure and no latency", b)
	}
}

func TestEngine_ConcurrentRunsWithProducer(t *testing.T) {
	const (
		total   = 4000
		runners = 4
	)
	src := buffer.New(total)
	e := NewEngine()

	var (
		mu      sync.Mutex
		applied int
		samples int
	)
	collect := func(c *Cycle) {
		mu.Lock()
		applied += c.Applied
		samples += len(c.Latencies)
		mu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			status := "OK"
			if i%4 == 0 {
				status = "KO - boom"
			}
			src.Push(fmt.Sprintf("REQUEST op%d 1 g 0 %d %s", i%3, i%50, status))
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < runners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					collect(e.Run(src, 64))
				}
			}
		}()
	}
	wg.Wait()
	collect(e.Run(src, 0))

	if src.Dropped() != 0 {
		t.Fatalf("Dropped() = %d, want 0", src.Dropped())
	}
	if applied != total {
		t.Fatalf("applied = %d, want %d", applied, total)
	}

	final := e.Run(src, 0)
	var success, failure uint64
	for _, s := range final.Summary {
		if s.Status == parser.Success {
			success += s.Count
		} else {
			failure += s.Count
		}
	}
	if success+failure != total {
		t.Errorf("summary total = %d, want %d", success+failure, total)
	}
	if int(success) != samples {
		t.Errorf("success = %d, latency samples = %d; want equal", success, samples)
	}
	if failure != total/4 {
		t.Errorf("failure = %d, want %d", failure, total/4)
	}
}
