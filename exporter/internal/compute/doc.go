// Package compute aggregates parsed simulation.log events across scrapes.
//
// Engine owns the process-lifetime state: per-operation success and failure
// counters and per-(error, operation) failure counters. Both only ever grow.
// Each call to Engine.Run drains one batch of raw lines, applies the events in
// FIFO order and returns a Cycle: the latency samples of successful requests
// seen in this batch plus a full snapshot of every cumulative counter.
//
// A malformed line ends the batch early. Lines after it in the same drain are
// discarded; state accumulated before it is kept.
//
// Run calls are serialized by an internal mutex so concurrent scrapes are safe.
package compute
