// Package buffer holds raw simulation.log lines between the file follower and
// the scrape-time aggregator.
//
// Ring is a fixed-capacity FIFO backed by a buffered channel. Push never
// blocks: when the ring is full the oldest line is evicted to make room for the
// newest one. Losing old lines under overflow is accepted admission control;
// the cumulative summary counters stay authoritative for everything that was
// drained, only the per-event latency view is lossy.
//
// One producer and one consumer may use a Ring concurrently.
package buffer
