// Package api serves the exporter's JSON status endpoints next to /metrics.
//
//	GET /api/v1/health      buffer fill, capacity and overflow losses
//	GET /api/v1/operations  cumulative per-operation counts and latency quantiles
//
// Both endpoints only read state. They never drain the line buffer, so polling
// them does not steal latency samples from Prometheus scrapes.
package api
