// Package collector is the scrape boundary of the exporter.
//
// Collector implements prometheus.Gatherer. Every Gather runs one
// compute.Engine cycle against the line buffer and renders the result as
// three gauge families:
//
//	loadgenerator          {operation_id, status}                 latency of each successful request drained this scrape
//	loadgenerator_errors   {error_message, operation_id, status}  cumulative failures per message
//	loadgenerator_summary  {operation_id, status}                 cumulative requests per outcome
//
// The latency family may repeat a label set, one sample per request, which a
// registry-backed prometheus.Collector would reject as a duplicate. That is why
// the families are built as client_model records here and handed to promhttp
// directly. Exporter self-metrics and Go runtime metrics come from a private
// prometheus.Registry and are appended after the load-test families.
package collector
