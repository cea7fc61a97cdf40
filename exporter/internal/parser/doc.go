// Package parser turns one raw Gatling simulation.log line into an Event.
//
// Only REQUEST records are of interest. Their whitespace-separated fields are
// positional:
//
//	0  record kind (REQUEST)
//	1  operation id (request name)
//	4  start timestamp, ms
//	5  end timestamp, ms
//	6  status, "OK" for success
//	8+ error message, failures only
//
// Other record kinds yield ErrNotOfInterest. Lines too short for the schema,
// or with non-integer timestamps, yield ErrMalformed.
package parser
