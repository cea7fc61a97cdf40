package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// KindRequest is the record kind carrying a request outcome.
const KindRequest = "REQUEST"

// statusOK is the only status token treated as success.
const statusOK = "OK"

// Field positions within a REQUEST record.
const (
	fieldKind      = 0
	fieldOperation = 1
	fieldStart     = 4
	fieldEnd       = 5
	fieldStatus    = 6
	fieldError     = 8

	minRequestFields = fieldStatus + 1
)

var (
	// ErrNotOfInterest is returned for well-formed lines of a kind other than REQUEST.
	ErrNotOfInterest = errors.New("parser: not a request record")

	// ErrMalformed is returned when a line is too short for its kind or a
	// positional field cannot be decoded.
	ErrMalformed = errors.New("parser: malformed record")
)

// Status is the outcome of one request.
type Status int

const (
	Success Status = iota
	Failure
)

// String returns the label value used in exported metrics.
func (s Status) String() string {
	if s == Success {
		return "Success"
	}
	return "Failure"
}

// Event is one parsed REQUEST record.
type Event struct {
	Operation string
	Status    Status
	// LatencyMs is end minus start. It is negative when the log is; the value
	// is passed through unmodified.
	LatencyMs int64
	// Error is the whitespace-normalised failure message. Empty on success.
	Error string
}

// Parse decodes line. Only a nil error means ev is valid.
func Parse(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, fmt.Errorf("%w: empty line", ErrMalformed)
	}
	if fields[fieldKind] != KindRequest {
		return Event{}, ErrNotOfInterest
	}
	if len(fields) < minRequestFields {
		return Event{}, fmt.Errorf("%w: %s has %d fields, want at least %d",
			ErrMalformed, KindRequest, len(fields), minRequestFields)
	}

	start, err := strconv.ParseInt(fields[fieldStart], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: start timestamp: %v", ErrMalformed, err)
	}
	end, err := strconv.ParseInt(fields[fieldEnd], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: end timestamp: %v", ErrMalformed, err)
	}

	ev := Event{
		Operation: fields[fieldOperation],
		Status:    Success,
		LatencyMs: end - start,
	}
	if fields[fieldStatus] != statusOK {
		ev.Status = Failure
		if len(fields) > fieldError {
			ev.Error = strings.Join(fields[fieldError:], " ")
		}
	}
	return ev, nil
}
