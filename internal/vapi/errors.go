package vapi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIdentityUnresolved is returned when no resolution source can determine
// the user behind a call. It short-circuits a whole tool-call batch but still
// degrades to per-tool-call error results, never an HTTP failure.
var ErrIdentityUnresolved = errors.New("could not determine the user for this call")

// identityRemediation is the message surfaced to the conversational agent so
// it can ask the user to act.
const identityRemediation = "I couldn't determine whose calendar to use for this call. Please reconnect your calendar and try again."

// ValidationError reports tool arguments that are present but incomplete.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// TemporalRejection reports an event start that lies strictly in the past.
type TemporalRejection struct {
	StartISO string
}

func (e *TemporalRejection) Error() string {
	return fmt.Sprintf("the requested start time %s is in the past; derive a future time from the attached server time", e.StartISO)
}

// ProtocolError reports tool arguments that could not be parsed at all.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("invalid tool arguments: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// UpstreamFailure reports a downstream collaborator error (token refresh,
// calendar API). It is surfaced as an ordinary tool-result error.
type UpstreamFailure struct {
	Op  string
	Err error
}

func (e *UpstreamFailure) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *UpstreamFailure) Unwrap() error { return e.Err }
