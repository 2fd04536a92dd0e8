package common

import (
	"errors"
	"fmt"
	"time"
)

// SNTP protocol constants from RFC 4330
const (
	// DefaultServerPort is the UDP port SNTP/NTP servers listen on.
	// Servers fronted by Network Time Security may use a different port.
	DefaultServerPort = 123

	// Version numbers accepted in a server response. Requests are always
	// sent as version 4.
	VersionSNTPv4 = 4
	VersionSNTPv3 = 3

	// Mode values from the first header byte
	ModeClient    = 3
	ModeServer    = 4
	ModeBroadcast = 5
)

// LeapIndicator is the two-bit leap second warning in a server response.
type LeapIndicator uint8

const (
	NoLeap LeapIndicator = iota
	LastMinute61Seconds
	LastMinute59Seconds
	ClockUnsynchronized
)

// RejectionAction tells the caller how to react to a Kiss-of-Death response.
type RejectionAction uint8

const (
	// RejectChangeServer means the server permanently refuses this client
	// (DENY/RSTR); it must not be queried again in this polling round.
	RejectChangeServer RejectionAction = iota

	// RejectRetryWithBackoff means the server asked for a reduced polling
	// rate (RATE); keep the server but slow down.
	RejectRetryWithBackoff

	// RejectOtherCode is any kiss code this library does not recognize;
	// policy is left to the caller.
	RejectOtherCode
)

// Kiss codes this library acts on, from RFC 4330 Section 8
const (
	KissCodeDeny     = "DENY"
	KissCodeRestrict = "RSTR"
	KissCodeRate     = "RATE"
)

// ClassifyKissCode maps the 4-character ASCII code from the reference
// identifier field of a stratum-0 response to the action the client
// must take.
func ClassifyKissCode(code string) RejectionAction {
	switch code {
	case KissCodeDeny, KissCodeRestrict:
		return RejectChangeServer
	case KissCodeRate:
		return RejectRetryWithBackoff
	default:
		return RejectOtherCode
	}
}

// String returns a human-readable name for the rejection action.
func (a RejectionAction) String() string {
	switch a {
	case RejectChangeServer:
		return "change server"
	case RejectRetryWithBackoff:
		return "retry with backoff"
	default:
		return "other code"
	}
}

// Error definitions shared across the engine. Configuration errors are
// fatal and require re-initialization; the remaining classes are documented
// on the client operations that return them.
var (
	ErrBadParameter           = errors.New("bad parameter")
	ErrBufferTooSmall         = errors.New("buffer too small")
	ErrNetworkFailure         = errors.New("network failure")
	ErrSendTimeout            = errors.New("timed out sending time request")
	ErrResponseTimeout        = errors.New("timed out waiting for time response")
	ErrIncorrectResponse      = errors.New("incorrect response size")
	ErrInvalidResponse        = errors.New("invalid response")
	ErrDNSFailure             = errors.New("dns resolution failure")
	ErrAuthFailure            = errors.New("authentication interface failure")
	ErrServerNotAuthenticated = errors.New("server not authenticated")
	ErrServerListExhausted    = errors.New("time server list exhausted")
	ErrClockFailure           = errors.New("system clock interface failure")
)

// KissOfDeathError is returned when a server answers with a stratum-0
// Kiss-of-Death packet instead of a time sample. It is a rejection, not a
// protocol violation: the response was well-formed and the server is telling
// the client to go away or slow down.
type KissOfDeathError struct {
	// Code is the 4-character ASCII kiss code from the reference
	// identifier field.
	Code string

	// Action is the classification of Code.
	Action RejectionAction

	// SuggestedBackoff is the server-suggested minimum polling interval
	// derived from the poll field for RATE responses, or zero when the
	// server did not supply a plausible one.
	SuggestedBackoff time.Duration
}

// Error implements the error interface.
func (e *KissOfDeathError) Error() string {
	if e.SuggestedBackoff > 0 {
		return fmt.Sprintf("kiss-of-death %q (%s, back off at least %v)",
			e.Code, e.Action, e.SuggestedBackoff)
	}
	return fmt.Sprintf("kiss-of-death %q (%s)", e.Code, e.Action)
}
