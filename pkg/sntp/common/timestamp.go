// pkg/sntp/common/timestamp.go
package common

import (
	"encoding/binary"
	"time"
)

const (
	// UnixEpochSeconds is the offset between the NTP epoch (Jan 1, 1900)
	// and the Unix epoch (Jan 1, 1970), in seconds.
	UnixEpochSeconds = 2208988800

	// FractionsPerMicrosecond is the number of 1/2^32-second fraction
	// units in one microsecond (2^32 / 10^6, rounded).
	FractionsPerMicrosecond = 4295

	nanosPerSec = 1e9

	// eraSplitSeconds is where the Unix conversion switches eras: wire
	// seconds with the top bit set belong to era 0 (1900-2036), the rest
	// to era 1 (2036-2104). See RFC 4330 Section 3.
	eraSplitSeconds = 0x80000000

	// era1UnixOffset converts era-1 wire seconds to Unix seconds
	// (2^32 - UnixEpochSeconds).
	era1UnixOffset = (1 << 32) - UnixEpochSeconds
)

// Timestamp is the 64-bit fixed-point SNTP timestamp: seconds since the
// NTP epoch plus a fractional part with 1/2^32-second resolution. The
// seconds field is cyclic; all arithmetic on Timestamps is era-aware, so
// two timestamps on opposite sides of the 32-bit rollover still produce a
// small, correctly-signed difference.
type Timestamp struct {
	Seconds  uint32 // Seconds since NTP epoch (January 1, 1900), modulo 2^32
	Fraction uint32 // Fractional part of second (1/2^32 seconds)
}

// FromTime creates a Timestamp from a Go time.Time. Times at or beyond the
// year 2036 rollover land in era 1 through the natural modulo-2^32 wrap.
func FromTime(t time.Time) Timestamp {
	secs := uint32(t.Unix() + UnixEpochSeconds)
	frac := uint32((uint64(t.Nanosecond()) << 32) / nanosPerSec)
	return Timestamp{Seconds: secs, Fraction: frac}
}

// Now returns the current system time as a Timestamp.
func Now() Timestamp {
	return FromTime(time.Now())
}

// ToTime converts a Timestamp to a Go time.Time, disambiguating the era per
// RFC 4330: wire seconds with the most significant bit set are interpreted
// as era 0 (1900-2036), the rest as era 1 (2036-2104).
func (ts Timestamp) ToTime() time.Time {
	var secs int64
	if ts.Seconds >= eraSplitSeconds {
		secs = int64(ts.Seconds) - UnixEpochSeconds
	} else {
		secs = int64(ts.Seconds) + era1UnixOffset
	}
	nanos := (uint64(ts.Fraction) * nanosPerSec) >> 32
	return time.Unix(secs, int64(nanos))
}

// Marshal writes the timestamp into 8 network-order bytes.
func (ts Timestamp) Marshal(b []byte) {
	binary.BigEndian.PutUint32(b[0:], ts.Seconds)
	binary.BigEndian.PutUint32(b[4:], ts.Fraction)
}

// Unmarshal parses 8 network-order bytes into the timestamp.
func (ts *Timestamp) Unmarshal(b []byte) {
	ts.Seconds = binary.BigEndian.Uint32(b[0:])
	ts.Fraction = binary.BigEndian.Uint32(b[4:])
}

// DurationBetween returns end minus start as a signed duration. The seconds
// fields are subtracted in the cyclic group of size 2^32: a difference whose
// magnitude exceeds half the cycle is reinterpreted as having wrapped, with
// the sign flipped accordingly. Results are exact to within one nanosecond.
func DurationBetween(start, end Timestamp) time.Duration {
	secDiff := int64(int32(end.Seconds - start.Seconds))
	fracDiff := int64(end.Fraction) - int64(start.Fraction)
	return time.Duration(secDiff)*time.Second +
		time.Duration((fracDiff*nanosPerSec)>>32)
}

// Add returns the timestamp advanced by d, which may be negative. The
// seconds field wraps across the era boundary as on the wire.
func (ts Timestamp) Add(d time.Duration) Timestamp {
	secs := int64(d / time.Second)
	nanos := int64(d % time.Second) // same sign as d
	frac := int64(ts.Fraction) + (nanos<<32)/nanosPerSec
	if frac < 0 {
		frac += 1 << 32
		secs--
	} else if frac >= 1<<32 {
		frac -= 1 << 32
		secs++
	}
	return Timestamp{Seconds: ts.Seconds + uint32(secs), Fraction: uint32(frac)}
}

// Equal checks if two timestamps are identical.
func (ts Timestamp) Equal(other Timestamp) bool {
	return ts.Seconds == other.Seconds && ts.Fraction == other.Fraction
}

// Before reports whether ts precedes other, treating seconds differences of
// more than half the 2^32 cycle as a rollover.
func (ts Timestamp) Before(other Timestamp) bool {
	if ts.Seconds != other.Seconds {
		return int32(ts.Seconds-other.Seconds) < 0
	}
	return ts.Fraction < other.Fraction
}

// After reports whether ts follows other, with the same rollover handling
// as Before.
func (ts Timestamp) After(other Timestamp) bool {
	if ts.Seconds != other.Seconds {
		return int32(ts.Seconds-other.Seconds) > 0
	}
	return ts.Fraction > other.Fraction
}

// IsZero reports whether the timestamp is the all-zero value.
func (ts Timestamp) IsZero() bool {
	return ts.Seconds == 0 && ts.Fraction == 0
}
