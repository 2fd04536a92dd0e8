// Package sysclock provides a ready-made Clock implementation for the SNTP
// client: wire-format system time reads and a step/slew correction
// discipline. Small offsets are slewed through the kernel PLL so time stays
// monotonic; offsets beyond the step threshold are applied as a single jump.
// Only Linux can apply corrections; other platforms can still read time.
package sysclock

import (
	"errors"
	"time"

	"github.com/ncode/TempoZero/pkg/sntp/common"
)

// DefaultStepThreshold mirrors the classic ntpd step limit: offsets of
// 128ms and beyond step the clock, smaller ones slew.
const DefaultStepThreshold = 128 * time.Millisecond

// ErrUnsupported is returned by SetTime on platforms without a clock
// discipline implementation.
var ErrUnsupported = errors.New("sysclock: clock discipline not supported on this platform")

// SystemClock reads and corrects the system realtime clock.
type SystemClock struct {
	// StepThreshold is the offset magnitude at which correction switches
	// from slew to step; DefaultStepThreshold when zero.
	StepThreshold time.Duration

	// ForceSlew disables stepping entirely for callers that need a
	// monotonic time continuum regardless of offset size.
	ForceSlew bool
}

// Now returns the current system time in wire timestamp format.
func (c *SystemClock) Now() (common.Timestamp, error) {
	return common.Now(), nil
}

// SetTime applies the computed offset to the system clock, choosing step or
// slew by the configured threshold. The server's own timestamp is not
// written directly; correcting by offset keeps the half-RTT compensation
// the offset calculation already performed.
func (c *SystemClock) SetTime(serverName string, serverTime common.Timestamp, offset time.Duration) error {
	threshold := c.StepThreshold
	if threshold == 0 {
		threshold = DefaultStepThreshold
	}
	magnitude := offset
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if !c.ForceSlew && magnitude >= threshold {
		return stepClock(offset)
	}
	return slewClock(offset)
}
