package common

import (
	"testing"
	"time"
)

// The RFC 4330 worked example: T1=0.0, T2=0.5, T3=0.6, T4=1.0 gives an
// offset of ((0.5-0)+(0.6-1.0))/2 = 0.05s and a delay of (1.0-0)-(0.6-0.5)
// = 0.9s.
func TestOffsetDelayWorkedExample(t *testing.T) {
	base := Timestamp{Seconds: 10000, Fraction: 0}
	t1 := base
	t2 := base.Add(500 * time.Millisecond)
	t3 := base.Add(600 * time.Millisecond)
	t4 := base.Add(1000 * time.Millisecond)

	offset := ClockOffset(t1, t2, t3, t4)
	if !durationsClose(offset, 50*time.Millisecond, 2*time.Nanosecond) {
		t.Errorf("offset = %v, want 50ms", offset)
	}

	delay := RoundTripDelay(t1, t2, t3, t4)
	if !durationsClose(delay, 900*time.Millisecond, 2*time.Nanosecond) {
		t.Errorf("delay = %v, want 900ms", delay)
	}
}

func TestOffsetSignForFastLocalClock(t *testing.T) {
	// Local clock runs 2s ahead of the server: offset must come out
	// negative (local time needs to move backward).
	base := Timestamp{Seconds: 50000, Fraction: 0}
	t1 := base
	t2 := base.Add(-2*time.Second + 50*time.Millisecond)
	t3 := base.Add(-2*time.Second + 60*time.Millisecond)
	t4 := base.Add(100 * time.Millisecond)

	offset := ClockOffset(t1, t2, t3, t4)
	if !durationsClose(offset, -2*time.Second+5*time.Millisecond, 2*time.Nanosecond) {
		t.Errorf("offset = %v, want -1.995s", offset)
	}

	delay := RoundTripDelay(t1, t2, t3, t4)
	if !durationsClose(delay, 90*time.Millisecond, 2*time.Nanosecond) {
		t.Errorf("delay = %v, want 90ms", delay)
	}
}

func TestOffsetDelayAcrossRollover(t *testing.T) {
	// The exchange straddles the seconds rollover; the numbers must match
	// the worked example regardless.
	base := Timestamp{Seconds: 0xFFFFFFFF, Fraction: 0xB0000000}
	t1 := base
	t2 := base.Add(500 * time.Millisecond)
	t3 := base.Add(600 * time.Millisecond)
	t4 := base.Add(1000 * time.Millisecond)

	offset := ClockOffset(t1, t2, t3, t4)
	if !durationsClose(offset, 50*time.Millisecond, 2*time.Nanosecond) {
		t.Errorf("offset across rollover = %v, want 50ms", offset)
	}
	delay := RoundTripDelay(t1, t2, t3, t4)
	if !durationsClose(delay, 900*time.Millisecond, 2*time.Nanosecond) {
		t.Errorf("delay across rollover = %v, want 900ms", delay)
	}
}
