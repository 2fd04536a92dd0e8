package common

import "time"

// ClockOffset computes the signed offset of the local clock relative to the
// server from the four exchange timestamps: T1 client send, T2 server
// receive, T3 server transmit, T4 client receive.
//
//	offset = ((T2 - T1) + (T3 - T4)) / 2
//
// A positive offset means the local clock is behind the server. All
// subtractions are era-aware and use 64-bit nanosecond intermediates, so the
// result stays correct across one seconds-field rollover.
func ClockOffset(t1, t2, t3, t4 Timestamp) time.Duration {
	return (DurationBetween(t1, t2) + DurationBetween(t4, t3)) / 2
}

// RoundTripDelay computes the network round-trip time of the exchange:
//
//	delay = (T4 - T1) - (T3 - T2)
//
// Both terms are differences of timestamps read from the same clock, so a
// genuine result is never negative; callers decide whether a small negative
// value is rounding jitter to clamp or a corrupt response to reject.
func RoundTripDelay(t1, t2, t3, t4 Timestamp) time.Duration {
	return DurationBetween(t1, t4) - DurationBetween(t2, t3)
}
