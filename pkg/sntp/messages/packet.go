// Package messages implements the SNTPv4 on-wire packet format: building
// client time requests and parsing/validating server responses. It is the
// only boundary between in-memory state and wire bytes; everything it
// accepts has survived the size, version, mode, replay and Kiss-of-Death
// checks from RFC 4330.
package messages

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ncode/TempoZero/pkg/sntp/common"
)

// PacketBaseSize is the fixed SNTP header size. Authentication data, when
// used, is appended immediately after these bytes.
const PacketBaseSize = 48

// Field offsets into the fixed-layout header
const (
	liVnModePos       = 0
	stratumPos        = 1
	pollPos           = 2
	precisionPos      = 3
	rootDelayPos      = 4
	rootDispersionPos = 8
	referenceIDPos    = 12
	referenceTsPos    = 16
	originateTsPos    = 24
	receiveTsPos      = 32
	transmitTsPos     = 40
)

const (
	// requestHeaderByte packs leap indicator "no warning" (0), version 4
	// and client mode (3) into the first header byte.
	requestHeaderByte = 0<<6 | common.VersionSNTPv4<<3 | common.ModeClient

	// kodStratum marks a Kiss-of-Death response.
	kodStratum = 0

	// maxPollExponent bounds the poll field values trusted when deriving
	// a RATE backoff interval (2^17 s is over a day; anything larger is
	// not a plausible server suggestion).
	maxPollExponent = 17

	// negativeDelayTolerance separates rounding jitter, which is clamped
	// to a zero delay, from an implausible response, which is rejected.
	negativeDelayTolerance = time.Millisecond
)

// ResponseData is the validated result of one request/response exchange.
type ResponseData struct {
	// ServerTime is the server's transmit timestamp (T3), the time sample
	// this exchange produced.
	ServerTime common.Timestamp

	// LeapSecond is the server's leap warning for the end of the current day.
	LeapSecond common.LeapIndicator

	// Stratum of the responding server (1 = primary reference).
	Stratum uint8

	// ReferenceID identifies the server's synchronization source.
	ReferenceID uint32

	// ClockOffset is the signed correction to apply to the local clock.
	ClockOffset time.Duration

	// RoundTripDelay is the estimated network transit time of the
	// exchange, never negative.
	RoundTripDelay time.Duration
}

// BuildRequest writes a client time request into the first PacketBaseSize
// bytes of buf. The supplied transmit timestamp goes into the transmit
// timestamp field; the caller must remember it for the replay check on the
// matching response.
func BuildRequest(buf []byte, transmitTime common.Timestamp) error {
	if len(buf) < PacketBaseSize {
		return common.ErrBufferTooSmall
	}
	for i := range buf[:PacketBaseSize] {
		buf[i] = 0
	}
	buf[liVnModePos] = requestHeaderByte
	transmitTime.Marshal(buf[transmitTsPos:])
	return nil
}

// ParseResponse validates a server response and computes the clock offset
// and round-trip delay. lastRequestTime is the transmit timestamp of the
// request this response must answer (T1); responseRxTime is the local
// receive time (T4).
//
// Returns *common.KissOfDeathError for a stratum-0 rejection,
// common.ErrInvalidResponse for version/mode/replay violations or an
// implausible delay, and common.ErrIncorrectResponse for a truncated buffer.
func ParseResponse(buf []byte, lastRequestTime, responseRxTime common.Timestamp) (*ResponseData, error) {
	if len(buf) < PacketBaseSize {
		return nil, common.ErrIncorrectResponse
	}

	version := buf[liVnModePos] >> 3 & 0x7
	if version != common.VersionSNTPv4 && version != common.VersionSNTPv3 {
		return nil, fmt.Errorf("%w: version %d", common.ErrInvalidResponse, version)
	}

	mode := buf[liVnModePos] & 0x7
	if mode != common.ModeServer && mode != common.ModeBroadcast {
		return nil, fmt.Errorf("%w: mode %d", common.ErrInvalidResponse, mode)
	}

	// Replay protection: the server must echo our transmit timestamp in
	// the originate timestamp field. A stale or spoofed response fails
	// here before any of its time fields are trusted.
	var originate common.Timestamp
	originate.Unmarshal(buf[originateTsPos:])
	if !originate.Equal(lastRequestTime) {
		return nil, fmt.Errorf("%w: originate timestamp mismatch", common.ErrInvalidResponse)
	}

	stratum := buf[stratumPos]
	if stratum == kodStratum {
		return nil, parseKissOfDeath(buf)
	}

	var serverRx, serverTx common.Timestamp
	serverRx.Unmarshal(buf[receiveTsPos:])
	serverTx.Unmarshal(buf[transmitTsPos:])

	delay := common.RoundTripDelay(lastRequestTime, serverRx, serverTx, responseRxTime)
	if delay < 0 {
		if delay <= -negativeDelayTolerance {
			return nil, fmt.Errorf("%w: negative round-trip delay %v",
				common.ErrInvalidResponse, delay)
		}
		delay = 0
	}

	return &ResponseData{
		ServerTime:     serverTx,
		LeapSecond:     common.LeapIndicator(buf[liVnModePos] >> 6),
		Stratum:        stratum,
		ReferenceID:    binary.BigEndian.Uint32(buf[referenceIDPos:]),
		ClockOffset:    common.ClockOffset(lastRequestTime, serverRx, serverTx, responseRxTime),
		RoundTripDelay: delay,
	}, nil
}

// parseKissOfDeath interprets a stratum-0 response. The reference
// identifier carries a 4-character ASCII kiss code; a RATE code may also
// carry a suggested minimum polling interval in the poll field.
func parseKissOfDeath(buf []byte) *common.KissOfDeathError {
	code := string(buf[referenceIDPos : referenceIDPos+4])
	kod := &common.KissOfDeathError{
		Code:   code,
		Action: common.ClassifyKissCode(code),
	}
	if kod.Action == common.RejectRetryWithBackoff {
		if poll := buf[pollPos]; poll >= 1 && poll <= maxPollExponent {
			kod.SuggestedBackoff = (1 << poll) * time.Second
		}
	}
	return kod
}
