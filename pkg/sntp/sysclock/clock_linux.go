//go:build linux
// +build linux

package sysclock

import (
	"time"

	"golang.org/x/sys/unix"
)

// slewClock hands the offset to the kernel PLL. ADJ_NANO offsets are
// bounded by the kernel to half a second, well above any offset below the
// step threshold.
func slewClock(offset time.Duration) error {
	tmx := &unix.Timex{
		Modes:  unix.ADJ_OFFSET | unix.ADJ_NANO | unix.ADJ_STATUS | unix.ADJ_MAXERROR | unix.ADJ_ESTERROR,
		Offset: offset.Nanoseconds(),
		Status: unix.STA_PLL,
	}
	_, err := unix.Adjtimex(tmx)
	return err
}

// stepClock jumps the realtime clock by offset.
func stepClock(offset time.Duration) error {
	tv := unix.NsecToTimeval(time.Now().Add(offset).UnixNano())
	return unix.Settimeofday(&tv)
}
