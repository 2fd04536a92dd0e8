//go:build !linux
// +build !linux

package sysclock

import "time"

func slewClock(offset time.Duration) error {
	return ErrUnsupported
}

func stepClock(offset time.Duration) error {
	return ErrUnsupported
}
