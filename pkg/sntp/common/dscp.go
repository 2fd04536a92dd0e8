package common

import (
	"errors"
	"net"
)

// DiffServ code-points commonly used for time-transfer traffic, already
// left-shifted into the upper 6 bits of the IPv4 TOS / IPv6 Traffic-Class
// field, ready for use with IP_TOS or IPV6_TCLASS.
const (
	DSCPBestEffort uint8 = 0x00
	DSCPCS2        uint8 = 0x40 // OAM / low-priority control
	DSCPCS6        uint8 = 0xC0 // network control, the classic NTP marking
	DSCPEF         uint8 = 0xB8 // expedited forwarding
)

var ErrUnsupportedConn = errors.New("dscp: connection type not supported")

// SetDSCP sets the Differentiated-Services Code-Point on an already-open
// UDP socket so that time packets keep their queueing priority on marked
// networks. Returns an error if the platform or socket family does not
// support it.
func SetDSCP(c net.Conn, dscp uint8) error {
	pc, ok := c.(*net.UDPConn)
	if !ok {
		return ErrUnsupportedConn
	}
	raw, err := pc.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	ctrlFn := func(fd uintptr) {
		opErr = platformSetDSCP(fd, dscp)
	}
	if err := raw.Control(ctrlFn); err != nil {
		return err
	}
	return opErr
}
