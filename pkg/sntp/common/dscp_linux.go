//go:build linux
// +build linux

package common

import "golang.org/x/sys/unix"

func platformSetDSCP(fd uintptr, dscp uint8) error {
	tos := int(dscp)
	// IPv6 first; modern kernels accept IPV6_TCLASS on v4 sockets too
	if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_TCLASS, tos); err == nil {
		return nil
	}
	return unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS, tos)
}
