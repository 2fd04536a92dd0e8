package client

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
)

// NetResolver resolves server names with the standard library resolver.
// Literal IPv4 addresses resolve to themselves without a lookup.
type NetResolver struct {
	// Resolver overrides net.DefaultResolver when set.
	Resolver *net.Resolver
}

// ResolveIPv4 implements Resolver. It returns the first IPv4 address the
// lookup produces.
func (r *NetResolver) ResolveIPv4(serverName string) (uint32, error) {
	res := r.Resolver
	if res == nil {
		res = net.DefaultResolver
	}
	ips, err := res.LookupIP(context.Background(), "ip4", serverName)
	if err != nil {
		return 0, err
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			return binary.BigEndian.Uint32(ip4), nil
		}
	}
	return 0, fmt.Errorf("no IPv4 address for %q", serverName)
}
