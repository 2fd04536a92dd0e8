package client

import (
	"time"

	"github.com/ncode/TempoZero/pkg/sntp/common"
)

// ServerInfo identifies one configured time server. The server list handed
// to NewContext is ordered by descending priority and is never mutated by
// the engine.
type ServerInfo struct {
	Name string // host name or literal IP of the time server
	Port uint16 // UDP port, common.DefaultServerPort when zero
}

// ServerEndpoint is a server together with its most recently resolved IPv4
// address, the addressing unit handed to the transport.
type ServerEndpoint struct {
	Name string
	Port uint16
	IPv4 uint32 // network byte order interpreted as a big-endian integer
}

// Resolver resolves a time server name to an IPv4 address. The engine
// re-resolves the current server on every request so that DNS-based server
// pools rotate naturally.
type Resolver interface {
	ResolveIPv4(serverName string) (uint32, error)
}

// Clock supplies wire-format system time and applies the computed
// correction. SetTime receives both the server's time sample and the signed
// offset so the implementation can choose a "step" (overwrite with server
// time) or "slew" (gradual rate adjustment by offset) discipline.
type Clock interface {
	Now() (common.Timestamp, error)
	SetTime(serverName string, serverTime common.Timestamp, offset time.Duration) error
}

// Transport performs the UDP send/receive operations. Both calls are
// non-owning: the engine never opens or closes sockets.
//
// SendTo reports progress through its return value: all bytes moved means
// the datagram went out; fewer bytes (or zero) means the operation should
// be retried with the remainder; a non-nil error is a non-retryable
// transport failure.
//
// RecvFrom returns 0 with a nil error when nothing is ready yet (retry),
// the full datagram size when one arrived (even if it exceeded len(buf)),
// or a non-nil error for a non-retryable failure.
type Transport interface {
	SendTo(endpoint *ServerEndpoint, data []byte) (int, error)
	RecvFrom(endpoint *ServerEndpoint, buf []byte) (int, error)
}

// AuthProvider is the optional security mechanism for SNTP exchanges.
//
// GenerateClientAuth signs the request occupying the first
// messages.PacketBaseSize bytes of buf, appends the authentication data
// directly after them, and returns the number of bytes appended.
// ValidateServer checks the full response bytes; it returns an error
// wrapping common.ErrServerNotAuthenticated when the server's credentials
// do not validate, and common.ErrAuthFailure for local failures.
type AuthProvider interface {
	GenerateClientAuth(serverName string, buf []byte) (int, error)
	ValidateServer(serverName string, response []byte) error
}
