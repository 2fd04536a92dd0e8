package client

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/ncode/TempoZero/pkg/sntp/common"
)

const (
	// defaultRecvPoll is how long one RecvFrom call waits before
	// reporting "nothing ready"; the engine's own timeout budget decides
	// how often to come back.
	defaultRecvPoll = 50 * time.Millisecond

	// maxDatagramSize bounds the scratch area used to measure incoming
	// datagrams. SNTP packets are 48 bytes plus a bounded authentication
	// trailer; anything near this limit is garbage the engine rejects by
	// size anyway.
	maxDatagramSize = 1024
)

// UDPTransportConfig tunes the default transport.
type UDPTransportConfig struct {
	// LocalAddress optionally pins the local UDP address ("0.0.0.0:0"
	// semantics when empty).
	LocalAddress string

	// DSCP, when non-zero, marks outgoing packets (see common.DSCPCS6
	// and friends).
	DSCP uint8

	// RecvPollInterval overrides how long a single receive attempt
	// blocks before returning "retry".
	RecvPollInterval time.Duration
}

// UDPTransport is a net.UDPConn-backed Transport. It keeps one connected
// socket per endpoint and redials transparently when the engine rotates to
// a different server. Like the engine itself it is not safe for concurrent
// use.
type UDPTransport struct {
	cfg       UDPTransportConfig
	conn      *net.UDPConn
	connected ServerEndpoint
	scratch   [maxDatagramSize]byte
}

// NewUDPTransport creates a transport; no socket is opened until the first
// send.
func NewUDPTransport(cfg UDPTransportConfig) *UDPTransport {
	if cfg.RecvPollInterval == 0 {
		cfg.RecvPollInterval = defaultRecvPoll
	}
	return &UDPTransport{cfg: cfg}
}

// SendTo implements Transport. A send that cannot complete immediately is
// reported as zero progress so the engine can retry under its own budget.
func (t *UDPTransport) SendTo(endpoint *ServerEndpoint, data []byte) (int, error) {
	conn, err := t.connFor(endpoint)
	if err != nil {
		return 0, err
	}
	n, err := conn.Write(data)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// RecvFrom implements Transport. It returns the full size of the received
// datagram even when it exceeds len(buf), so the engine can reject
// wrong-sized responses; only the bytes that fit are copied.
func (t *UDPTransport) RecvFrom(endpoint *ServerEndpoint, buf []byte) (int, error) {
	conn, err := t.connFor(endpoint)
	if err != nil {
		return 0, err
	}
	if err := conn.SetReadDeadline(time.Now().Add(t.cfg.RecvPollInterval)); err != nil {
		return 0, err
	}
	n, err := conn.Read(t.scratch[:])
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return 0, nil // nothing ready yet
		}
		return 0, err
	}
	copy(buf, t.scratch[:n])
	return n, nil
}

// Close releases the underlying socket, if any.
func (t *UDPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.connected = ServerEndpoint{}
	return err
}

// connFor returns a socket connected to endpoint, dialing or redialing as
// needed.
func (t *UDPTransport) connFor(endpoint *ServerEndpoint) (*net.UDPConn, error) {
	if t.conn != nil && t.connected == *endpoint {
		return t.conn, nil
	}
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}

	var laddr *net.UDPAddr
	if t.cfg.LocalAddress != "" {
		var err error
		laddr, err = net.ResolveUDPAddr("udp4", t.cfg.LocalAddress)
		if err != nil {
			return nil, fmt.Errorf("resolve local address: %w", err)
		}
	}

	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, endpoint.IPv4)
	raddr := &net.UDPAddr{IP: ip, Port: int(endpoint.Port)}

	conn, err := net.DialUDP("udp4", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", raddr, err)
	}
	if t.cfg.DSCP != 0 {
		// Marking is best effort; a refusing platform should not stop
		// time synchronization.
		_ = common.SetDSCP(conn, t.cfg.DSCP)
	}
	t.conn = conn
	t.connected = *endpoint
	return conn, nil
}
