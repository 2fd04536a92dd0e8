// Package client implements the SNTPv4 client engine: a synchronous,
// allocation-free polling cycle over a caller-supplied buffer, transport,
// resolver and clock. One Context serves one polling relationship and must
// be confined to a single goroutine; independent syncs need independent
// contexts and buffers.
package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/ncode/TempoZero/pkg/sntp/common"
	"github.com/ncode/TempoZero/pkg/sntp/messages"
)

// Config carries everything a Context needs. Servers, Buffer and the
// collaborator interfaces stay caller-owned and must outlive the context.
type Config struct {
	// Servers is the prioritized time server list, best first.
	Servers []ServerInfo

	// Buffer holds both outgoing requests and incoming responses. Its
	// length is the hard upper bound on packet size, authentication data
	// included; it is never grown or reallocated by the engine.
	Buffer []byte

	Resolver  Resolver
	Clock     Clock
	Transport Transport

	// Auth is optional; when nil, requests go out unauthenticated and
	// responses are validated by format and replay checks only.
	Auth AuthProvider
}

// Context is the engine state for one polling relationship.
type Context struct {
	servers   []ServerInfo
	resolver  Resolver
	clock     Clock
	transport Transport
	auth      AuthProvider

	buf        []byte
	packetSize int

	current   int
	exhausted bool
	endpoint  ServerEndpoint

	// lastRequestTime is echoed back by the server in the originate
	// timestamp field; the match is the replay protection.
	lastRequestTime common.Timestamp
}

// NewContext validates the configuration and returns a ready context.
// It fails with common.ErrBadParameter when a required collaborator or the
// server list is missing, and common.ErrBufferTooSmall when the buffer
// cannot hold a minimum valid packet. On error no context is returned, so
// there is no partially initialized state to misuse.
func NewContext(cfg Config) (*Context, error) {
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("%w: empty time server list", common.ErrBadParameter)
	}
	for i, s := range cfg.Servers {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: server %d has an empty name", common.ErrBadParameter, i)
		}
	}
	if cfg.Resolver == nil || cfg.Clock == nil || cfg.Transport == nil {
		return nil, fmt.Errorf("%w: resolver, clock and transport are required", common.ErrBadParameter)
	}
	if cfg.Buffer == nil {
		return nil, fmt.Errorf("%w: network buffer is required", common.ErrBadParameter)
	}
	if len(cfg.Buffer) < messages.PacketBaseSize {
		return nil, fmt.Errorf("%w: need at least %d bytes, have %d",
			common.ErrBufferTooSmall, messages.PacketBaseSize, len(cfg.Buffer))
	}

	servers := make([]ServerInfo, len(cfg.Servers))
	copy(servers, cfg.Servers)
	for i := range servers {
		if servers[i].Port == 0 {
			servers[i].Port = common.DefaultServerPort
		}
	}

	return &Context{
		servers:    servers,
		resolver:   cfg.Resolver,
		clock:      cfg.Clock,
		transport:  cfg.Transport,
		auth:       cfg.Auth,
		buf:        cfg.Buffer,
		packetSize: messages.PacketBaseSize,
	}, nil
}

// CurrentServer returns the server the next request will target.
func (c *Context) CurrentServer() ServerInfo {
	return c.servers[c.current]
}

// CurrentServerIndex returns the position of the active server in the
// configured list.
func (c *Context) CurrentServerIndex() int {
	return c.current
}

// rotateServer advances the cursor. The cursor never wraps on its own;
// once the last server has been rotated past, the context reports
// common.ErrServerListExhausted until ResetServerRotation.
func (c *Context) rotateServer() {
	if c.current+1 < len(c.servers) {
		c.current++
		return
	}
	c.exhausted = true
}

// ResetServerRotation starts a new polling round from the highest-priority
// server.
func (c *Context) ResetServerRotation() {
	c.current = 0
	c.exhausted = false
}

// SendTimeRequest resolves the current server, builds and (optionally)
// authenticates a time request, and sends it. Partial or zero-progress
// sends are retried until timeout, measured with the caller's clock.
func (c *Context) SendTimeRequest(timeout time.Duration) error {
	if c.exhausted {
		return common.ErrServerListExhausted
	}
	server := c.servers[c.current]

	// Re-resolve on every request; the cached endpoint only serves the
	// receive path of the same exchange.
	addr, err := c.resolver.ResolveIPv4(server.Name)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", common.ErrDNSFailure, server.Name, err)
	}
	c.endpoint = ServerEndpoint{Name: server.Name, Port: server.Port, IPv4: addr}

	txTime, err := c.clock.Now()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrClockFailure, err)
	}
	if err := messages.BuildRequest(c.buf, txTime); err != nil {
		return err
	}

	size := messages.PacketBaseSize
	if c.auth != nil {
		n, err := c.auth.GenerateClientAuth(server.Name, c.buf)
		if err != nil {
			if errors.Is(err, common.ErrBufferTooSmall) ||
				errors.Is(err, common.ErrAuthFailure) {
				return err
			}
			return fmt.Errorf("%w: %v", common.ErrAuthFailure, err)
		}
		if messages.PacketBaseSize+n > len(c.buf) {
			return fmt.Errorf("%w: %d auth bytes overflow %d-byte buffer",
				common.ErrBufferTooSmall, n, len(c.buf))
		}
		size += n
	}
	c.packetSize = size
	c.lastRequestTime = txTime

	sent := 0
	for sent < size {
		n, err := c.transport.SendTo(&c.endpoint, c.buf[sent:size])
		if err != nil {
			return fmt.Errorf("%w: send: %v", common.ErrNetworkFailure, err)
		}
		if n < 0 {
			return fmt.Errorf("%w: send returned %d", common.ErrNetworkFailure, n)
		}
		sent += n
		if sent < size {
			elapsed, err := c.elapsedSince(txTime)
			if err != nil {
				return err
			}
			if elapsed >= timeout {
				return common.ErrSendTimeout
			}
		}
	}
	return nil
}

// ReceiveTimeResponse awaits, validates and applies the response to the
// last sent request. Empty reads are retried until timeout. On a fully
// validated response the clock setter is invoked with the server time and
// computed offset, and the parsed response is returned.
//
// A Kiss-of-Death response surfaces as *common.KissOfDeathError; a
// change-server rejection additionally rotates the server cursor so the
// next request targets the following server.
func (c *Context) ReceiveTimeResponse(timeout time.Duration) (*messages.ResponseData, error) {
	if c.exhausted {
		return nil, common.ErrServerListExhausted
	}
	server := c.servers[c.current]

	start, err := c.clock.Now()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrClockFailure, err)
	}

	for {
		n, err := c.transport.RecvFrom(&c.endpoint, c.buf[:c.packetSize])
		if err != nil {
			return nil, fmt.Errorf("%w: recv: %v", common.ErrNetworkFailure, err)
		}
		if n == c.packetSize {
			break
		}
		if n != 0 {
			// A datagram of any other size cannot be the response to
			// the request we sent.
			return nil, fmt.Errorf("%w: got %d bytes, want %d",
				common.ErrIncorrectResponse, n, c.packetSize)
		}
		elapsed, err := c.elapsedSince(start)
		if err != nil {
			return nil, err
		}
		if elapsed >= timeout {
			return nil, common.ErrResponseTimeout
		}
	}

	rxTime, err := c.clock.Now()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrClockFailure, err)
	}

	if c.auth != nil {
		if err := c.auth.ValidateServer(server.Name, c.buf[:c.packetSize]); err != nil {
			return nil, err
		}
	}

	resp, err := messages.ParseResponse(c.buf[:c.packetSize], c.lastRequestTime, rxTime)
	if err != nil {
		var kod *common.KissOfDeathError
		if errors.As(err, &kod) && kod.Action == common.RejectChangeServer {
			c.rotateServer()
		}
		return nil, err
	}

	if err := c.clock.SetTime(server.Name, resp.ServerTime, resp.ClockOffset); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrClockFailure, err)
	}
	return resp, nil
}

// Synchronize runs one polling round: it retries the current server up to
// retryBudget times on transient failures (DNS, timeouts, discarded
// responses), rotates to the next server when the budget is spent or the
// server permanently refuses, and stops with common.ErrServerListExhausted
// once every server has been rotated past. Kiss-of-Death backoff requests
// and unrecognized kiss codes are returned to the caller unrotated, since
// reacting to them is caller policy.
func (c *Context) Synchronize(timeout time.Duration, retryBudget int) (*messages.ResponseData, error) {
	if retryBudget < 1 {
		retryBudget = 1
	}

	var lastErr error
servers:
	for !c.exhausted {
		for attempt := 0; attempt < retryBudget; attempt++ {
			resp, err := c.poll(timeout)
			if err == nil {
				return resp, nil
			}
			lastErr = err

			var kod *common.KissOfDeathError
			if errors.As(err, &kod) {
				if kod.Action == common.RejectChangeServer {
					// cursor already advanced by ReceiveTimeResponse
					continue servers
				}
				return nil, err
			}
			if !retryableSameServer(err) {
				return nil, err
			}
		}
		c.rotateServer()
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: last error: %v", common.ErrServerListExhausted, lastErr)
	}
	return nil, common.ErrServerListExhausted
}

// poll is one request/response exchange against the current server.
func (c *Context) poll(timeout time.Duration) (*messages.ResponseData, error) {
	if err := c.SendTimeRequest(timeout); err != nil {
		return nil, err
	}
	return c.ReceiveTimeResponse(timeout)
}

// retryableSameServer classifies errors after which the same server may be
// asked again: transient lookup and timing failures, plus discarded
// responses that do not disqualify the server itself.
func retryableSameServer(err error) bool {
	return errors.Is(err, common.ErrDNSFailure) ||
		errors.Is(err, common.ErrSendTimeout) ||
		errors.Is(err, common.ErrResponseTimeout) ||
		errors.Is(err, common.ErrIncorrectResponse) ||
		errors.Is(err, common.ErrInvalidResponse) ||
		errors.Is(err, common.ErrServerNotAuthenticated)
}

// elapsedSince measures time since start with the caller's clock, mapping
// clock failures to common.ErrClockFailure.
func (c *Context) elapsedSince(start common.Timestamp) (time.Duration, error) {
	now, err := c.clock.Now()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrClockFailure, err)
	}
	return common.DurationBetween(start, now), nil
}
