package socks5

import (
	"context"
	"net"
	"time"
)

// Resolver resolves a domain name to a list of addresses. *net.Resolver
// satisfies this interface, which is the production default; tests
// substitute a map-backed fake. DNS resolution internals are otherwise out
// of scope for this package.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Dialer opens outbound TCP connections on behalf of a CONNECT request.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ReplyAddressMode controls what bind address the Request Engine embeds in
// a successful CONNECT reply.
type ReplyAddressMode int

const (
	// ReplyAddressPlaceholder always emits 127.0.0.1:0, matching the
	// behavior of the source this engine was ported from. This is the
	// default; RFC 1928 §6 asks for the server-assigned endpoint instead,
	// but tests and clients in the wild generally don't inspect BND.ADDR
	// for a CONNECT reply, so changing it is opt-in.
	ReplyAddressPlaceholder ReplyAddressMode = iota
	// ReplyAddressBound emits the outbound socket's real local address.
	ReplyAddressBound
)

// Config holds per-connection negotiation policy. It is immutable once
// handed to a Connection; a Server may swap its own copy between accepts
// via SetConfig without affecting connections already in flight.
type Config struct {
	// RequestTimeout bounds the outbound connect() in the Request Engine.
	// Zero means "time out immediately" (useful for exercising TtlExpired
	// against unreachable targets in tests); the default is 10s.
	RequestTimeout time.Duration

	// SkipAuth bypasses the entire handshake phase (§4.4 step 1-5) and
	// proceeds directly to the request phase. This is a deliberate
	// deviation from RFC 1928, intended for test harnesses and
	// transparent-proxy front ends that have already authenticated the
	// client out of band.
	SkipAuth bool

	// DNSResolve, when true, resolves Domain targets to an IP before
	// connecting.
	DNSResolve bool

	// ExecuteCommand, when false, stops the Request Engine once the
	// request has been parsed (and resolved, if DNSResolve is set) and
	// hands the connection back to the caller instead of dialing out.
	ExecuteCommand bool

	// Authenticator, when non-nil, forces method 0x02 (username/password)
	// during the handshake. When nil, method 0x00 (no auth) is required.
	Authenticator Authenticator

	// IdleTimeout bounds how long a relayed connection may go without
	// forward progress in either direction. Zero disables it. Handshake
	// reads are never subject to this deadline, and they do not observe
	// the context passed to Run either; a caller wanting bounded handshake
	// time sets a deadline on the underlying connection.
	IdleTimeout time.Duration

	// ReplyAddressMode selects what bind address a successful CONNECT
	// reply embeds. See ReplyAddressMode.
	ReplyAddressMode ReplyAddressMode

	// Resolver performs DNS resolution when DNSResolve is set. Defaults
	// to net.DefaultResolver.
	Resolver Resolver

	// Dialer opens the outbound connection. Defaults to a plain
	// net.Dialer wrapped to satisfy the Dialer interface.
	Dialer Dialer
}

// DefaultConfig returns the configuration defaults named in the
// specification: a 10s request timeout, full RFC 1928 handshake, DNS
// resolution and command execution both enabled, and no authenticator.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 10 * time.Second,
		SkipAuth:       false,
		DNSResolve:     true,
		ExecuteCommand: true,
	}
}

func (c Config) resolver() Resolver {
	if c.Resolver != nil {
		return c.Resolver
	}
	return net.DefaultResolver
}

func (c Config) dialer() Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return tcpDialer{}
}

// tcpDialer is the default Dialer: a direct TCP connection via net.Dialer.
type tcpDialer struct{}

func (tcpDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}
