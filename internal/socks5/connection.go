package socks5

import (
	"context"
	"io"
	"log/slog"
	"net"

	"github.com/postalsys/socks5d/internal/logging"
)

// Connection owns the client socket and the Config for exactly one SOCKS5
// negotiation. Once the outbound socket is dialed, the Connection owns both
// sockets until Relay splits each into a read half and a write half.
//
// A Connection also implements io.Reader and io.Writer by forwarding to the
// wrapped stream, so a caller that disabled Config.ExecuteCommand can take
// over post-handshake I/O without unwrapping anything.
type Connection struct {
	net.Conn
	cfg    Config
	log    *slog.Logger
	metric *Metrics

	state      ConnectionState
	auth       AuthenticationMethod
	targetAddr TargetAddress

	onClose func()
}

// newConnection wraps an accepted socket. Unexported: callers get
// Connections exclusively through Server.Incoming.
func newConnection(conn net.Conn, cfg Config, log *slog.Logger, m *Metrics) *Connection {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Connection{
		Conn:   conn,
		cfg:    cfg,
		log:    log,
		metric: m,
		state:  StateAccepted,
	}
}

// TargetAddr returns the negotiated destination, valid once Run has parsed
// the request (state >= StateRequestRead).
func (c *Connection) TargetAddr() TargetAddress { return c.targetAddr }

// Auth returns the negotiated authentication outcome, valid once Run has
// completed the handshake (or immediately, as AuthenticationMethod{} zero
// value meaning "None", if SkipAuth is set).
func (c *Connection) Auth() AuthenticationMethod { return c.auth }

// State returns the connection's current position in the state machine.
func (c *Connection) State() ConnectionState { return c.state }

// Close tears down the client socket and releases any Server-side
// bookkeeping for this connection.
func (c *Connection) Close() error {
	if c.onClose != nil {
		c.onClose()
		c.onClose = nil
	}
	c.state = StateClosed
	return c.Conn.Close()
}

// Run drives the connection through handshake, authentication, request
// parsing, resolution, and (if Config.ExecuteCommand is set) the outbound
// connect and relay. It returns nil on a clean relay finish; reply errors
// and framing errors are both returned after any wire-reply obligation has
// already been discharged.
func (c *Connection) Run(ctx context.Context) error {
	if !c.cfg.SkipAuth {
		if err := c.handshake(); err != nil {
			return err
		}
	} else {
		c.log.Debug("skipping handshake", logging.KeyRemoteAddr, c.RemoteAddr())
	}

	// request() is responsible for emitting exactly one reply when the
	// failure is reply-classifiable (§4.5 step 7); Run never re-sends one.
	return c.request(ctx)
}
