package socks5

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/postalsys/socks5d/internal/logging"
)

// request implements the Request Engine (§4.5): parse, optionally resolve,
// optionally dial and relay.
func (c *Connection) request(ctx context.Context) error {
	hdr, err := readExactN(c, 4)
	if err != nil {
		return errIO(err)
	}
	if hdr[0] != Version {
		return errUnsupportedVersion(hdr[0])
	}
	cmd, atyp := hdr[1], hdr[3]

	if cmd != cmdConnect {
		// BIND and UDP ASSOCIATE are not implemented; reply without
		// consuming the address bytes the client sent, per §4.5 step 2.
		c.sendReply(ReplyCmdNotSupported, placeholderBindAddr)
		return ErrCommandNotSupported
	}

	addr, err := readAddress(c, atyp)
	if err != nil {
		c.sendReply(ReplyAddrNotSupported, placeholderBindAddr)
		return ErrAddressTypeUnsupported
	}
	c.targetAddr = addr
	c.advance(StateRequestRead)

	if c.cfg.DNSResolve && c.targetAddr.IsDomain() {
		if err := c.resolve(ctx); err != nil {
			c.sendReply(ReplyHostUnreachable, placeholderBindAddr)
			return ErrHostUnreachable
		}
		c.advance(StateResolved)
	}

	if !c.cfg.ExecuteCommand {
		return nil
	}

	return c.executeCommand(ctx)
}

// resolve looks up c.targetAddr's domain name and replaces it with the
// first returned address, preserving the port.
func (c *Connection) resolve(ctx context.Context) error {
	hosts, err := c.cfg.resolver().LookupHost(ctx, c.targetAddr.Domain)
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		return fmt.Errorf("socks5: resolver returned no addresses for %q", c.targetAddr.Domain)
	}
	ip := net.ParseIP(hosts[0])
	if ip == nil {
		return fmt.Errorf("socks5: resolver returned invalid address %q", hosts[0])
	}
	c.targetAddr = TargetAddress{IP: ip, Port: c.targetAddr.Port}
	return nil
}

// executeCommand dials the target under Config.RequestTimeout, emits the
// reply, and (on success) hands off to the Relay.
func (c *Connection) executeCommand(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	host := c.targetAddr.Domain
	if !c.targetAddr.IsDomain() {
		host = c.targetAddr.IP.String()
	}
	address := net.JoinHostPort(host, strconv.Itoa(int(c.targetAddr.Port)))

	dialStart := time.Now()
	target, err := c.cfg.dialer().DialContext(dialCtx, "tcp", address)
	if c.metric != nil {
		c.metric.ConnectLatency.Observe(time.Since(dialStart).Seconds())
	}
	if err != nil {
		replyErr := classifyDialError(err)
		c.sendReply(replyErr.Code, placeholderBindAddr)
		return replyErr
	}
	defer func() {
		if target != nil {
			target.Close()
		}
	}()
	c.advance(StateConnected)

	bindAddr := placeholderBindAddr
	if c.cfg.ReplyAddressMode == ReplyAddressBound {
		if tcpAddr, ok := target.LocalAddr().(*net.TCPAddr); ok {
			bindAddr = TargetAddress{IP: tcpAddr.IP, Port: uint16(tcpAddr.Port)}
		}
	}
	if err := c.sendReply(ReplySucceeded, bindAddr); err != nil {
		return errIO(err)
	}
	c.log.Debug("connected", logging.KeyTargetAddr, c.targetAddr.String(), logging.KeyReply, "succeeded")

	if c.metric != nil {
		c.metric.Connections.Inc()
		c.metric.ConnectionsTotal.Inc()
	}

	c.advance(StateRelaying)
	relayTarget := target
	target = nil // ownership moves to relay
	err = relay(c.Conn, relayTarget, c.cfg.IdleTimeout, c.log, c.metric)
	c.advance(StateClosed)
	if c.metric != nil {
		c.metric.Connections.Dec()
	}
	return err
}

// classifyDialError maps a dial failure to the reply code table in §4.5.
func classifyDialError(err error) *ReplyError {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTTLExpired
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrConnectionRefused
	}
	if errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.ECONNRESET) {
		return ErrConnectionNotAllowed
	}
	if errors.Is(err, syscall.ENOTCONN) {
		return ErrNetworkUnreachable
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTTLExpired
	}
	return ErrGeneralFailure
}

// sendReply writes a SOCKS5 reply: VER, REP, RSV, ATYP, ADDR, PORT.
func (c *Connection) sendReply(code byte, addr TargetAddress) error {
	buf := make([]byte, 0, 4+18)
	buf = append(buf, Version, code, 0x00)
	buf = appendAddress(buf, addr)
	_, err := c.Write(buf)
	if c.metric != nil {
		c.metric.Replies.WithLabelValues(fmt.Sprintf("0x%02x", code)).Inc()
	}
	return err
}
