package socks5

import (
	"io"
	"log/slog"
	"net"
	"time"
)

// halfCloser is implemented by connections that support shutting down one
// direction while keeping the other open (e.g. *net.TCPConn).
type halfCloser interface {
	CloseWrite() error
}

// relayResult is one direction's outcome, used only to get it off the copy
// goroutine and onto the result channel.
type relayResult struct {
	dir string
	n   int64
	err error
}

// relay copies bytes bidirectionally between client and target until
// either direction finishes (EOF or error) — first-finisher wins. The
// remote target typically closes first on request/response flows, and
// waiting on the other direction as well would leak the connection when a
// client holds its half open past the end of the exchange. When the first
// leg finishes, relay closes target (which it owns from then on); the
// surviving leg ends once it next touches target or once the caller closes
// client, and its byte count is logged and recorded when it does. The relay
// itself always returns nil: EOF and peer-reset are normal termination,
// not errors worth surfacing to the caller.
func relay(client, target net.Conn, idleTimeout time.Duration, log *slog.Logger, m *Metrics) error {
	done := make(chan relayResult, 2)

	go func() {
		n, err := copyWithIdle(target, client, idleTimeout)
		if hc, ok := target.(halfCloser); ok {
			hc.CloseWrite()
		}
		done <- relayResult{"client->target", n, err}
	}()

	go func() {
		n, err := copyWithIdle(client, target, idleTimeout)
		if hc, ok := client.(halfCloser); ok {
			hc.CloseWrite()
		}
		done <- relayResult{"target->client", n, err}
	}()

	first := <-done
	logRelayLeg(log, first)
	recordRelayBytes(m, first)

	target.Close()
	go func() {
		second := <-done
		logRelayLeg(log, second)
		recordRelayBytes(m, second)
	}()

	return nil
}

func logRelayLeg(log *slog.Logger, r relayResult) {
	if r.err != nil && r.err != io.EOF {
		log.Debug("relay leg ended", "direction", r.dir, "bytes", r.n, "err", r.err)
		return
	}
	log.Debug("relay leg ended", "direction", r.dir, "bytes", r.n)
}

func recordRelayBytes(m *Metrics, r relayResult) {
	if m == nil {
		return
	}
	if r.dir == "client->target" {
		m.BytesSent.Add(float64(r.n))
	} else {
		m.BytesReceived.Add(float64(r.n))
	}
}

// copyWithIdle copies src to dst, refreshing a read/write deadline on src
// and dst after every successful chunk when idleTimeout is non-zero. A
// zero idleTimeout leaves deadlines untouched, matching the spec's default
// of an unbounded relay phase.
func copyWithIdle(dst io.Writer, src io.Reader, idleTimeout time.Duration) (int64, error) {
	if idleTimeout <= 0 {
		return io.Copy(dst, src)
	}

	srcConn, srcOK := src.(net.Conn)
	dstConn, dstOK := dst.(net.Conn)

	buf := make([]byte, 32*1024)
	var total int64
	for {
		if srcOK {
			srcConn.SetReadDeadline(time.Now().Add(idleTimeout))
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if dstOK {
				dstConn.SetWriteDeadline(time.Now().Add(idleTimeout))
			}
			wn, werr := dst.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return total, nil
			}
			return total, rerr
		}
	}
}
