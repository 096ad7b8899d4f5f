package socks5

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// Server wraps a net.Listener and a Config, mirroring the bind/set_config/
// incoming surface of the source this engine was ported from. It performs
// no negotiation itself — Incoming hands back wrapped-but-not-yet-run
// Connections, and the caller drives each one's Run, exactly like the
// Rust source's Socks5Server/Incoming stream.
type Server struct {
	listener net.Listener
	log      *slog.Logger
	metric   *Metrics

	mu  sync.RWMutex
	cfg Config

	tracker  *connTracker[*Connection]
	closeMu  sync.Mutex
	closed   bool
	closeErr error
}

// Bind opens a TCP listener on addr. The returned Server starts with
// DefaultConfig(); call SetConfig on it to customize that.
func Bind(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("socks5: bind %s: %w", addr, err)
	}
	return &Server{
		listener: ln,
		cfg:      DefaultConfig(),
		tracker:  newConnTracker[*Connection](),
		log:      slog.New(slog.NewTextHandler(discard{}, nil)),
	}, nil
}

// discard implements io.Writer by discarding everything, used as the
// default logger sink when no SetLogger call is made.
type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// SetConfig swaps the Config used for subsequently accepted connections.
// Connections already handed back by Incoming keep the Config snapshot
// they were constructed with.
func (s *Server) SetConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// SetLogger sets the structured logger used for connection lifecycle
// events and accept-loop diagnostics.
func (s *Server) SetLogger(log *slog.Logger) {
	if log != nil {
		s.log = log
	}
}

// SetMetrics attaches a Metrics instance; pass nil to disable metrics.
func (s *Server) SetMetrics(m *Metrics) {
	s.metric = m
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// ConnectionCount returns the number of connections accepted and not yet
// closed by the caller.
func (s *Server) ConnectionCount() int64 {
	return s.tracker.Count()
}

// Close closes the listener and every connection accepted so far.
func (s *Server) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return s.closeErr
	}
	s.closed = true
	s.closeErr = s.listener.Close()
	s.tracker.closeAll()
	return s.closeErr
}

// Incoming returns a channel of accepted, wrapped connections. The accept
// loop runs in its own goroutine and stops when ctx is cancelled or the
// Server is closed, closing the returned channel. Cancelling ctx does not
// interrupt an Accept that is already waiting: the loop notices the
// cancellation when Accept next returns (closing any connection it just
// accepted), and Close unblocks a waiting Accept. The caller is
// responsible for calling Run (and Close) on each Connection — this keeps
// the task-per-connection model explicit, the way the Rust source's
// Stream-based Incoming leaves task-spawning to the caller.
func (s *Server) Incoming(ctx context.Context) <-chan *Connection {
	out := make(chan *Connection)

	go func() {
		defer close(out)
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if s.isClosed() {
					return
				}
				s.log.Warn("accept error", "err", err)
				continue
			}
			if ctx.Err() != nil {
				conn.Close()
				return
			}

			s.mu.RLock()
			cfg := s.cfg
			s.mu.RUnlock()

			wrapped := newConnection(conn, cfg, s.log, s.metric)
			s.tracker.add(wrapped)
			wrapped.onClose = func() { s.tracker.remove(wrapped) }

			select {
			case out <- wrapped:
			case <-ctx.Done():
				wrapped.Close()
				return
			}
		}
	}()

	return out
}

func (s *Server) isClosed() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.closed
}
