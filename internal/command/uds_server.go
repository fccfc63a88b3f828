package command

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"firestige.xyz/netmon/internal/log"
)

// DefaultSocketPath is used when no socket path is configured.
const DefaultSocketPath = "/var/run/netmon.sock"

const (
	ackLine    = "ok\n"
	ackTimeout = time.Second
)

// UDSOptions configures the unix socket control source.
type UDSOptions struct {
	Path string `mapstructure:"path"`
}

// UDSServer accepts control lines over a Unix Domain Socket. Every connection
// feeds the same queue; lines of one connection keep their order. Each queued
// line is answered with "ok\n".
type UDSServer struct {
	socketPath string
	listener   net.Listener

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
	stopped bool
}

// NewUDSServer creates a new UDS server.
func NewUDSServer(opts UDSOptions) *UDSServer {
	path := opts.Path
	if path == "" {
		path = DefaultSocketPath
	}
	return &UDSServer{
		socketPath: path,
		conns:      make(map[net.Conn]struct{}),
	}
}

// SocketPath returns the path the server listens on.
func (s *UDSServer) SocketPath() string {
	return s.socketPath
}

// Run listens on the socket and pushes received lines into q.
// Blocks until ctx is cancelled or the listener fails.
func (s *UDSServer) Run(ctx context.Context, q *Queue) error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	log.GetLogger().WithField("socket", s.socketPath).Info("uds control server started")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.acceptLoop(q)
	}()

	select {
	case <-ctx.Done():
		s.Close()
		return ctx.Err()
	case err := <-errCh:
		s.Close()
		return err
	}
}

func (s *UDSServer) acceptLoop(q *Queue) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			conn.Close()
			return nil
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn, q)
	}
}

func (s *UDSServer) handleConnection(conn net.Conn, q *Queue) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	logger := log.GetLogger().WithField("socket", s.socketPath)
	logger.Debug("uds control connection established")

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if !q.Push(scanner.Text()) {
			return
		}
		// Ack only once the line is queued so clients can order their sends.
		conn.SetWriteDeadline(time.Now().Add(ackTimeout))
		if _, err := conn.Write([]byte(ackLine)); err != nil {
			logger.WithError(err).Debug("uds control ack not delivered")
		}
	}
	if err := scanner.Err(); err != nil {
		logger.WithError(err).Warn("uds control connection error")
	}
	logger.Debug("uds control connection closed")
}

// Close stops the listener, closes all connections and removes the socket file.
func (s *UDSServer) Close() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	os.RemoveAll(s.socketPath)

	log.GetLogger().Info("uds control server stopped")
	return nil
}
