package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"webpool/internal/worker"
)

// Submitter accepts jobs for asynchronous execution. *worker.Pool implements it.
type Submitter interface {
	Submit(job worker.Job) error
}

// Logger is the logging capability the server needs. *logger.Logger implements it.
type Logger interface {
	Debug(id string, format string, args ...any)
	Info(id string, format string, args ...any)
	Warn(id string, format string, args ...any)
	Error(id string, format string, args ...any)
}

// Config holds the settings of the demo server.
type Config struct {
	Addr           string
	Root           string
	MaxConnections int
	SleepDelay     time.Duration
	ReadTimeout    time.Duration
}

// Server accepts TCP connections and submits one job per connection.
type Server struct {
	cfg  Config
	pool Submitter
	log  Logger

	mu       sync.Mutex
	listener net.Listener
}

// New creates a server. Call Listen and then Serve.
func New(cfg Config, pool Submitter, log Logger) *Server {
	return &Server{
		cfg:  cfg,
		pool: pool,
		log:  log,
	}
}

// Listen binds the listening socket.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.log.Info("", "Listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the accept loop until ctx is cancelled or MaxConnections
// connections have been accepted. The listener is closed on return.
// Jobs that were already submitted keep running in the pool.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("server is not listening")
	}

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()
	defer ln.Close()

	accepted := 0
	var backoff time.Duration
	for s.cfg.MaxConnections <= 0 || accepted < s.cfg.MaxConnections {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			backoff = nextBackoff(backoff)
			s.log.Warn("", "Accept failed: %v; retrying in %v", err, backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0
		accepted++

		id := uuid.NewString()
		s.log.Debug(id, "Accepted connection from %s", conn.RemoteAddr())

		if err := s.pool.Submit(func() { s.handleConnection(conn, id) }); err != nil {
			s.log.Error(id, "Failed to submit connection: %v", err)
			_ = conn.Close()
		}
	}

	s.log.Info("", "Served %d connections, no longer accepting", accepted)
	return nil
}

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// nextBackoff doubles the accept retry delay, capped at maxAcceptBackoff.
func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	return min(2*d, maxAcceptBackoff)
}

// handleConnection reads one request line and writes the routed file back.
func (s *Server) handleConnection(conn net.Conn, id string) {
	defer conn.Close()

	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}

	requestLine, err := readRequestLine(conn)
	if err != nil {
		s.log.Warn(id, "Error while reading request: %v", err)
		return
	}

	route := Match(requestLine)
	if route.Sleep && s.cfg.SleepDelay > 0 {
		time.Sleep(s.cfg.SleepDelay)
	}

	contents, err := os.ReadFile(filepath.Join(s.cfg.Root, route.File))
	if err != nil {
		s.log.Error(id, "Failed to read %s: %v", route.File, err)
		route.Status, contents = statusError, nil
	}

	if _, err := io.WriteString(conn, Response(route.Status, contents)); err != nil {
		s.log.Warn(id, "Failed to write response: %v", err)
		return
	}
	s.log.Info(id, "%q -> %s", requestLine, route.Status)
}

// readRequestLine returns the first line without its line terminator.
func readRequestLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Response formats a status line, Content-Length header and body.
func Response(status string, body []byte) string {
	return fmt.Sprintf("%s\r\nContent-Length: %d\r\n\r\n%s", status, len(body), body)
}
