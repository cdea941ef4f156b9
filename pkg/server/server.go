// Package server owns the TCP lifecycle: the accept loop, the bounded worker
// pool, the per-connection sessions and the shutdown ordering. The HTTP
// semantics live in pkg/httpwire and pkg/handler; this package only moves
// bytes and goroutines.
package server

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/filedepot/filedepot/pkg/handler"
)

// workerPoolSize bounds the number of concurrently served connections.
// Accepted connections beyond the bound wait for a free worker.
const workerPoolSize = 10

// drainTimeout is how long Shutdown waits for in-flight sessions before
// force-closing their connections.
const drainTimeout = 10 * time.Second

var (
	ErrAlreadyRunning = errors.New("the server is already running")
	ErrNotRunning     = errors.New("the server is not running")
)

// Config holds the frozen settings of a Server.
type Config struct {
	Host string
	Port int
	// Version is the HTTP version the server speaks, e.g. "HTTP/1.1".
	Version string
	// ServerName is emitted in the Server response header.
	ServerName string
	// NetworkTimeout is the per-operation read/write deadline on client
	// connections. Zero disables the deadlines.
	NetworkTimeout time.Duration
	Logger         zerolog.Logger
}

// Endpoint binds a root path to its router and the close function invoked on
// shutdown, typically the store flush.
type Endpoint struct {
	Router *handler.Router
	Close  func() error
}

// Server accepts connections and hands them to sessions drawn from the
// worker pool.
type Server struct {
	config    Config
	endpoints map[string]*handler.Router
	closers   map[string]func() error
	logger    zerolog.Logger
	workers   *semaphore.Weighted
	inFlight  atomic.Int64

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	running  bool
}

func New(config Config, endpoints map[string]Endpoint) *Server {
	routers := make(map[string]*handler.Router, len(endpoints))
	closers := make(map[string]func() error, len(endpoints))
	for root, endpoint := range endpoints {
		routers[root] = endpoint.Router
		if endpoint.Close != nil {
			closers[root] = endpoint.Close
		}
	}
	return &Server{
		config:    config,
		endpoints: routers,
		closers:   closers,
		logger:    config.Logger.With().Str("component", "server").Logger(),
		workers:   semaphore.NewWeighted(workerPoolSize),
		conns:     make(map[net.Conn]struct{}),
	}
}

// Start binds the listening socket and launches the accept loop.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := NewListener(addr, s.config.NetworkTimeout, s.config.NetworkTimeout)
	if err != nil {
		return err
	}
	s.listener = listener
	s.running = true
	go s.acceptLoop(listener)

	s.logger.Info().Str("addr", addr).Msg("server started")
	return nil
}

func (s *Server) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.Running() {
				s.logger.Error().Err(err).Msg("accept failed")
				continue
			}
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		go s.handle(conn)
	}
}

// handle waits for a free worker, then runs the session. The wait queues
// connections beyond the pool bound instead of rejecting them.
func (s *Server) handle(conn net.Conn) {
	if err := s.workers.Acquire(context.Background(), 1); err != nil {
		s.release(conn)
		return
	}
	defer s.workers.Release(1)

	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	newSession(s, conn).serve()
}

// release closes a connection and drops it from the active set.
func (s *Server) release(conn net.Conn) {
	conn.Close()
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// Shutdown stops accepting, drains the worker pool for up to ten seconds,
// force-closes lingering connections and flushes every endpoint.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	listener.Close()

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := s.workers.Acquire(ctx, workerPoolSize); err != nil {
		s.logger.Warn().Msg("drain deadline exceeded, closing remaining connections")
	} else {
		s.workers.Release(workerPoolSize)
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
		delete(s.conns, conn)
	}
	s.mu.Unlock()

	var flushErr error
	for root, closeEndpoint := range s.closers {
		if err := closeEndpoint(); err != nil {
			s.logger.Error().Str("root", root).Err(err).Msg("endpoint close failed")
			flushErr = err
		}
	}

	s.logger.Info().Msg("server stopped")
	return flushErr
}

// Restart performs a shutdown followed by a start on the same address.
func (s *Server) Restart() error {
	if err := s.Shutdown(); err != nil {
		return err
	}
	return s.Start()
}

// Running reports whether the accept loop is live.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the bound listen address while the server runs, otherwise
// the configured one. The two differ when the configured port is zero.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// InFlight returns the number of sessions currently holding a worker.
func (s *Server) InFlight() int64 {
	return s.inFlight.Load()
}

// Connections returns the remote addresses of the active connections.
func (s *Server) Connections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	remotes := make([]string, 0, len(s.conns))
	for conn := range s.conns {
		remotes = append(remotes, conn.RemoteAddr().String())
	}
	return remotes
}
