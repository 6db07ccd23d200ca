package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultReadHeaderTimeout is the read header timeout of the HTTP servers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout is the write timeout of the HTTP servers.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the idle timeout of the HTTP servers.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful server shutdown.
	DefaultShutdownTimeout = 30 * time.Second
)

// httpServer is the listener handling shared by the health and metrics
// servers.
type httpServer struct {
	name string
	srv  *http.Server

	mu   sync.Mutex
	ln   net.Listener
	addr string
}

func newHTTPServer(name, addr string, handler http.Handler) *httpServer {
	return &httpServer{
		name: name,
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
	}
}

// Listen binds the address. After Listen, Addr returns the bound address,
// which matters for ":0".
func (s *httpServer) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.ln = ln
	s.addr = ln.Addr().String()
	return nil
}

// Start listens if needed and serves until Shutdown. It blocks and returns
// nil after a graceful shutdown.
func (s *httpServer) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	slog.Info("starting "+s.name+" server", "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *httpServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	started := s.ln != nil
	s.mu.Unlock()

	if !started {
		return nil
	}
	slog.Info("shutting down " + s.name + " server")
	return s.srv.Shutdown(ctx)
}

// Addr returns the configured address, or the bound address once listening.
func (s *httpServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
