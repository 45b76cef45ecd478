package introspect

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dshills/switchboard"
)

// Server runs the introspection handler on a loopback listener.
type Server struct {
	addr    string
	handler http.Handler
	logger  zerolog.Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan error
}

// NewServer creates a server for in at addr. The orchestrator collector is
// registered on a private Prometheus registry.
func NewServer(addr string, in *switchboard.Introspector, collector prometheus.Collector, logger zerolog.Logger) (*Server, error) {
	reg := prometheus.NewRegistry()
	if collector != nil {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	logger = logger.With().Str("component", "introspect").Logger()
	return &Server{
		addr:    addr,
		handler: NewHandler(in, reg, logger),
		logger:  logger,
	}, nil
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("introspection server already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan error, 1)

	go func(srv *http.Server, done chan<- error) {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}(s.srv, s.done)

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("introspection server listening")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-done
}
