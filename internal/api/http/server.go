package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const serverTimeout = 15 * time.Second

// Server serves the status router in the background.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
	errs   chan error
}

func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  serverTimeout,
			WriteTimeout: serverTimeout,
			IdleTimeout:  serverTimeout,
		},
		logger: logger,
		errs:   make(chan error, 1),
	}
}

// Start binds the address and serves until Shutdown. Bind errors are
// returned directly.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("status server starting", "address", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", "error", err)
			s.errs <- err
		}
		close(s.errs)
	}()
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("status server stopped")
	return <-s.errs
}
