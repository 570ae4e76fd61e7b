package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

const defaultShutdownTimeout = 30 * time.Second

// OnShutdown registers fn to run once the server has stopped accepting
// connections. Hooks run in registration order.
func (s *Server) OnShutdown(fn func()) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Shutdown gracefully shuts down the server.
// If the server hasn't been started, this is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	hs := s.httpSrv
	s.mu.RUnlock()

	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}

// Addr returns the address the server is listening on, or "" before start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ListenAndServeWithShutdown serves until SIGINT or SIGTERM, then drains
// in-flight requests.
func (s *Server) ListenAndServeWithShutdown() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve listens on the configured address until ctx is done or Shutdown is
// called. Shutdown hooks run before it returns.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))

	// Listen first so Addr reports the real port when configured with 0.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpSrv = hs
	s.listener = listener
	s.mu.Unlock()
	defer s.runHooks()

	served := make(chan error, 1)
	go func() {
		err := hs.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		served <- err
	}()

	s.logger.Info("server started", "addr", listener.Addr().String())
	close(s.ready)

	select {
	case err := <-served:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
	defer cancel()

	if err := hs.Shutdown(drainCtx); err != nil {
		s.logger.Error("shutdown failed", "error", err)
		return err
	}
	<-served

	s.logger.Info("server shutdown complete")
	return nil
}

func (s *Server) shutdownTimeout() time.Duration {
	if d := s.cfg.Server.ShutdownTimeout; d > 0 {
		return d
	}
	return defaultShutdownTimeout
}

func (s *Server) runHooks() {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}
