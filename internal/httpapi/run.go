package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Serve listens on addr and serves the router until ctx is cancelled, then
// shuts down, giving in-flight requests up to timeout to finish.
func (s *Server) Serve(ctx context.Context, addr string, timeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.serve(ctx, ln, timeout)
}

func (s *Server) serve(ctx context.Context, ln net.Listener, timeout time.Duration) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	s.Logger.Info().Str("addr", ln.Addr().String()).Str("version", s.Version).Msg("pantry listening")

	select {
	case <-ctx.Done():
		s.Logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	case err := <-serverErr:
		return err
	}
}
