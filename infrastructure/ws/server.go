package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const shutdownGrace = 5 * time.Second

// Server runs the websocket endpoints as a supervised worker.
type Server struct {
	log     *slog.Logger
	handler *Handler
	addr    string
}

func NewServer(log *slog.Logger, handler *Handler, host string, port int) *Server {
	return &Server{
		log:     log,
		handler: handler,
		addr:    fmt.Sprintf("%s:%d", host, port),
	}
}

// Run implements contract.Worker. It serves until the context is
// cancelled, then drains in-flight connections within the grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.handler.Routes(),
	}

	failed := make(chan error, 1)
	go func() {
		s.log.Info("WebSocket server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		return fmt.Errorf("websocket server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("websocket server shutdown: %w", err)
		}
		return ctx.Err()
	}
}
