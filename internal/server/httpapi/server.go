// Package httpapi exposes the auth and bookmark services over HTTP with echo.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/dmitrijs2005/bookmarker/internal/logging"
	"github.com/labstack/echo/v4"
)

const shutdownTimeout = 10 * time.Second

// Server owns the echo instance and its listen address.
type Server struct {
	address string
	echo    *echo.Echo
	logger  logging.Logger
}

// NewServer builds the router. corsOriginPattern is a regular expression
// matched against the Origin header of cross-origin requests.
func NewServer(address, corsOriginPattern string, l logging.Logger, h *Handler) (*Server, error) {
	origins, err := regexp.Compile(corsOriginPattern)
	if err != nil {
		return nil, fmt.Errorf("cors origin pattern: %w", err)
	}

	s := &Server{
		address: address,
		echo:    echo.New(),
		logger:  l.With("module", "http_server"),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError

	s.echo.Use(middlewares(s.logger, origins)...)
	h.register(s.echo)

	return s, nil
}

// ServeHTTP lets tests drive the router without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
