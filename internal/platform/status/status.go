// Package status serves a read-only view of a running migration over HTTP.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/emastercard-migration/internal/platform/middleware"
)

// ProgressFunc returns the JSON-encodable progress of the run.
type ProgressFunc func() interface{}

type Server struct {
	echo   *echo.Echo
	addr   string
	logger zerolog.Logger
}

// New wires /health to health and /progress to progress.
func New(addr string, logger zerolog.Logger, health echo.HandlerFunc, progress ProgressFunc) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))

	e.GET("/health", health)
	e.GET("/progress", func(c echo.Context) error {
		return c.JSON(http.StatusOK, progress())
	})

	return &Server{echo: e, addr: addr, logger: logger}
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("starting status server")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("status server stopped")
	return nil
}
