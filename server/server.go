// Package server assembles the echo HTTP server, the API surface, and the
// background reaper into one lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/hilite/wingman/internal/profile"
	"github.com/hilite/wingman/server/internal/observability"
	apiv1 "github.com/hilite/wingman/server/router/api/v1"
	"github.com/hilite/wingman/server/service/dialog"
	"github.com/hilite/wingman/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer    *echo.Echo
	dialogService *dialog.Service
}

func NewServer(ctx context.Context, p *profile.Profile, st *store.Store, dialogService *dialog.Service) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.Recover())
	e.Use(requestLogger())

	s := &Server{
		Profile:       p,
		Store:         st,
		echoServer:    e,
		dialogService: dialogService,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	apiv1.NewAPIV1Service(p, st, dialogService).Register(e)

	return s, nil
}

// Start launches the reaper loop and the HTTP listener. It returns once the
// listener is running or failed to bind.
func (s *Server) Start(ctx context.Context) error {
	s.dialogService.Reaper().Start(ctx, s.Profile.ReaperInterval)

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	errCh := make(chan error, 1)
	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(200 * time.Millisecond):
		slog.Info("server started", slog.String("address", address), slog.String("mode", s.Profile.Mode))
		return nil
	}
}

// Shutdown drains in-flight requests, stops the reaper, and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server", slog.String("error", err.Error()))
	}

	s.dialogService.Reaper().Stop()

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", slog.String("error", err.Error()))
	}

	slog.Info("server shut down")
}

// requestLogger attaches a request-scoped logging context and emits one
// structured line per request.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqCtx := observability.NewRequestContext(slog.Default(), c.Request().Method+" "+c.Path(), 0)
			c.SetRequest(c.Request().WithContext(
				observability.WithRequestContext(c.Request().Context(), reqCtx)))

			err := next(c)

			attrs := []slog.Attr{
				slog.String("uri", c.Request().RequestURI),
				slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
			}
			if err != nil {
				reqCtx.Error("request failed", err, attrs...)
				return err
			}
			reqCtx.Info("request completed",
				append(attrs, slog.Int("status", c.Response().Status))...)
			return nil
		}
	}
}
