// Package server hosts the HTTP surface of the analysis service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/ayatoki/kiroku/analyzer"
	"github.com/ayatoki/kiroku/internal/profile"
	"github.com/ayatoki/kiroku/store"
)

// Server hosts the analysis HTTP API.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

// NewServer creates the echo server and registers all routes.
func NewServer(profile *profile.Profile, store *store.Store, engine *analyzer.Engine) (*Server, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		Profile:    profile,
		Store:      store,
		echoServer: e,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/healthz", s.healthzHandler)

	apiV1 := NewAPIV1Service(profile, store, engine)
	apiV1.Register(e)

	return s, nil
}

// Start runs the HTTP listener until Shutdown or a listener error.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", slog.String("address", address))
	return s.echoServer.Start(address)
}

// Shutdown drains in-flight requests and closes the history store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			slog.Error("failed to close store", slog.String("error", err.Error()))
		}
	}
	slog.Info("kiroku stopped properly")
}

func (s *Server) healthzHandler(c echo.Context) error {
	return c.String(http.StatusOK, "Service ready.")
}
