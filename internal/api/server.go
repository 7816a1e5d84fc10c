// Package api serves telemetry, UPS status and the simulated UPS override
// over HTTP.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"codeberg.org/mutker/infotainctl/internal/errors"
	"codeberg.org/mutker/infotainctl/internal/events"
	"codeberg.org/mutker/infotainctl/internal/logger"
	"codeberg.org/mutker/infotainctl/internal/supervisor"
	"codeberg.org/mutker/infotainctl/internal/telemetry"
	"codeberg.org/mutker/infotainctl/internal/ups"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// SupervisorStatus reports the power supervisor's phase.
type SupervisorStatus interface {
	Status() (supervisor.Phase, int)
}

// Deps are the components the handlers relay.
type Deps struct {
	Config     any
	Telemetry  telemetry.Snapshotter
	Warnings   *telemetry.WarningTracker
	UPS        *ups.Store
	Supervisor SupervisorStatus
	Journal    events.Journal
	Logger     logger.Logger
}

type Server struct {
	deps   Deps
	router *gin.Engine
	logger logger.Logger
}

func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	s := &Server{
		deps:   deps,
		logger: deps.Logger,
	}
	s.router = s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(accessLogger(s.logger))

	router.GET("/", s.index)
	router.GET("/api/config", s.getConfig)
	router.GET("/api/telemetry", s.getTelemetry)
	router.GET("/api/warnings", s.getWarnings)
	router.GET("/api/ups", s.getUPS)
	router.POST("/api/ups/override", s.overrideUPS)
	router.DELETE("/api/ups/override/:owner", s.releaseUPS)
	router.GET("/api/supervisor", s.getSupervisor)
	router.GET("/api/events", s.getEvents)
	router.POST("/api/control", s.control)

	return router
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errFactory := errors.New()

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}
	return s.Serve(ctx, l)
}

func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", l.Addr().String()).Msg("HTTP server listening")
		serveErr <- srv.Serve(l)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.New().Wrap(errors.ErrOperationFailed, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}
	return nil
}
