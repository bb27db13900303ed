// Package api serves the engine to front-ends: JSON endpoints for the task
// lifecycle, session closure, and daily reports, plus a server-sent event
// feed off the stream router.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tractionhq/traction/backend/event"
	"github.com/tractionhq/traction/backend/report"
	"github.com/tractionhq/traction/backend/store"
	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/backend/tracker"
	"github.com/tractionhq/traction/shared"
)

type ServerOptions struct {
	// Registry exposes bus and engine metrics on /metrics. Nil disables the
	// endpoint.
	Registry *prometheus.Registry

	// Verifier guards /api/v1 with bearer-token auth. Nil leaves the API
	// open, which is the default for a loopback daemon.
	Verifier *TokenVerifier

	// Router feeds /api/v1/events. Nil disables the event feed.
	Router *event.EventRouter
}

// Server is the HTTP face of the engine.
type Server struct {
	engine *gin.Engine
	server *http.Server
}

func NewServer(tr *tracker.Tracker, reports *report.Aggregator, opts ServerOptions) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Registry != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}

	v1 := engine.Group("/api/v1")
	if opts.Verifier != nil {
		v1.Use(opts.Verifier.Middleware())
	}

	tasks := NewTaskHandler(tr)
	v1.POST("/sessions/:session/tasks", tasks.Create)
	v1.GET("/sessions/:session/tasks", tasks.List)
	v1.GET("/sessions/:session/tasks/:id", tasks.Get)
	v1.PATCH("/sessions/:session/tasks/:id", tasks.Refine)
	v1.POST("/sessions/:session/tasks/:id/events", tasks.ApplyEvent)
	v1.GET("/sessions/:session/tasks/:id/transitions", tasks.ListTransitions)
	v1.GET("/sessions/:session/tasks/:id/interventions", tasks.ListInterventions)

	sessions := NewSessionHandler(tr)
	v1.GET("/sessions/:session", sessions.Get)
	v1.POST("/sessions/:session/close", sessions.Close)

	reportsHandler := NewReportHandler(reports, tr.Clock())
	v1.GET("/reports/daily", reportsHandler.Daily)
	v1.GET("/reports/streak", reportsHandler.Streak)

	if opts.Router != nil {
		events := NewEventHandler(opts.Router)
		v1.GET("/events", events.Stream)
	}

	return &Server{engine: engine}
}

// Handler exposes the routed engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve accepts connections on the listener until Shutdown or a listener
// error.
func (s *Server) Serve(l net.Listener) error {
	s.server = &http.Server{Handler: s.engine}

	err := s.server.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// requestLogger logs every request through slog, keeping the daemon's log
// stream uniform with the rest of the engine.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.DebugContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// apiError maps engine failures onto HTTP statuses: unknown ids are 404,
// lifecycle rejections and closed sessions are 409, caller mistakes are 400,
// everything else is a 500.
func apiError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var terr *shared.TractionError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, task.ErrInvalidTransition),
		errors.Is(err, task.ErrImmutableRecord),
		errors.Is(err, tracker.ErrSessionClosed):
		status = http.StatusConflict
	case errors.As(err, &terr) && terr.Source == shared.ErrorSourceUser:
		status = http.StatusBadRequest
	}

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
