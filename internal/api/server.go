// Package api exposes the search pipeline over HTTP.
//
// Endpoints:
//
//   - POST /api/search — run a fresh or follow-up search.
//   - GET /api/place/:result_set_id/:place_id — look up one place from a
//     stored result set.
//   - GET /healthz, /readyz — liveness and readiness probes.
//   - GET /metrics — Prometheus scrape endpoint.
//
// Errors are rendered as RFC 7807 problem-detail JSON.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aroundmehq/aroundme/internal/health"
	"github.com/aroundmehq/aroundme/internal/observe"
	"github.com/aroundmehq/aroundme/internal/problem"
	"github.com/aroundmehq/aroundme/internal/search"
	"github.com/aroundmehq/aroundme/internal/session"
)

// Request bounds enforced before any pipeline work.
const (
	minRadiusM = 100
	maxRadiusM = 50000
	maxTopK    = 100
)

// Config wires a [Server].
type Config struct {
	Search   *search.Service
	Sessions *session.Sessions

	// Health serves the liveness and readiness probes. Nil installs a
	// handler with no readiness checks.
	Health *health.Handler

	Metrics *observe.Metrics
	Logger  *slog.Logger

	// DefaultRadiusM applies when a request carries no radius. Default: 2000.
	DefaultRadiusM int

	// DefaultPreset applies when a request names no ranking preset.
	DefaultPreset string
}

// Server is the HTTP front of the search service.
type Server struct {
	cfg    Config
	engine *gin.Engine
	logger *slog.Logger
}

// NewServer builds the router. Call [Server.Handler] for the full middleware
// stack.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Health == nil {
		cfg.Health = health.New()
	}
	if cfg.DefaultRadiusM <= 0 {
		cfg.DefaultRadiusM = 2000
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{cfg: cfg, engine: engine, logger: cfg.Logger}

	engine.POST("/api/search", s.handleSearch)
	engine.GET("/api/place/:result_set_id/:place_id", s.handlePlace)
	engine.GET("/healthz", gin.WrapF(cfg.Health.Healthz))
	engine.GET("/readyz", gin.WrapF(cfg.Health.Readyz))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// Handler returns the engine wrapped in the tracing and metrics middleware.
func (s *Server) Handler() http.Handler {
	if s.cfg.Metrics == nil {
		return s.engine
	}
	return observe.Middleware(s.cfg.Metrics)(s.engine)
}

func (s *Server) handleSearch(c *gin.Context) {
	var wire searchRequest
	if err := c.ShouldBindJSON(&wire); err != nil {
		s.writeProblem(c, problem.Validation("malformed request body: "+err.Error()))
		return
	}
	if p := wire.validate(); p != nil {
		s.writeProblem(c, p)
		return
	}

	req := wire.toRequest(s.cfg.DefaultRadiusM, s.cfg.DefaultPreset)
	resp, err := s.cfg.Search.Search(c.Request.Context(), req)
	if err != nil {
		traceID := observe.CorrelationID(c.Request.Context())
		s.logger.Error("search failed", "trace_id", traceID, "error", err)
		s.writeProblem(c, problem.FromError(err, traceID))
		return
	}

	c.JSON(http.StatusOK, searchResponse{
		Places:      placeViews(resp.Places),
		Debug:       resp.Debug,
		ResultSetID: resp.ResultSetID,
	})
}

func (s *Server) handlePlace(c *gin.Context) {
	resultSetID := c.Param("result_set_id")
	placeID := c.Param("place_id")

	rs, err := s.cfg.Sessions.ResultSet(c.Request.Context(), resultSetID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeProblem(c, problem.NotFound("result set not found or expired").
				WithExtension("result_set_id", resultSetID))
			return
		}
		traceID := observe.CorrelationID(c.Request.Context())
		s.logger.Error("result set lookup failed", "trace_id", traceID, "error", err)
		s.writeProblem(c, problem.FromError(err, traceID))
		return
	}

	for _, sp := range rs.Places {
		if sp.Fused.ID == placeID {
			c.JSON(http.StatusOK, placeView(sp))
			return
		}
	}
	s.writeProblem(c, problem.NotFound("place not found in result set").
		WithExtension("result_set_id", resultSetID).
		WithExtension("place_id", placeID))
}

// writeProblem renders p with the problem-detail media type.
func (s *Server) writeProblem(c *gin.Context, p *problem.Problem) {
	if p.TraceID == "" {
		p.TraceID = observe.CorrelationID(c.Request.Context())
	}
	body, err := json.Marshal(p)
	if err != nil {
		c.String(http.StatusInternalServerError, "internal error")
		c.Abort()
		return
	}
	c.Data(p.Status, problem.ContentType, body)
	c.Abort()
}
