// Package api exposes the triage service over HTTP: direct evaluation for
// integrators, a session-based interview flow, and a websocket chat
// transport.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/msk-triage-server/internal/agent"
	"github.com/msk-triage-server/internal/domain"
	"github.com/msk-triage-server/internal/feedback"
	"github.com/msk-triage-server/internal/middleware"
	"github.com/msk-triage-server/internal/repository"
	"github.com/msk-triage-server/internal/session"
)

// Server represents the HTTP server
type Server struct {
	cfg      *domain.Config
	log      *logrus.Logger
	router   *gin.Engine
	server   *http.Server
	registry domain.SpecSource
	engine   domain.Evaluator
	sessions session.Store
	reports  *repository.ReportRepository
	feedback feedback.Store
	triage   *agent.TriageAgent
	summary  *agent.SummaryAgent
	referral *agent.ReferralAgent
}

// Deps carries the collaborators the server routes requests to. Reports
// may be nil when no PostgreSQL archive is configured; report retrieval
// then renders on demand. Feedback may be nil when clinician review is
// not enabled.
type Deps struct {
	Registry domain.SpecSource
	Engine   domain.Evaluator
	Sessions session.Store
	Reports  *repository.ReportRepository
	Feedback feedback.Store
	Triage   *agent.TriageAgent
	Summary  *agent.SummaryAgent
	Referral *agent.ReferralAgent
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *domain.Config, deps Deps, logger *logrus.Logger) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	if cfg.Server.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateBurst)
		router.Use(limiter.Middleware())
	}

	s := &Server{
		cfg:      cfg,
		log:      logger,
		router:   router,
		registry: deps.Registry,
		engine:   deps.Engine,
		sessions: deps.Sessions,
		reports:  deps.Reports,
		feedback: deps.Feedback,
		triage:   deps.Triage,
		summary:  deps.Summary,
		referral: deps.Referral,
	}
	s.setupRoutes()
	return s
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/questionnaires", s.handleListQuestionnaires)
		v1.POST("/evaluate", s.handleEvaluate)
		v1.POST("/sessions", s.handleCreateSession)
		v1.GET("/sessions", s.handleListSessions)
		v1.GET("/sessions/:id", s.handleGetSession)
		v1.POST("/sessions/:id/messages", s.handlePostMessage)
		v1.GET("/sessions/:id/report", s.handleGetReport)
		v1.POST("/sessions/:id/feedback", s.handlePostFeedback)
		v1.GET("/feedback", s.handleListFeedback)
		v1.GET("/reports", s.handleListReports)
		v1.GET("/reports/stats", s.handleReportStats)
		v1.GET("/reports/:id", s.handleGetReportByID)
	}

	s.router.GET("/ws/chat", s.handleChatSocket)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"timestamp":      time.Now().UTC(),
		"questionnaires": s.registry.Available(),
	})
}
