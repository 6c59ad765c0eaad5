package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
	"github.com/crishurazvi/avis-diabeto/internal/feedback"
	"github.com/crishurazvi/avis-diabeto/internal/middleware"
	"github.com/crishurazvi/avis-diabeto/internal/repository"
	"github.com/crishurazvi/avis-diabeto/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// EvaluationStore persists the audit form of evaluations.
type EvaluationStore interface {
	Create(ctx context.Context, rec *repository.EvaluationRecord) error
	GetByID(ctx context.Context, id string) (*repository.EvaluationRecord, error)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	planner       *service.TherapyPlanner
	feedback      feedback.Store
	evaluations   EvaluationStore
	limiter       *middleware.RateLimiter
	checks        map[string]HealthCheck
	router        *gin.Engine
	server        *http.Server
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithFeedbackStore enables the feedback endpoints.
func WithFeedbackStore(store feedback.Store) Option {
	return func(s *Server) { s.feedback = store }
}

// WithEvaluationStore records every evaluation and enables GET /api/v1/evaluations/:id.
func WithEvaluationStore(store EvaluationStore) Option {
	return func(s *Server) { s.evaluations = store }
}

// WithHealthCheck adds a named dependency probe to /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, planner *service.TherapyPlanner, logger *logrus.Logger, opts ...Option) *Server {
	s := &Server{
		configManager: configManager,
		logger:        logger,
		planner:       planner,
		checks:        make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(s)
	}

	cfg := configManager.GetConfig()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(logger))
	if cfg.RateLimit.Enabled {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit, logger)
		router.Use(s.limiter.Middleware())
	}
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	s.router = router
	s.setupRoutes()

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	if s.limiter != nil {
		go s.cleanupLimiter(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) cleanupLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Cleanup(); n > 0 {
				s.logger.WithField("removed", n).Debug("Pruned idle rate limit clients")
			}
		}
	}
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/evaluate", s.handleEvaluate)
		v1.POST("/letter", s.handleLetter)
		v1.GET("/rules", s.handleListRules)
		v1.GET("/drug-classes", s.handleListDrugClasses)
		v1.GET("/drug-classes/:class", s.handleGetDrugClass)

		if s.evaluations != nil {
			v1.GET("/evaluations/:id", s.handleGetEvaluation)
		}

		if s.feedback != nil {
			v1.POST("/feedback", s.handleSubmitFeedback)
			v1.GET("/feedback", s.handleListFeedback)
			v1.GET("/feedback/summary", s.handleFeedbackSummary)
		}
	}
}
