package mcp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/crishurazvi/avis-diabeto/internal/cache"
	litecfg "github.com/crishurazvi/avis-diabeto/internal/config"
	"github.com/crishurazvi/avis-diabeto/internal/domain"
	"github.com/crishurazvi/avis-diabeto/internal/feedback"
	"github.com/crishurazvi/avis-diabeto/internal/logging"
	"github.com/crishurazvi/avis-diabeto/internal/report"
	"github.com/crishurazvi/avis-diabeto/internal/service"
)

// LiteServerName identifies the stdio server to MCP clients.
const LiteServerName = "avis-diabeto"

// LiteServer is the stdio MCP server that requires no external databases.
// It uses an in-memory evaluation cache and SQLite for feedback.
type LiteServer struct {
	config        *litecfg.LiteConfig
	server        *Server
	feedbackStore feedback.Store
	cache         *cache.MemoryCache
	logger        *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithFeedbackStore sets a custom feedback store.
func WithFeedbackStore(store feedback.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.feedbackStore = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, version string, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{config: cfg}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.logger == nil {
		logger, err := logging.New(cfg.Logging())
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		server.logger = logger
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	memCache, err := cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	server.cache = memCache

	if server.feedbackStore == nil {
		store, err := feedback.NewSQLiteStore(cfg.FeedbackDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create feedback store: %w", err)
		}
		server.feedbackStore = store
	}

	locale, err := domain.ParseLocale(cfg.Locale)
	if err != nil {
		return nil, err
	}

	planner := service.NewTherapyPlanner(server.logger,
		service.WithEvaluationCache(memCache, cfg.CacheTTL),
		service.WithDefaultLocale(locale),
		service.WithLetterRenderer(report.NewLetterRenderer(report.LetterOptions{Signature: cfg.LetterSignature})),
	)

	server.server = NewServer(LiteServerName, version, planner, server.logger,
		WithFeedback(server.feedbackStore, cfg.ExportDir()))

	server.logger.WithFields(logrus.Fields{
		"data_dir":  cfg.DataDir,
		"locale":    locale,
		"cache_max": cfg.CacheMaxItems,
	}).Info("Lite server initialized successfully")
	return server, nil
}

// Start serves MCP over stdio until the client disconnects or ctx is cancelled.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.Info("Starting avis-diabeto MCP server (stdio)")
	return s.server.Run(ctx)
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.feedbackStore != nil {
		if err := s.feedbackStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close feedback store")
			return err
		}
	}
	return nil
}

// GetFeedbackStore returns the feedback store for external access.
func (s *LiteServer) GetFeedbackStore() feedback.Store {
	return s.feedbackStore
}

// GetCache returns the memory cache for external access.
func (s *LiteServer) GetCache() *cache.MemoryCache {
	return s.cache
}

// Tools returns the tool server, mainly for tests.
func (s *LiteServer) Tools() *Server {
	return s.server
}
