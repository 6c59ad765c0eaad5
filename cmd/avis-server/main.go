// Command avis-server serves the therapy rule engine over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/crishurazvi/avis-diabeto/internal/api"
	"github.com/crishurazvi/avis-diabeto/internal/cache"
	"github.com/crishurazvi/avis-diabeto/internal/config"
	"github.com/crishurazvi/avis-diabeto/internal/database"
	"github.com/crishurazvi/avis-diabeto/internal/domain"
	"github.com/crishurazvi/avis-diabeto/internal/feedback"
	"github.com/crishurazvi/avis-diabeto/internal/logging"
	"github.com/crishurazvi/avis-diabeto/internal/report"
	"github.com/crishurazvi/avis-diabeto/internal/repository"
	"github.com/crishurazvi/avis-diabeto/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "avis-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	configManager, err := config.NewManager()
	if err != nil {
		return err
	}
	if err := configManager.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg := configManager.GetConfig()

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	if configManager.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []api.Option

	if cfg.Database.Enabled() {
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		migrations, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			return err
		}
		if err := migrations.Up(ctx); err != nil {
			migrations.Close()
			return err
		}
		migrations.Close()

		store, err := feedback.NewPostgresStoreFromURL(configManager.GetDatabaseURL(), cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		opts = append(opts,
			api.WithEvaluationStore(repository.NewEvaluationRepository(db.Pool, logger)),
			api.WithFeedbackStore(store),
			api.WithHealthCheck("database", db.Health),
		)
	} else {
		store, err := feedback.NewSQLiteStore(cfg.Feedback.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, api.WithFeedbackStore(store))
		logger.WithField("path", cfg.Feedback.SQLitePath).Info("No database configured, using SQLite feedback store")
	}

	locale, err := domain.ParseLocale(cfg.Engine.DefaultLocale)
	if err != nil {
		return err
	}
	plannerOpts := []service.PlannerOption{
		service.WithDefaultLocale(locale),
		service.WithLetterRenderer(report.NewLetterRenderer(report.LetterOptions{
			Signature: cfg.Engine.LetterSignature,
			Footer:    cfg.Engine.LetterFooter,
		})),
	}

	if cfg.Cache.Enabled {
		evalCache, closeCache, check, err := buildCache(cfg.Cache, logger)
		if err != nil {
			return err
		}
		defer closeCache()
		plannerOpts = append(plannerOpts, service.WithEvaluationCache(evalCache, cfg.Cache.DefaultTTL))
		if check != nil {
			opts = append(opts, api.WithHealthCheck("redis", check))
		}
	}

	planner := service.NewTherapyPlanner(logger, plannerOpts...)
	server := api.NewServer(configManager, planner, logger, opts...)

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
	}).Info("Starting avis-diabeto HTTP server")

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// buildCache returns the in-process cache, fronting Redis when a URL is configured.
func buildCache(cfg domain.CacheConfig, logger *logrus.Logger) (domain.EvaluationCache, func(), api.HealthCheck, error) {
	memory, err := cache.NewMemoryCache(cfg.MaxItems, cfg.DefaultTTL)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.RedisURL == "" {
		return memory, func() { memory.Close() }, nil, nil
	}

	redisCache, err := cache.NewRedisCache(cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, continuing with memory cache only")
		return memory, func() { memory.Close() }, nil, nil
	}
	tiered := cache.NewTieredCache(memory, redisCache, logger)
	return tiered, func() { tiered.Close() }, redisCache.Ping, nil
}
