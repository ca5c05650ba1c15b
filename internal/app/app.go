package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/curatorhq/curator/internal/common"
	"github.com/curatorhq/curator/internal/handlers"
	"github.com/curatorhq/curator/internal/interfaces"
	"github.com/curatorhq/curator/internal/jobs"
	"github.com/curatorhq/curator/internal/services/classifier"
	"github.com/curatorhq/curator/internal/services/events"
	"github.com/curatorhq/curator/internal/services/scheduler"
	"github.com/curatorhq/curator/internal/services/taxonomy"
	"github.com/curatorhq/curator/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	// Classification pipeline
	TaxonomyService *taxonomy.Service
	Classifier      interfaces.Classifier

	// Job engine
	EventService interfaces.EventService
	JobStore     *jobs.Store
	JobEngine    *jobs.Engine

	// Scheduled backlog processing
	SchedulerService *scheduler.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	JobHandler      *handlers.JobHandler
	StreamHandler   *handlers.StreamHandler
	VideoHandler    *handlers.VideoHandler
	TaxonomyHandler *handlers.TaxonomyHandler
	WSHandler       *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	taxonomyService, err := taxonomy.NewService(cfg.Taxonomy.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	app.TaxonomyService = taxonomyService

	llmClassifier, err := classifier.NewClassifier(cfg, taxonomyService.Categories(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}
	app.Classifier = llmClassifier

	app.EventService = events.NewService(logger)

	retention := common.Duration(cfg.Jobs.Retention, 2*time.Hour)
	app.JobStore = jobs.NewStore(retention, logger)
	app.JobEngine = jobs.NewEngine(app.JobStore, app.StorageManager, app.Classifier, app.EventService, jobs.EngineOptions{
		DefaultConcurrency: cfg.Jobs.Concurrency,
		MaxConcurrency:     cfg.Jobs.MaxConcurrency,
	}, logger)

	app.SchedulerService = scheduler.NewService(app.JobEngine, app.StorageManager, cfg.Processing, logger)

	heartbeat := common.Duration(cfg.Jobs.HeartbeatInterval, 2*time.Second)
	app.APIHandler = handlers.NewAPIHandler()
	app.StreamHandler = handlers.NewStreamHandler(app.JobStore, heartbeat, logger)
	app.JobHandler = handlers.NewJobHandler(app.JobEngine, app.StorageManager, app.EventService, app.StreamHandler, logger)
	app.VideoHandler = handlers.NewVideoHandler(app.StorageManager, logger)
	app.TaxonomyHandler = handlers.NewTaxonomyHandler(app.StorageManager, taxonomyService, logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, cfg.WebSocket, logger)
	app.WSHandler.SubscribeToJobEvents()

	if err := app.SchedulerService.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info().
		Str("provider", app.Classifier.Provider()).
		Int("categories", len(taxonomyService.Categories())).
		Msg("Application initialized")

	return app, nil
}

// Close shuts down application components in reverse dependency order.
func (a *App) Close() error {
	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	a.Logger.Info().Msg("Application closed")
	return nil
}
