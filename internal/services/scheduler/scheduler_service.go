package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/curatorhq/curator/internal/common"
	"github.com/curatorhq/curator/internal/interfaces"
	"github.com/curatorhq/curator/internal/jobs"
)

// Service runs scheduled categorization of the backlog. On each tick it
// collects uncategorized videos for the configured owner and starts a batch
// job over them, skipping the tick when the backlog is empty.
type Service struct {
	cron    *cron.Cron
	engine  *jobs.Engine
	storage interfaces.StorageManager
	config  common.ProcessingConfig
	logger  arbor.ILogger
	entryID cron.EntryID
}

// NewService creates the scheduler. Call Start to begin ticking.
func NewService(engine *jobs.Engine, storage interfaces.StorageManager, config common.ProcessingConfig, logger arbor.ILogger) *Service {
	return &Service{
		cron:    cron.New(),
		engine:  engine,
		storage: storage,
		config:  config,
		logger:  logger,
	}
}

// Start registers the cron entry and begins the schedule. A disabled config
// is not an error; Start just does nothing.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Debug().Msg("Scheduled processing disabled")
		return nil
	}

	if err := common.ValidateJobSchedule(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid processing schedule: %w", err)
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, s.runScheduledJob)
	if err != nil {
		return fmt.Errorf("failed to register processing schedule: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.config.Schedule).
		Str("owner_id", s.config.Owner).
		Int("limit", s.config.Limit).
		Msg("Scheduled processing started")

	return nil
}

// Stop halts the schedule and waits for a running tick to finish.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Debug().Msg("Scheduled processing stopped")
}

// runScheduledJob is one tick: gather the backlog and start a job over it.
func (s *Service) runScheduledJob() {
	ctx := context.Background()

	videos, err := s.storage.VideoStorage().ListUncategorized(ctx, s.config.Owner, s.config.Limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled run failed to list uncategorized videos")
		return
	}
	if len(videos) == 0 {
		s.logger.Debug().Str("owner_id", s.config.Owner).Msg("Scheduled run found no uncategorized videos")
		return
	}

	videoIDs := make([]string, len(videos))
	for i, v := range videos {
		videoIDs[i] = v.ID
	}

	jobID, err := s.engine.Start(ctx, s.config.Owner, videoIDs, 0)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled run failed to start categorization job")
		return
	}

	s.logger.Info().
		Str("job_id", jobID).
		Int("total", len(videoIDs)).
		Msg("Scheduled categorization job started")
}
