package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/curatorhq/curator/internal/common"
	"github.com/curatorhq/curator/internal/interfaces"
	"github.com/curatorhq/curator/internal/models"
)

// EngineOptions bound the worker pool. Zero values fall back to the
// defaults matching the service configuration.
type EngineOptions struct {
	DefaultConcurrency int // Workers per job when the request doesn't say (default 10)
	MaxConcurrency     int // Hard cap on requested worker counts (default 50)
}

// Engine runs batch categorization jobs: a bounded worker pool per job that
// pulls video ids off a queue, classifies each one, persists the outcome and
// feeds progress back into the Store.
type Engine struct {
	store      *Store
	storage    interfaces.StorageManager
	classifier interfaces.Classifier
	events     interfaces.EventService
	opts       EngineOptions
	logger     arbor.ILogger
}

// NewEngine wires the job engine. All collaborators are required except
// events, which may be nil when nothing listens.
func NewEngine(store *Store, storage interfaces.StorageManager, classifier interfaces.Classifier, events interfaces.EventService, opts EngineOptions, logger arbor.ILogger) *Engine {
	if opts.DefaultConcurrency <= 0 {
		opts.DefaultConcurrency = 10
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 50
	}
	return &Engine{
		store:      store,
		storage:    storage,
		classifier: classifier,
		events:     events,
		opts:       opts,
		logger:     logger,
	}
}

// Store exposes the job store for handlers (control operations, snapshots,
// subscriptions).
func (e *Engine) Store() *Store {
	return e.store
}

// Start creates a job over videoIDs and returns its id immediately; the
// work happens on background goroutines. concurrency <= 0 selects the
// default; anything above the cap is clamped, never rejected.
func (e *Engine) Start(ctx context.Context, ownerID string, videoIDs []string, concurrency int) (string, error) {
	if len(videoIDs) == 0 {
		return "", fmt.Errorf("%w: no videos to categorize", ErrInvalidArgument)
	}

	workers := concurrency
	if workers <= 0 {
		workers = e.opts.DefaultConcurrency
	}
	if workers > e.opts.MaxConcurrency {
		workers = e.opts.MaxConcurrency
	}
	if workers > len(videoIDs) {
		workers = len(videoIDs)
	}

	jobID, err := e.store.Create(ownerID, len(videoIDs))
	if err != nil {
		return "", err
	}

	e.publishEvent(ctx, interfaces.EventJobCreated, jobID)

	queue := make(chan string, len(videoIDs))
	for _, id := range videoIDs {
		queue <- id
	}
	close(queue)

	e.logger.Info().
		Str("job_id", jobID).
		Int("total", len(videoIDs)).
		Int("workers", workers).
		Msg("Starting categorization job")

	// The job outlives the request that started it. Detach from the caller's
	// context so a finished HTTP handler cannot abort the workers; values
	// (trace ids) carry over, cancellation does not.
	jobCtx := context.WithoutCancel(ctx)
	common.SafeGoWithContext(jobCtx, e.logger, "job-supervisor:"+jobID, func() {
		e.run(jobCtx, jobID, queue, workers)
	})

	return jobID, nil
}

// run drives one job to a terminal state.
func (e *Engine) run(ctx context.Context, jobID string, queue <-chan string, workers int) {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		worker := i
		common.SafeGo(e.logger, fmt.Sprintf("job-worker:%s:%d", jobID, worker), func() {
			defer wg.Done()
			e.workerLoop(ctx, jobID, queue)
		})
	}
	wg.Wait()

	snapshot, err := e.store.Get(jobID)
	if err != nil {
		return
	}

	switch {
	case e.store.CancelRequested(jobID) && snapshot.Completed < snapshot.Total:
		e.store.MarkTerminal(jobID, models.JobStatusCancelled, "")
		e.publishEvent(ctx, interfaces.EventJobCancelled, jobID)
	case ctx.Err() != nil && snapshot.Completed < snapshot.Total:
		e.store.MarkTerminal(jobID, models.JobStatusError, fmt.Sprintf("job aborted: %v", ctx.Err()))
		e.publishEvent(ctx, interfaces.EventJobFailed, jobID)
	default:
		e.store.MarkTerminal(jobID, models.JobStatusCompleted, "")
		e.publishEvent(ctx, interfaces.EventJobCompleted, jobID)
	}
}

// workerLoop pulls video ids until the queue drains, cancellation is
// observed, or the context ends. The pause gate sits before every pull, so a
// paused job has no in-flight classifier calls once current ones finish.
func (e *Engine) workerLoop(ctx context.Context, jobID string, queue <-chan string) {
	for {
		if err := e.store.AwaitResume(ctx, jobID); err != nil {
			return
		}
		if e.store.CancelRequested(jobID) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case videoID, ok := <-queue:
			if !ok {
				return
			}
			e.processVideo(ctx, jobID, videoID)
			e.publishEvent(ctx, interfaces.EventJobProgress, jobID)
		}
	}
}

// processVideo classifies and persists one video. Every failure is recorded
// against the job and swallowed; the job always moves on.
func (e *Engine) processVideo(ctx context.Context, jobID, videoID string) {
	video, err := e.storage.VideoStorage().GetVideo(ctx, videoID)
	if err != nil {
		e.store.RecordResult(jobID, models.ClassificationResult{
			VideoID: videoID,
			Error:   err.Error(),
		})
		return
	}

	e.store.SetCurrent(jobID, video.Title)

	classification, err := e.classifier.Classify(ctx, video)
	if err != nil {
		e.store.RecordResult(jobID, models.ClassificationResult{
			VideoID: videoID,
			Error:   err.Error(),
		})
		return
	}

	categoryIDs, tagIDs, err := e.persistClassification(ctx, videoID, classification)
	if err != nil {
		e.store.RecordResult(jobID, models.ClassificationResult{
			VideoID: videoID,
			Error:   err.Error(),
		})
		return
	}

	e.store.RecordResult(jobID, models.ClassificationResult{
		VideoID:     videoID,
		CategoryIDs: categoryIDs,
		TagIDs:      tagIDs,
		Success:     true,
	})
}

// persistClassification resolves category and tag names to stored records
// and applies them to the video.
func (e *Engine) persistClassification(ctx context.Context, videoID string, classification *models.Classification) ([]string, []string, error) {
	taxonomy := e.storage.TaxonomyStorage()

	categoryIDs := make([]string, 0, len(classification.Categories()))
	for _, name := range classification.Categories() {
		category, err := taxonomy.GetOrCreateCategory(ctx, name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve category %q: %w", name, err)
		}
		categoryIDs = append(categoryIDs, category.ID)
	}

	tagIDs := make([]string, 0, len(classification.Tags))
	for _, name := range classification.Tags {
		tag, err := taxonomy.GetOrCreateTag(ctx, name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve tag %q: %w", name, err)
		}
		tagIDs = append(tagIDs, tag.ID)
	}

	if err := e.storage.VideoStorage().ApplyCategorization(ctx, videoID, categoryIDs, tagIDs); err != nil {
		return nil, nil, err
	}

	return categoryIDs, tagIDs, nil
}

func (e *Engine) publishEvent(ctx context.Context, eventType interfaces.EventType, jobID string) {
	if e.events == nil {
		return
	}

	snapshot, err := e.store.Get(jobID)
	if err != nil {
		return
	}

	if err := e.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: snapshot}); err != nil {
		e.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to publish job event")
	}
}
