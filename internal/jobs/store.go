package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/curatorhq/curator/internal/common"
	"github.com/curatorhq/curator/internal/models"
)

// entry is one tracked job plus its synchronization state. All field access
// goes through mu; the store-level map lock is never held while an entry is
// being mutated.
type entry struct {
	mu  sync.Mutex
	job *models.CategorizationJob

	// resumeCh is non-nil only while the job is paused. It is closed by
	// resume and by cancel, waking every worker blocked in AwaitResume.
	resumeCh chan struct{}

	// subscribers receive every snapshot in publish order. Closed after the
	// terminal snapshot is delivered.
	subscribers map[int]chan models.JobSnapshot
	nextSubID   int

	cleanup *time.Timer
}

// Store is the in-memory registry of categorization jobs. It owns every job
// record; workers and handlers hold ids and receive snapshots.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*entry
	retention time.Duration
	logger    arbor.ILogger
}

// NewStore creates a job store. Terminal jobs stay queryable for the
// retention duration, then disappear (subsequent Gets return ErrNotFound).
func NewStore(retention time.Duration, logger arbor.ILogger) *Store {
	if retention <= 0 {
		retention = 2 * time.Hour
	}
	return &Store{
		jobs:      make(map[string]*entry),
		retention: retention,
		logger:    logger,
	}
}

// Create registers a new running job and returns its id.
func (s *Store) Create(ownerID string, total int) (string, error) {
	if total <= 0 {
		return "", fmt.Errorf("%w: total must be positive, got %d", ErrInvalidArgument, total)
	}

	job := &models.CategorizationJob{
		ID:        common.NewJobID(),
		OwnerID:   ownerID,
		Status:    models.JobStatusRunning,
		Total:     total,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = &entry{
		job:         job,
		subscribers: make(map[int]chan models.JobSnapshot),
	}
	s.mu.Unlock()

	s.logger.Info().
		Str("job_id", job.ID).
		Str("owner_id", ownerID).
		Int("total", total).
		Msg("Categorization job created")

	return job.ID, nil
}

func (s *Store) get(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// Get returns the current snapshot of a job.
func (s *Store) Get(id string) (models.JobSnapshot, error) {
	e, err := s.get(id)
	if err != nil {
		return models.JobSnapshot{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.Snapshot(), nil
}

// SetCurrent records the title of the video a worker is about to classify.
// Advisory: best effort, never fails the caller.
func (s *Store) SetCurrent(id, title string) {
	e, err := s.get(id)
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.Status.IsTerminal() {
		return
	}
	e.job.CurrentVideo = title
	s.publishLocked(e)
}

// RecordResult registers one processed video. Completed counts successes and
// failures alike; failures additionally bump the failed counter. No-op once
// the job is terminal.
func (s *Store) RecordResult(id string, result models.ClassificationResult) {
	e, err := s.get(id)
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.Status.IsTerminal() {
		return
	}

	e.job.Completed++
	if !result.Success {
		e.job.Failed++
		s.logger.Debug().
			Str("job_id", id).
			Str("video_id", result.VideoID).
			Str("error", result.Error).
			Msg("Video classification failed")
	}
	e.job.CurrentVideo = ""
	s.publishLocked(e)
}

// RequestPause suspends future work on the job. In-flight classifier calls
// finish and are recorded. Idempotent while the job stays non-terminal.
func (s *Store) RequestPause(id string) error {
	e, err := s.get(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, e.job.Status)
	}
	if e.job.Paused {
		return nil
	}

	e.job.Paused = true
	e.job.Status = models.JobStatusPaused
	e.resumeCh = make(chan struct{})
	s.publishLocked(e)

	s.logger.Info().Str("job_id", id).Msg("Job paused")
	return nil
}

// RequestResume lifts a pause. Idempotent while the job stays non-terminal.
func (s *Store) RequestResume(id string) error {
	e, err := s.get(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, e.job.Status)
	}
	if !e.job.Paused {
		return nil
	}

	e.job.Paused = false
	e.job.Status = models.JobStatusRunning
	if e.resumeCh != nil {
		close(e.resumeCh)
		e.resumeCh = nil
	}
	s.publishLocked(e)

	s.logger.Info().Str("job_id", id).Msg("Job resumed")
	return nil
}

// RequestCancel asks the job to stop. Workers drain their in-flight work,
// then the engine marks the job cancelled. A paused job is woken so it can
// observe the cancellation; it is never stuck. Idempotent while pending.
func (s *Store) RequestCancel(id string) error {
	e, err := s.get(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, e.job.Status)
	}
	if e.job.CancelRequested {
		return nil
	}

	e.job.CancelRequested = true
	if e.resumeCh != nil {
		// Wake paused workers; the paused flag stays set so no further
		// progress happens before the terminal transition.
		close(e.resumeCh)
		e.resumeCh = nil
	}

	s.logger.Info().Str("job_id", id).Msg("Job cancellation requested")
	return nil
}

// CancelRequested reports whether cancellation is pending or delivered.
func (s *Store) CancelRequested(id string) bool {
	e, err := s.get(id)
	if err != nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.CancelRequested
}

// AwaitResume blocks while the job is paused. It returns as soon as the job
// is running again, the job is cancelled, or ctx is done. The entry lock is
// never held while waiting.
func (s *Store) AwaitResume(ctx context.Context, id string) error {
	for {
		e, err := s.get(id)
		if err != nil {
			return err
		}

		e.mu.Lock()
		if e.job.Status.IsTerminal() {
			e.mu.Unlock()
			return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, e.job.Status)
		}
		if e.job.CancelRequested || !e.job.Paused {
			e.mu.Unlock()
			return nil
		}
		resumeCh := e.resumeCh
		e.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-resumeCh:
			// Re-check: the wake may have been a cancel.
		}
	}
}

// MarkTerminal moves the job to a terminal status. First writer wins: the
// call is ignored if the job is already terminal. The final snapshot is
// published to all subscribers, their channels close, and retention cleanup
// is scheduled.
func (s *Store) MarkTerminal(id string, status models.JobStatus, errMsg string) {
	if !status.IsTerminal() {
		return
	}

	e, err := s.get(id)
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.Status.IsTerminal() {
		return
	}

	now := time.Now()
	e.job.Status = status
	e.job.Error = errMsg
	e.job.Paused = false
	e.job.CurrentVideo = ""
	e.job.CompletedAt = &now
	if e.resumeCh != nil {
		close(e.resumeCh)
		e.resumeCh = nil
	}

	s.publishLocked(e)
	s.closeSubscribersLocked(e)

	e.cleanup = time.AfterFunc(s.retention, func() {
		s.remove(id)
	})

	s.logger.Info().
		Str("job_id", id).
		Str("status", string(status)).
		Int("completed", e.job.Completed).
		Int("failed", e.job.Failed).
		Msg("Job finished")
}

func (s *Store) remove(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()

	s.logger.Debug().Str("job_id", id).Msg("Job record expired")
}

// Len returns the number of tracked jobs, terminal included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
