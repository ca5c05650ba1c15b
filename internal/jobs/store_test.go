package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/curatorhq/curator/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(time.Hour, arbor.NewLogger())
}

func successResult(videoID string) models.ClassificationResult {
	return models.ClassificationResult{VideoID: videoID, Success: true}
}

func failureResult(videoID string) models.ClassificationResult {
	return models.ClassificationResult{VideoID: videoID, Error: "classification timeout"}
}

func TestCreateRejectsNonPositiveTotal(t *testing.T) {
	store := newTestStore(t)

	for _, total := range []int{0, -1} {
		_, err := store.Create("local", total)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
	assert.Equal(t, 0, store.Len())
}

func TestGetUnknownJob(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("job_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordResultCounters(t *testing.T) {
	store := newTestStore(t)
	id, err := store.Create("local", 3)
	require.NoError(t, err)

	store.SetCurrent(id, "first video")
	snap, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "first video", snap.CurrentVideo)

	store.RecordResult(id, successResult("v1"))
	store.RecordResult(id, failureResult("v2"))

	snap, err = store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Completed)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 3, snap.Total)
	assert.Empty(t, snap.CurrentVideo)
	assert.True(t, snap.Failed <= snap.Completed && snap.Completed <= snap.Total)
}

func TestRecordResultAfterTerminalIsNoop(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.Create("local", 2)

	store.RecordResult(id, successResult("v1"))
	store.MarkTerminal(id, models.JobStatusCancelled, "")

	store.RecordResult(id, successResult("v2"))
	store.SetCurrent(id, "late")

	snap, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Completed)
	assert.Equal(t, models.JobStatusCancelled, snap.Status)
	assert.Empty(t, snap.CurrentVideo)
}

func TestPauseResumeLifecycle(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.Create("local", 5)

	require.NoError(t, store.RequestPause(id))
	snap, _ := store.Get(id)
	assert.Equal(t, models.JobStatusPaused, snap.Status)
	assert.True(t, snap.Paused)

	// Idempotent while paused
	require.NoError(t, store.RequestPause(id))

	require.NoError(t, store.RequestResume(id))
	snap, _ = store.Get(id)
	assert.Equal(t, models.JobStatusRunning, snap.Status)
	assert.False(t, snap.Paused)

	// Resume of a running job is a no-op
	require.NoError(t, store.RequestResume(id))
}

func TestControlAfterTerminal(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.Create("local", 1)
	store.MarkTerminal(id, models.JobStatusCompleted, "")

	assert.ErrorIs(t, store.RequestPause(id), ErrInvalidState)
	assert.ErrorIs(t, store.RequestResume(id), ErrInvalidState)
	assert.ErrorIs(t, store.RequestCancel(id), ErrInvalidState)
}

func TestCancelIsIdempotentWhilePending(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.Create("local", 4)

	require.NoError(t, store.RequestCancel(id))
	assert.True(t, store.CancelRequested(id))

	// Second cancel while the first is still pending
	require.NoError(t, store.RequestCancel(id))
}

func TestMarkTerminalFirstWriterWins(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.Create("local", 1)

	store.MarkTerminal(id, models.JobStatusError, "store fault")
	store.MarkTerminal(id, models.JobStatusCompleted, "")

	snap, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusError, snap.Status)
	assert.Equal(t, "store fault", snap.Error)
}

func TestMarkTerminalIgnoresNonTerminalStatus(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.Create("local", 1)

	store.MarkTerminal(id, models.JobStatusPaused, "")

	snap, _ := store.Get(id)
	assert.Equal(t, models.JobStatusRunning, snap.Status)
}

func TestAwaitResumeReturnsImmediatelyWhenRunning(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.Create("local", 1)

	require.NoError(t, store.AwaitResume(context.Background(), id))
}

func TestAwaitResumeBlocksUntilResumed(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.Create("local", 1)
	require.NoError(t, store.RequestPause(id))

	released := make(chan error, 1)
	go func() {
		released <- store.AwaitResume(context.Background(), id)
	}()

	select {
	case <-released:
		t.Fatal("AwaitResume returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, store.RequestResume(id))

	select {
	case err := <-released:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("AwaitResume did not return after resume")
	}
}

func TestAwaitResumeWakesOnCancel(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.Create("local", 1)
	require.NoError(t, store.RequestPause(id))

	released := make(chan error, 1)
	go func() {
		released <- store.AwaitResume(context.Background(), id)
	}()

	require.NoError(t, store.RequestCancel(id))

	select {
	case err := <-released:
		assert.NoError(t, err)
		assert.True(t, store.CancelRequested(id))
	case <-time.After(time.Second):
		t.Fatal("AwaitResume did not return after cancel")
	}
}

func TestAwaitResumeHonorsContext(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.Create("local", 1)
	require.NoError(t, store.RequestPause(id))

	ctx, cancel := context.WithCancel(context.Background())
	released := make(chan error, 1)
	go func() {
		released <- store.AwaitResume(ctx, id)
	}()

	cancel()

	select {
	case err := <-released:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("AwaitResume did not return after context cancel")
	}
}

func TestRetentionRemovesTerminalJobs(t *testing.T) {
	store := NewStore(20*time.Millisecond, arbor.NewLogger())
	id, _ := store.Create("local", 1)
	store.MarkTerminal(id, models.JobStatusCompleted, "")

	_, err := store.Get(id)
	require.NoError(t, err, "terminal job should stay queryable inside the retention window")

	assert.Eventually(t, func() bool {
		_, err := store.Get(id)
		return err != nil
	}, time.Second, 10*time.Millisecond, "terminal job should expire")
}
