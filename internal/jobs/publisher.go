package jobs

import (
	"fmt"

	"github.com/curatorhq/curator/internal/models"
)

// subscriberBuffer is the per-subscription channel capacity. A slow consumer
// loses intermediate snapshots (newest state wins), never the terminal one.
const subscriberBuffer = 16

// Subscribe registers a snapshot listener for a job. The current snapshot is
// delivered immediately, every later snapshot in publish order, and the
// channel closes after the terminal snapshot. Each subscription is
// independent; cancel releases it early.
func (s *Store) Subscribe(id string) (<-chan models.JobSnapshot, func(), error) {
	e, err := s.get(id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan models.JobSnapshot, subscriberBuffer)

	e.mu.Lock()
	snapshot := e.job.Snapshot()
	ch <- snapshot

	if snapshot.Terminal() {
		// Late subscriber to a finished job: one final snapshot, then done.
		close(ch)
		e.mu.Unlock()
		return ch, func() {}, nil
	}

	subID := e.nextSubID
	e.nextSubID++
	e.subscribers[subID] = ch
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.subscribers[subID]; ok {
			delete(e.subscribers, subID)
			close(ch)
		}
	}

	return ch, cancel, nil
}

// SubscriberCount returns the number of live subscriptions for a job.
func (s *Store) SubscriberCount(id string) (int, error) {
	e, err := s.get(id)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subscribers), nil
}

// publishLocked fans the current snapshot out to every subscriber. Caller
// holds e.mu, which serializes publishes and keeps snapshot order identical
// on every channel. When a buffer is full the oldest snapshot is dropped so
// the send never blocks a worker.
func (s *Store) publishLocked(e *entry) {
	if len(e.subscribers) == 0 {
		return
	}

	snapshot := e.job.Snapshot()
	for _, ch := range e.subscribers {
		for {
			select {
			case ch <- snapshot:
			default:
				// Buffer full: evict the oldest snapshot and retry.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// closeSubscribersLocked closes every subscription channel. Called once,
// right after the terminal snapshot is published. Caller holds e.mu.
func (s *Store) closeSubscribersLocked(e *entry) {
	for id, ch := range e.subscribers {
		close(ch)
		delete(e.subscribers, id)
	}
}

// String implements fmt.Stringer for debug logging.
func (s *Store) String() string {
	return fmt.Sprintf("jobs.Store(%d jobs, retention %s)", s.Len(), s.retention)
}
