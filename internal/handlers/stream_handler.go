package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/curatorhq/curator/internal/jobs"
	"github.com/curatorhq/curator/internal/models"
)

// StreamHandler serves live job progress over Server-Sent Events.
// Each connection gets its own subscription: the current snapshot
// immediately, every change in order, heartbeats while nothing happens, and
// the terminal snapshot last.
type StreamHandler struct {
	store     *jobs.Store
	heartbeat time.Duration
	logger    arbor.ILogger
}

// NewStreamHandler creates the SSE stream handler. heartbeat bounds the
// silence between events on an idle stream.
func NewStreamHandler(store *jobs.Store, heartbeat time.Duration, logger arbor.ILogger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 2 * time.Second
	}
	return &StreamHandler{
		store:     store,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// StreamJob handles GET /api/jobs/{id}/stream
func (h *StreamHandler) StreamJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ch, cancel, err := h.store.Subscribe(jobID)
	if err != nil {
		WriteJobError(w, err)
		return
	}
	defer cancel()

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	h.logger.Debug().Str("job_id", jobID).Msg("SSE stream opened")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug().Str("job_id", jobID).Msg("SSE client disconnected")
			return

		case snapshot, ok := <-ch:
			if !ok {
				// Terminal snapshot already sent; the stream is complete.
				h.logger.Debug().Str("job_id", jobID).Msg("SSE stream finished")
				return
			}
			h.sendSnapshot(w, flusher, snapshot)
			ticker.Reset(h.heartbeat)

		case <-ticker.C:
			// Idle stream: re-send the current snapshot as a heartbeat so
			// clients can distinguish a quiet job from a dead connection.
			snapshot, err := h.store.Get(jobID)
			if err != nil {
				return
			}
			h.sendSnapshot(w, flusher, snapshot)
		}
	}
}

func (h *StreamHandler) sendSnapshot(w http.ResponseWriter, flusher http.Flusher, snapshot models.JobSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal job snapshot")
		return
	}

	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
