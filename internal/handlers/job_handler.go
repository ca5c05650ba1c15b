package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/curatorhq/curator/internal/interfaces"
	"github.com/curatorhq/curator/internal/jobs"
)

// defaultOwner scopes single-user deployments that never send an owner.
const defaultOwner = "local"

// JobHandler handles categorization job API requests
type JobHandler struct {
	engine       *jobs.Engine
	storage      interfaces.StorageManager
	eventService interfaces.EventService
	logger       arbor.ILogger
	stream       *StreamHandler
}

// NewJobHandler creates a new job handler
func NewJobHandler(engine *jobs.Engine, storage interfaces.StorageManager, eventService interfaces.EventService, stream *StreamHandler, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		engine:       engine,
		storage:      storage,
		eventService: eventService,
		stream:       stream,
		logger:       logger,
	}
}

// categorizeRequest is the body of POST /api/jobs/categorize. Either an
// explicit video_ids list or source: "uncategorized" selects the work.
type categorizeRequest struct {
	VideoIDs    []string `json:"video_ids"`
	Source      string   `json:"source"`
	MaxVideos   int      `json:"max_videos"`
	Concurrency int      `json:"concurrency"`
	Owner       string   `json:"owner"`
}

// StartCategorizationHandler starts a batch categorization job
// POST /api/jobs/categorize
func (h *JobHandler) StartCategorizationHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req categorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	owner := req.Owner
	if owner == "" {
		owner = defaultOwner
	}

	videoIDs := req.VideoIDs
	if req.Source == "uncategorized" {
		videos, err := h.storage.VideoStorage().ListUncategorized(r.Context(), owner, req.MaxVideos)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list uncategorized videos: "+err.Error())
			return
		}
		if len(videos) == 0 {
			WriteError(w, http.StatusNotFound, "no uncategorized videos for owner "+owner)
			return
		}
		videoIDs = make([]string, len(videos))
		for i, v := range videos {
			videoIDs[i] = v.ID
		}
	}

	jobID, err := h.engine.Start(r.Context(), owner, videoIDs, req.Concurrency)
	if err != nil {
		WriteJobError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": jobID,
		"total":  len(videoIDs),
	})
}

// JobRoutesHandler dispatches /api/jobs/{id} and /api/jobs/{id}/{action}
// where action is pause, resume, cancel or stream.
func (h *JobHandler) JobRoutesHandler(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// Expected: ["api", "jobs", "{id}"] or ["api", "jobs", "{id}", "{action}"]
	if len(pathParts) < 3 || pathParts[2] == "" {
		WriteError(w, http.StatusBadRequest, "job id is required")
		return
	}
	jobID := pathParts[2]

	if len(pathParts) == 3 {
		h.getJob(w, r, jobID)
		return
	}

	switch pathParts[3] {
	case "pause":
		h.pauseJob(w, r, jobID)
	case "resume":
		h.resumeJob(w, r, jobID)
	case "cancel":
		h.cancelJob(w, r, jobID)
	case "stream":
		h.stream.StreamJob(w, r, jobID)
	default:
		WriteError(w, http.StatusNotFound, "unknown job action: "+pathParts[3])
	}
}

// getJob returns the current job snapshot (poll fallback for clients that
// can't hold an SSE stream)
// GET /api/jobs/{id}
func (h *JobHandler) getJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	snapshot, err := h.engine.Store().Get(jobID)
	if err != nil {
		WriteJobError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, snapshot)
}

// pauseJob suspends a running job
// POST /api/jobs/{id}/pause
func (h *JobHandler) pauseJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.engine.Store().RequestPause(jobID); err != nil {
		WriteJobError(w, err)
		return
	}

	h.publishEvent(r, interfaces.EventJobPaused, jobID)
	WriteSuccess(w, "job paused")
}

// resumeJob lifts a pause
// POST /api/jobs/{id}/resume
func (h *JobHandler) resumeJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.engine.Store().RequestResume(jobID); err != nil {
		WriteJobError(w, err)
		return
	}

	h.publishEvent(r, interfaces.EventJobResumed, jobID)
	WriteSuccess(w, "job resumed")
}

// cancelJob requests cancellation; workers drain in-flight work before the
// job reaches the cancelled state
// POST /api/jobs/{id}/cancel
func (h *JobHandler) cancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.engine.Store().RequestCancel(jobID); err != nil {
		WriteJobError(w, err)
		return
	}

	WriteSuccess(w, "job cancellation requested")
}

func (h *JobHandler) publishEvent(r *http.Request, eventType interfaces.EventType, jobID string) {
	if h.eventService == nil {
		return
	}
	snapshot, err := h.engine.Store().Get(jobID)
	if err != nil {
		return
	}
	if err := h.eventService.Publish(r.Context(), interfaces.Event{Type: eventType, Payload: snapshot}); err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to publish job event")
	}
}
