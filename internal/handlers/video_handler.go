package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/curatorhq/curator/internal/interfaces"
	"github.com/curatorhq/curator/internal/models"
)

// VideoHandler handles video library API requests
type VideoHandler struct {
	storage  interfaces.StorageManager
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(storage interfaces.StorageManager, logger arbor.ILogger) *VideoHandler {
	return &VideoHandler{
		storage:  storage,
		validate: validator.New(),
		logger:   logger,
	}
}

// importVideoRequest is one video in a library import payload
type importVideoRequest struct {
	ExternalID      string     `json:"external_id" validate:"required"`
	Title           string     `json:"title" validate:"required"`
	ChannelTitle    string     `json:"channel_title"`
	Description     string     `json:"description"`
	DurationSeconds int        `json:"duration_seconds" validate:"gte=0"`
	ViewCount       int64      `json:"view_count" validate:"gte=0"`
	PublishedAt     *time.Time `json:"published_at"`
	LikedAt         *time.Time `json:"liked_at"`
}

type importRequest struct {
	Owner  string               `json:"owner"`
	Videos []importVideoRequest `json:"videos" validate:"required,min=1,dive"`
}

// ImportHandler stores a batch of liked videos into the library
// POST /api/videos/import
func (h *VideoHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid import payload: "+err.Error())
		return
	}

	owner := req.Owner
	if owner == "" {
		owner = defaultOwner
	}

	videos := make([]*models.Video, len(req.Videos))
	for i, v := range req.Videos {
		likedAt := time.Now()
		if v.LikedAt != nil {
			likedAt = *v.LikedAt
		}
		videos[i] = &models.Video{
			OwnerID:         owner,
			ExternalID:      v.ExternalID,
			Title:           v.Title,
			ChannelTitle:    v.ChannelTitle,
			Description:     v.Description,
			DurationSeconds: v.DurationSeconds,
			ViewCount:       v.ViewCount,
			PublishedAt:     v.PublishedAt,
			LikedAt:         likedAt,
		}
	}

	if err := h.storage.VideoStorage().StoreVideos(r.Context(), videos); err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to store videos: "+err.Error())
		return
	}

	h.logger.Info().Str("owner_id", owner).Int("count", len(videos)).Msg("Videos imported")

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"imported": len(videos),
		"owner":    owner,
	})
}

// ListHandler returns videos for an owner
// GET /api/videos?owner=local&limit=50&uncategorized=true
func (h *VideoHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = defaultOwner
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var (
		videos []*models.Video
		err    error
	)
	if r.URL.Query().Get("uncategorized") == "true" {
		videos, err = h.storage.VideoStorage().ListUncategorized(r.Context(), owner, limit)
	} else {
		videos, err = h.storage.VideoStorage().ListVideos(r.Context(), owner, limit)
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list videos: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"videos": videos,
		"count":  len(videos),
	})
}

// StatsHandler returns library counts for an owner
// GET /api/videos/stats?owner=local
func (h *VideoHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = defaultOwner
	}

	total, err := h.storage.VideoStorage().CountVideos(r.Context(), owner)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to count videos: "+err.Error())
		return
	}
	uncategorized, err := h.storage.VideoStorage().CountUncategorized(r.Context(), owner)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to count uncategorized videos: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"owner":         owner,
		"total":         total,
		"uncategorized": uncategorized,
		"categorized":   total - uncategorized,
	})
}

// VideoRoutesHandler dispatches /api/videos/{id}
func (h *VideoHandler) VideoRoutesHandler(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 3 || pathParts[2] == "" {
		WriteError(w, http.StatusBadRequest, "video id is required")
		return
	}
	videoID := pathParts[2]

	switch r.Method {
	case "GET":
		video, err := h.storage.VideoStorage().GetVideo(r.Context(), videoID)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, video)
	case "DELETE":
		if err := h.storage.VideoStorage().DeleteVideo(r.Context(), videoID); err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteSuccess(w, "video deleted")
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
