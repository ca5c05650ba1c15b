package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/curatorhq/curator/internal/common"
	"github.com/curatorhq/curator/internal/interfaces"
	"github.com/curatorhq/curator/internal/models"
)

// VideoStorage implements the VideoStorage interface for Badger
type VideoStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewVideoStorage creates a new VideoStorage instance
func NewVideoStorage(db *BadgerDB, logger arbor.ILogger) interfaces.VideoStorage {
	return &VideoStorage{
		db:     db,
		logger: logger,
	}
}

func (s *VideoStorage) StoreVideo(ctx context.Context, video *models.Video) error {
	if video == nil {
		return fmt.Errorf("video is required")
	}
	if video.ID == "" {
		video.ID = common.NewVideoID()
	}

	now := time.Now()
	if video.CreatedAt.IsZero() {
		video.CreatedAt = now
	}
	video.UpdatedAt = now

	if err := s.db.Store().Upsert(video.ID, video); err != nil {
		return fmt.Errorf("failed to save video: %w", err)
	}
	return nil
}

func (s *VideoStorage) StoreVideos(ctx context.Context, videos []*models.Video) error {
	for _, video := range videos {
		if err := s.StoreVideo(ctx, video); err != nil {
			return err
		}
	}
	return nil
}

func (s *VideoStorage) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	var video models.Video
	if err := s.db.Store().Get(id, &video); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("video not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

func (s *VideoStorage) ListVideos(ctx context.Context, ownerID string, limit int) ([]*models.Video, error) {
	query := badgerhold.Where("OwnerID").Eq(ownerID).Index("OwnerID").SortBy("LikedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var videos []models.Video
	if err := s.db.Store().Find(&videos, query); err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	result := make([]*models.Video, len(videos))
	for i := range videos {
		result[i] = &videos[i]
	}
	return result, nil
}

func (s *VideoStorage) DeleteVideo(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Video{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("video not found: %s", id)
		}
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}

func (s *VideoStorage) CountVideos(ctx context.Context, ownerID string) (int, error) {
	count, err := s.db.Store().Count(&models.Video{}, badgerhold.Where("OwnerID").Eq(ownerID).Index("OwnerID"))
	if err != nil {
		return 0, fmt.Errorf("failed to count videos: %w", err)
	}
	return int(count), nil
}

func (s *VideoStorage) ListUncategorized(ctx context.Context, ownerID string, limit int) ([]*models.Video, error) {
	query := badgerhold.Where("OwnerID").Eq(ownerID).Index("OwnerID").
		And("IsCategorized").Eq(false).
		SortBy("LikedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var videos []models.Video
	if err := s.db.Store().Find(&videos, query); err != nil {
		return nil, fmt.Errorf("failed to list uncategorized videos: %w", err)
	}

	result := make([]*models.Video, len(videos))
	for i := range videos {
		result[i] = &videos[i]
	}
	return result, nil
}

// ApplyCategorization assigns categories and tags to a video and marks it
// categorized. The video keeps its previous assignment if the write fails.
func (s *VideoStorage) ApplyCategorization(ctx context.Context, videoID string, categoryIDs, tagIDs []string) error {
	video, err := s.GetVideo(ctx, videoID)
	if err != nil {
		return err
	}

	now := time.Now()
	video.CategoryIDs = categoryIDs
	video.TagIDs = tagIDs
	video.IsCategorized = true
	video.CategorizedAt = &now
	video.UpdatedAt = now

	if err := s.db.Store().Update(video.ID, video); err != nil {
		return fmt.Errorf("failed to apply categorization: %w", err)
	}

	s.logger.Debug().
		Str("video_id", videoID).
		Int("categories", len(categoryIDs)).
		Int("tags", len(tagIDs)).
		Msg("Video categorized")

	return nil
}

func (s *VideoStorage) CountUncategorized(ctx context.Context, ownerID string) (int, error) {
	count, err := s.db.Store().Count(&models.Video{},
		badgerhold.Where("OwnerID").Eq(ownerID).Index("OwnerID").And("IsCategorized").Eq(false))
	if err != nil {
		return 0, fmt.Errorf("failed to count uncategorized videos: %w", err)
	}
	return int(count), nil
}
