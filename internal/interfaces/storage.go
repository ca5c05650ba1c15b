package interfaces

import (
	"context"

	"github.com/curatorhq/curator/internal/models"
)

// VideoStorage - interface for video library persistence
type VideoStorage interface {
	// CRUD operations
	StoreVideo(ctx context.Context, video *models.Video) error
	StoreVideos(ctx context.Context, videos []*models.Video) error
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	ListVideos(ctx context.Context, ownerID string, limit int) ([]*models.Video, error)
	DeleteVideo(ctx context.Context, id string) error
	CountVideos(ctx context.Context, ownerID string) (int, error)

	// Categorization operations
	ListUncategorized(ctx context.Context, ownerID string, limit int) ([]*models.Video, error)
	ApplyCategorization(ctx context.Context, videoID string, categoryIDs, tagIDs []string) error
	CountUncategorized(ctx context.Context, ownerID string) (int, error)
}

// TaxonomyStorage - interface for category and tag persistence
type TaxonomyStorage interface {
	// Category operations
	GetOrCreateCategory(ctx context.Context, name string) (*models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)

	// Tag operations. GetOrCreateTag increments the tag's usage count on
	// every call, including the call that creates it.
	GetOrCreateTag(ctx context.Context, name string) (*models.Tag, error)
	GetTag(ctx context.Context, id string) (*models.Tag, error)
	ListTags(ctx context.Context, limit int) ([]*models.Tag, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	VideoStorage() VideoStorage
	TaxonomyStorage() TaxonomyStorage
	Close() error
}
