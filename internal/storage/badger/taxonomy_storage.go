package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/curatorhq/curator/internal/common"
	"github.com/curatorhq/curator/internal/interfaces"
	"github.com/curatorhq/curator/internal/models"
)

// TaxonomyStorage implements the TaxonomyStorage interface for Badger.
// Get-or-create operations serialize on a mutex so concurrent workers
// classifying different videos cannot create duplicate slugs.
type TaxonomyStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewTaxonomyStorage creates a new TaxonomyStorage instance
func NewTaxonomyStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TaxonomyStorage {
	return &TaxonomyStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TaxonomyStorage) GetOrCreateCategory(ctx context.Context, name string) (*models.Category, error) {
	slug := models.Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("category name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []models.Category
	if err := s.db.Store().Find(&existing, badgerhold.Where("Slug").Eq(slug).Index("Slug")); err != nil {
		return nil, fmt.Errorf("failed to look up category: %w", err)
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}

	category := &models.Category{
		ID:        common.NewCategoryID(),
		Name:      name,
		Slug:      slug,
		CreatedAt: time.Now(),
	}
	if err := s.db.Store().Insert(category.ID, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Debug().Str("category", name).Str("slug", slug).Msg("Category created")
	return category, nil
}

func (s *TaxonomyStorage) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Store().Get(id, &category); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("category not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

func (s *TaxonomyStorage) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var categories []models.Category
	if err := s.db.Store().Find(&categories, badgerhold.Where("Slug").Eq(slug).Index("Slug")); err != nil {
		return nil, fmt.Errorf("failed to get category by slug: %w", err)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("category not found: %s", slug)
	}
	return &categories[0], nil
}

func (s *TaxonomyStorage) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var categories []models.Category
	if err := s.db.Store().Find(&categories, badgerhold.Where("ID").Ne("").SortBy("Name")); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	result := make([]*models.Category, len(categories))
	for i := range categories {
		result[i] = &categories[i]
	}
	return result, nil
}

// GetOrCreateTag returns the tag for name, creating it on first use.
// The usage count increments on every call, creation included.
func (s *TaxonomyStorage) GetOrCreateTag(ctx context.Context, name string) (*models.Tag, error) {
	slug := models.Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("tag name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []models.Tag
	if err := s.db.Store().Find(&existing, badgerhold.Where("Slug").Eq(slug).Index("Slug")); err != nil {
		return nil, fmt.Errorf("failed to look up tag: %w", err)
	}
	if len(existing) > 0 {
		tag := &existing[0]
		tag.UsageCount++
		if err := s.db.Store().Update(tag.ID, tag); err != nil {
			return nil, fmt.Errorf("failed to update tag usage: %w", err)
		}
		return tag, nil
	}

	tag := &models.Tag{
		ID:         common.NewTagID(),
		Name:       name,
		Slug:       slug,
		UsageCount: 1,
		CreatedAt:  time.Now(),
	}
	if err := s.db.Store().Insert(tag.ID, tag); err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	s.logger.Debug().Str("tag", name).Str("slug", slug).Msg("Tag created")
	return tag, nil
}

func (s *TaxonomyStorage) GetTag(ctx context.Context, id string) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.Store().Get(id, &tag); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("tag not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &tag, nil
}

func (s *TaxonomyStorage) ListTags(ctx context.Context, limit int) ([]*models.Tag, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("UsageCount").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var tags []models.Tag
	if err := s.db.Store().Find(&tags, query); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	result := make([]*models.Tag, len(tags))
	for i := range tags {
		result[i] = &tags[i]
	}
	return result, nil
}
