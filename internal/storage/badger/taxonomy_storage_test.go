package badger

import (
	"context"
	"testing"

	"github.com/ternarybob/arbor"
)

func TestGetOrCreateCategoryDeduplicatesBySlug(t *testing.T) {
	db := openTestDB(t)
	taxonomy := NewTaxonomyStorage(db, arbor.NewLogger())

	ctx := context.Background()

	first, err := taxonomy.GetOrCreateCategory(ctx, "DIY/How-to")
	if err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	if first.Slug != "diy-how-to" {
		t.Errorf("Unexpected slug: %s", first.Slug)
	}

	second, err := taxonomy.GetOrCreateCategory(ctx, "diy/how-to")
	if err != nil {
		t.Fatalf("Failed to get category: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected same category, got %s and %s", first.ID, second.ID)
	}

	categories, err := taxonomy.ListCategories(ctx)
	if err != nil {
		t.Fatalf("Failed to list categories: %v", err)
	}
	if len(categories) != 1 {
		t.Errorf("Expected 1 category, got %d", len(categories))
	}
}

func TestGetOrCreateTagIncrementsUsage(t *testing.T) {
	db := openTestDB(t)
	taxonomy := NewTaxonomyStorage(db, arbor.NewLogger())

	ctx := context.Background()

	tag, err := taxonomy.GetOrCreateTag(ctx, "Home Espresso")
	if err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}
	if tag.Slug != "home-espresso" {
		t.Errorf("Unexpected slug: %s", tag.Slug)
	}
	if tag.UsageCount != 1 {
		t.Errorf("Expected usage count 1, got %d", tag.UsageCount)
	}

	again, err := taxonomy.GetOrCreateTag(ctx, "home espresso")
	if err != nil {
		t.Fatalf("Failed to get tag: %v", err)
	}
	if again.ID != tag.ID {
		t.Errorf("Expected same tag, got %s and %s", tag.ID, again.ID)
	}
	if again.UsageCount != 2 {
		t.Errorf("Expected usage count 2, got %d", again.UsageCount)
	}

	stored, err := taxonomy.GetTag(ctx, tag.ID)
	if err != nil {
		t.Fatalf("Failed to get tag by ID: %v", err)
	}
	if stored.UsageCount != 2 {
		t.Errorf("Expected persisted usage count 2, got %d", stored.UsageCount)
	}
}
