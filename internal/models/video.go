package models

import (
	"strings"
	"time"
)

// Video is a synced library entry (one liked video). Stored in badger keyed
// by ID; categorization mutates CategoryIDs/TagIDs and the IsCategorized flag.
type Video struct {
	ID           string `badgerhold:"key" json:"id"`
	OwnerID      string `badgerhold:"index" json:"owner_id"`
	ExternalID   string `json:"external_id"` // platform-side video id
	Title        string `json:"title"`
	ChannelTitle string `json:"channel_title"`
	Description  string `json:"description"`

	DurationSeconds int        `json:"duration_seconds"`
	ViewCount       int64      `json:"view_count"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	LikedAt         time.Time  `json:"liked_at"`

	IsCategorized bool       `json:"is_categorized"`
	CategorizedAt *time.Time `json:"categorized_at,omitempty"`
	CategoryIDs   []string   `json:"category_ids"`
	TagIDs        []string   `json:"tag_ids"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category is a curated content category videos are assigned to.
type Category struct {
	ID          string    `badgerhold:"key" json:"id"`
	Name        string    `json:"name"`
	Slug        string    `badgerhold:"index" json:"slug"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Tag is a free-form label produced by the classifier. UsageCount tracks how
// many videos reference it.
type Tag struct {
	ID         string    `badgerhold:"key" json:"id"`
	Name       string    `json:"name"`
	Slug       string    `badgerhold:"index" json:"slug"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Classification is the classifier's verdict for a single video.
// Primary categories are required; secondary categories are optional extras.
type Classification struct {
	PrimaryCategories   []string `json:"primary_categories"`
	SecondaryCategories []string `json:"secondary_categories"`
	Tags                []string `json:"tags"`
	Confidence          float64  `json:"confidence"`
}

// Categories returns primary followed by secondary categories.
func (c *Classification) Categories() []string {
	out := make([]string, 0, len(c.PrimaryCategories)+len(c.SecondaryCategories))
	out = append(out, c.PrimaryCategories...)
	out = append(out, c.SecondaryCategories...)
	return out
}

// Slugify normalizes a category or tag name into a URL-safe slug.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, " ", "-")
	return s
}
