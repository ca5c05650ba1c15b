package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique categorization job ID with the "job_" prefix
// Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewVideoID generates a unique video ID with the "vid_" prefix
func NewVideoID() string {
	return "vid_" + uuid.New().String()
}

// NewCategoryID generates a unique category ID with the "cat_" prefix
func NewCategoryID() string {
	return "cat_" + uuid.New().String()
}

// NewTagID generates a unique tag ID with the "tag_" prefix
func NewTagID() string {
	return "tag_" + uuid.New().String()
}
