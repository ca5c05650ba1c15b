package interfaces

import (
	"context"
	"fmt"

	"github.com/curatorhq/curator/internal/models"
)

// ClassificationErrorKind distinguishes the ways a classifier call can fail.
// All kinds are per-item failures: the job records them and moves on.
type ClassificationErrorKind string

const (
	ClassificationTimeout         ClassificationErrorKind = "timeout"
	ClassificationRateLimited     ClassificationErrorKind = "rate_limited"
	ClassificationInvalidResponse ClassificationErrorKind = "invalid_response"
)

// ClassificationError wraps a failed classifier call with its failure kind.
type ClassificationError struct {
	Kind ClassificationErrorKind
	Err  error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification %s: %v", e.Kind, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// NewClassificationError wraps err with the given kind.
func NewClassificationError(kind ClassificationErrorKind, err error) *ClassificationError {
	return &ClassificationError{Kind: kind, Err: err}
}

// Classifier maps video metadata to categories and tags via an external
// model. Implementations apply their own timeout and rate limiting; they
// never retry (failures surface as per-item errors on the job).
type Classifier interface {
	// Classify returns the categorization for a single video, or a
	// *ClassificationError describing why the call failed.
	Classify(ctx context.Context, video *models.Video) (*models.Classification, error)

	// Provider returns the backing provider name ("gemini", "claude", ...).
	Provider() string
}
