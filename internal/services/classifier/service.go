package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/curatorhq/curator/internal/common"
	"github.com/curatorhq/curator/internal/interfaces"
)

// NewClassifier creates the classifier for the configured default provider.
// allowedCategories is the closed category list responses are validated
// against; responses outside it fail as invalid_response.
func NewClassifier(cfg *common.Config, allowedCategories []string, logger arbor.ILogger) (interfaces.Classifier, error) {
	if len(allowedCategories) == 0 {
		return nil, fmt.Errorf("allowed category list is empty")
	}

	logger.Info().
		Str("provider", string(cfg.LLM.DefaultProvider)).
		Int("categories", len(allowedCategories)).
		Msg("Initializing classifier")

	// Provider timeouts fall back to the job engine's per-video budget
	if cfg.Gemini.Timeout == "" {
		cfg.Gemini.Timeout = cfg.Jobs.ClassifyTimeout
	}
	if cfg.Claude.Timeout == "" {
		cfg.Claude.Timeout = cfg.Jobs.ClassifyTimeout
	}

	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderGemini:
		return NewGeminiClassifier(&cfg.Gemini, allowedCategories, logger)
	case common.LLMProviderClaude:
		return NewClaudeClassifier(&cfg.Claude, allowedCategories, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.DefaultProvider)
	}
}

// newRateLimiter builds a limiter allowing one call per interval with a
// burst of one, so concurrent workers queue behind each other.
func newRateLimiter(interval string, def time.Duration) *rate.Limiter {
	every := common.Duration(interval, def)
	if every <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(every), 1)
}

// isRateLimitError checks if an error is a provider rate limit error.
// Matches 429 status codes and RESOURCE_EXHAUSTED errors.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "rate limit")
}

// wrapAPIError maps a failed provider call onto the classification error
// taxonomy. Calls are never retried here; the job records the failure and
// moves to the next video.
func wrapAPIError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return interfaces.NewClassificationError(interfaces.ClassificationTimeout, err)
	case isRateLimitError(err):
		return interfaces.NewClassificationError(interfaces.ClassificationRateLimited, err)
	default:
		return interfaces.NewClassificationError(interfaces.ClassificationInvalidResponse, err)
	}
}
