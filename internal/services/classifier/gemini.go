package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/curatorhq/curator/internal/common"
	"github.com/curatorhq/curator/internal/interfaces"
	"github.com/curatorhq/curator/internal/models"
)

// GeminiClassifier classifies videos using the Google Gemini API
type GeminiClassifier struct {
	client     *genai.Client
	config     *common.GeminiConfig
	categories []string
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     arbor.ILogger
}

// NewGeminiClassifier creates a Gemini-backed classifier
func NewGeminiClassifier(config *common.GeminiConfig, allowedCategories []string, logger arbor.ILogger) (*GeminiClassifier, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClassifier{
		client:     client,
		config:     config,
		categories: allowedCategories,
		limiter:    newRateLimiter(config.RateLimit, 4*time.Second),
		timeout:    common.Duration(config.Timeout, 30*time.Second),
		logger:     logger,
	}, nil
}

func (c *GeminiClassifier) Provider() string {
	return "gemini"
}

// Classify sends a single video's metadata to Gemini and parses the verdict.
// The call is bounded by the configured timeout and never retried.
func (c *GeminiClassifier) Classify(ctx context.Context, video *models.Video) (*models.Classification, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, wrapAPIError(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := buildPrompt(video, c.categories)
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.config.Temperature),
		ResponseMIMEType: "application/json",
	}

	resp, err := c.client.Models.GenerateContent(callCtx, c.config.Model, []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				genai.NewPartFromText(prompt),
			},
		},
	}, config)
	if err != nil {
		// Prefer the deadline over the SDK error when the budget expired
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, interfaces.NewClassificationError(interfaces.ClassificationTimeout, callCtx.Err())
		}
		return nil, wrapAPIError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, interfaces.NewClassificationError(interfaces.ClassificationInvalidResponse,
			fmt.Errorf("empty response from Gemini API"))
	}

	text := resp.Text()
	if text == "" {
		return nil, interfaces.NewClassificationError(interfaces.ClassificationInvalidResponse,
			fmt.Errorf("empty text in Gemini response"))
	}

	classification, err := parseClassification(text, c.categories)
	if err != nil {
		return nil, interfaces.NewClassificationError(interfaces.ClassificationInvalidResponse, err)
	}

	c.logger.Debug().
		Str("video_id", video.ID).
		Int("categories", len(classification.Categories())).
		Float64("confidence", classification.Confidence).
		Msg("Video classified")

	return classification, nil
}
