package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/curatorhq/curator/internal/common"
	"github.com/curatorhq/curator/internal/interfaces"
	"github.com/curatorhq/curator/internal/models"
)

// ClaudeClassifier classifies videos using the Anthropic Claude API
type ClaudeClassifier struct {
	client     anthropic.Client
	config     *common.ClaudeConfig
	categories []string
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     arbor.ILogger
}

// NewClaudeClassifier creates a Claude-backed classifier
func NewClaudeClassifier(config *common.ClaudeConfig, allowedCategories []string, logger arbor.ILogger) (*ClaudeClassifier, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	return &ClaudeClassifier{
		client:     client,
		config:     config,
		categories: allowedCategories,
		limiter:    newRateLimiter(config.RateLimit, time.Second),
		timeout:    common.Duration(config.Timeout, 30*time.Second),
		logger:     logger,
	}, nil
}

func (c *ClaudeClassifier) Provider() string {
	return "claude"
}

// Classify sends a single video's metadata to Claude and parses the verdict.
// The call is bounded by the configured timeout and never retried.
func (c *ClaudeClassifier) Classify(ctx context.Context, video *models.Video) (*models.Classification, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, wrapAPIError(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := buildPrompt(video, c.categories)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.config.Temperature))
	}

	resp, err := c.client.Messages.New(callCtx, params)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, interfaces.NewClassificationError(interfaces.ClassificationTimeout, callCtx.Err())
		}
		return nil, wrapAPIError(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, interfaces.NewClassificationError(interfaces.ClassificationInvalidResponse,
			fmt.Errorf("empty response from Claude API"))
	}

	classification, err := parseClassification(text.String(), c.categories)
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
