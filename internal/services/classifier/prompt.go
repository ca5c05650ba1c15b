package classifier

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/curatorhq/curator/internal/models"
)

const maxDescriptionChars = 500

// buildPrompt renders the classification instruction for a single video.
// The model sees title, channel, duration, a truncated description, view count
// and publish year, plus the allowed category list.
func buildPrompt(video *models.Video, allowedCategories []string) string {
	var meta strings.Builder

	fmt.Fprintf(&meta, "Title: %s\n", video.Title)
	if video.ChannelTitle != "" {
		fmt.Fprintf(&meta, "Channel: %s\n", video.ChannelTitle)
	}
	if video.DurationSeconds > 0 {
		fmt.Fprintf(&meta, "Duration: %s\n", formatDuration(video.DurationSeconds))
	}
	if desc := strings.TrimSpace(video.Description); desc != "" {
		if len(desc) > maxDescriptionChars {
			desc = desc[:maxDescriptionChars] + "..."
		}
		fmt.Fprintf(&meta, "Description: %s\n", desc)
	}
	if video.ViewCount > 0 {
		fmt.Fprintf(&meta, "Views: %d\n", video.ViewCount)
	}
	if video.PublishedAt != nil {
		fmt.Fprintf(&meta, "Published: %d\n", video.PublishedAt.Year())
	}

	return fmt.Sprintf(`You are a video categorization specialist.

Task: Categorize this video based on its metadata.

Available categories:
%s

Rules:
- Choose 1-2 primary categories that best describe the video
- Optionally choose up to 2 secondary categories
- Only use categories from the available list, exactly as written
- Suggest exactly 5 short descriptive tags (lowercase, 1-3 words each)
- Rate your confidence from 0.0 to 1.0

Output Format (JSON only, no markdown fences):
{
  "primary_categories": ["Category"],
  "secondary_categories": [],
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"],
  "confidence": 0.9
}

Video Metadata:
%s`, "- "+strings.Join(allowedCategories, "\n- "), meta.String())
}

func formatDuration(seconds int) string {
	if seconds >= 3600 {
		return fmt.Sprintf("%dh%dm", seconds/3600, (seconds%3600)/60)
	}
	return fmt.Sprintf("%dm%ds", seconds/60, seconds%60)
}

// cleanMarkdownFences removes markdown code fences from a model response
func cleanMarkdownFences(s string) string {
	s = strings.TrimSpace(s)

	fencePattern := regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json|JSON)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)
	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// parseClassification parses a model response into a Classification.
// Responses naming categories outside the allowed list are rejected so a
// hallucinated category never reaches storage.
func parseClassification(response string, allowedCategories []string) (*models.Classification, error) {
	var result models.Classification

	if err := json.Unmarshal([]byte(cleanMarkdownFences(response)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(result.PrimaryCategories) == 0 {
		return nil, fmt.Errorf("no primary categories in response")
	}

	allowed := make(map[string]bool, len(allowedCategories))
	for _, c := range allowedCategories {
		allowed[strings.ToLower(c)] = true
	}
	for _, c := range result.Categories() {
		if !allowed[strings.ToLower(c)] {
			return nil, fmt.Errorf("category %q is not in the allowed list", c)
		}
	}

	if result.Tags == nil {
		result.Tags = []string{}
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		result.Confidence = 0
	}

	return &result, nil
}
