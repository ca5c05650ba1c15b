package classifier

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatorhq/curator/internal/models"
)

var testCategories = []string{"Music", "Education", "Food & Cooking"}

func TestBuildPrompt(t *testing.T) {
	published := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	video := &models.Video{
		ID:              "vid_1",
		Title:           "Neapolitan pizza at home",
		ChannelTitle:    "Oven Lab",
		Description:     strings.Repeat("dough ", 200), // over the 500 char cap
		DurationSeconds: 754,
		ViewCount:       120000,
		PublishedAt:     &published,
	}

	prompt := buildPrompt(video, testCategories)

	assert.Contains(t, prompt, "Neapolitan pizza at home")
	assert.Contains(t, prompt, "Channel: Oven Lab")
	assert.Contains(t, prompt, "Duration: 12m34s")
	assert.Contains(t, prompt, "Views: 120000")
	assert.Contains(t, prompt, "Published: 2023")
	assert.Contains(t, prompt, "- Food & Cooking")
	// Description is truncated, not dropped
	assert.Contains(t, prompt, "...")
	assert.NotContains(t, prompt, strings.Repeat("dough ", 200))
}

func TestCleanMarkdownFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownFences(tt.input))
		})
	}
}

func TestParseClassification(t *testing.T) {
	response := "```json\n" + `{
		"primary_categories": ["Food & Cooking"],
		"secondary_categories": ["Education"],
		"tags": ["pizza", "baking", "italian food", "home cooking", "tutorial"],
		"confidence": 0.92
	}` + "\n```"

	result, err := parseClassification(response, testCategories)
	require.NoError(t, err)

	assert.Equal(t, []string{"Food & Cooking"}, result.PrimaryCategories)
	assert.Equal(t, []string{"Education"}, result.SecondaryCategories)
	assert.Len(t, result.Tags, 5)
	assert.InDelta(t, 0.92, result.Confidence, 0.001)
	assert.Equal(t, []string{"Food & Cooking", "Education"}, result.Categories())
}

func TestParseClassification_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "the video is about pizza"},
		{"no primary categories", `{"primary_categories": [], "tags": []}`},
		{"unknown category", `{"primary_categories": ["Gardening"], "tags": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseClassification(tt.response, testCategories)
			assert.Error(t, err)
		})
	}
}

func TestParseClassification_CategoryCaseInsensitive(t *testing.T) {
	response := `{"primary_categories": ["music"], "tags": ["live"], "confidence": 0.8}`

	result, err := parseClassification(response, testCategories)
	require.NoError(t, err)
	assert.Equal(t, []string{"music"}, result.PrimaryCategories)
}
