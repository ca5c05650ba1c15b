package taxonomy

import (
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"
)

// DefaultCategories is the built-in allowed category list, used when no
// taxonomy file is configured.
var DefaultCategories = []string{
	"Education",
	"Entertainment",
	"Music",
	"Gaming",
	"Technology",
	"Science",
	"Sports",
	"Lifestyle",
	"News",
	"DIY/How-to",
	"Comedy",
	"Documentary",
	"Food & Cooking",
	"Travel",
	"Health & Fitness",
	"Business",
	"Art & Design",
	"Fashion & Beauty",
	"Automotive",
	"Pets & Animals",
}

// taxonomyFile is the YAML shape of a user-provided category list
type taxonomyFile struct {
	Categories []string `yaml:"categories"`
}

// Service holds the allowed category list the classifier is constrained to.
// The list is immutable after load.
type Service struct {
	categories []string
	logger     arbor.ILogger
}

// NewService loads the allowed categories from path, or falls back to the
// built-in defaults when path is empty.
func NewService(path string, logger arbor.ILogger) (*Service, error) {
	if path == "" {
		logger.Debug().Int("count", len(DefaultCategories)).Msg("Using built-in category taxonomy")
		return &Service{categories: DefaultCategories, logger: logger}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file %s: %w", path, err)
	}

	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy file %s: %w", path, err)
	}

	// Drop empty entries and duplicates while keeping file order
	seen := make(map[string]bool)
	categories := make([]string, 0, len(file.Categories))
	for _, c := range file.Categories {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		categories = append(categories, c)
	}

	if len(categories) == 0 {
		return nil, fmt.Errorf("taxonomy file %s contains no categories", path)
	}

	logger.Info().Str("path", path).Int("count", len(categories)).Msg("Loaded category taxonomy")

	return &Service{categories: categories, logger: logger}, nil
}

// Categories returns a copy of the allowed category list
func (s *Service) Categories() []string {
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

// Contains reports whether name is an allowed category
func (s *Service) Contains(name string) bool {
	for _, c := range s.categories {
		if c == name {
			return true
		}
	}
	return false
}
