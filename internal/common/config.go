package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Jobs        JobsConfig       `toml:"jobs"`
	Taxonomy    TaxonomyConfig   `toml:"taxonomy"`
	Processing  ProcessingConfig `toml:"processing"`
	WebSocket   WebSocketConfig  `toml:"websocket"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	LLM         LLMConfig        `toml:"llm"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level         string   `toml:"level" validate:"oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Format        string   `toml:"format"`                                       // "json" or "text"
	Output        []string `toml:"output"`                                       // "stdout", "file"
	TimeFormat    string   `toml:"time_format"`                                  // Time format for logs (default: "15:04:05.000")
	MinEventLevel string   `toml:"min_event_level"`                              // Minimum log level to publish as events to UI
}

// JobsConfig contains configuration for the categorization job engine
type JobsConfig struct {
	Concurrency       int    `toml:"concurrency" validate:"gte=1,lte=50"`     // Default worker count per job
	MaxConcurrency    int    `toml:"max_concurrency" validate:"gte=1,lte=50"` // Hard cap on per-request worker counts
	Retention         string `toml:"retention"`                               // How long terminal jobs stay queryable, e.g. "2h"
	HeartbeatInterval string `toml:"heartbeat_interval"`                      // SSE heartbeat cadence, e.g. "2s"
	ClassifyTimeout   string `toml:"classify_timeout"`                        // Per-video classifier call timeout
}

// TaxonomyConfig contains configuration for the allowed category list
type TaxonomyConfig struct {
	Path string `toml:"path"` // YAML file with allowed categories (empty = built-in defaults)
}

// ProcessingConfig controls scheduled auto-categorization of the backlog
type ProcessingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format
	Owner    string `toml:"owner"`    // Library owner the scheduled run categorizes
	Limit    int    `toml:"limit"`    // Max videos to categorize per scheduled run
}

// WebSocketConfig contains configuration for WebSocket event broadcasting
type WebSocketConfig struct {
	// Whitelist of event types to broadcast via WebSocket. Empty list allows all events.
	AllowedEvents []string `toml:"allowed_events"`
	// Throttle intervals for high-frequency events. Map of event type to duration string.
	// Example: {"job_progress": "500ms"}
	ThrottleIntervals map[string]string `toml:"throttle_intervals"`
}

// GeminiConfig contains Google Gemini API configuration for the classifier
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for classification (default: "gemini-3-flash-preview")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "30s")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// ClaudeConfig contains Anthropic Claude API configuration for the classifier
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for classification (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 1024)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "30s")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"` // "gemini" or "claude"
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in curator.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			Output:        []string{"stdout", "file"},
			MinEventLevel: "info",
		},
		Jobs: JobsConfig{
			Concurrency:       10,   // Default workers per categorization job
			MaxConcurrency:    50,   // Requests asking for more are clamped
			Retention:         "2h", // Terminal jobs stay queryable for 2 hours
			HeartbeatInterval: "2s",
			ClassifyTimeout:   "30s",
		},
		Taxonomy: TaxonomyConfig{
			Path: "", // Built-in category list unless a YAML file is provided
		},
		Processing: ProcessingConfig{
			Enabled:  false,         // Disabled by default - user must explicitly opt-in
			Schedule: "0 */6 * * *", // Every 6 hours
			Owner:    "local",
			Limit:    500, // Max videos per scheduled run
		},
		WebSocket: WebSocketConfig{
			// Empty AllowedEvents allows all events
			AllowedEvents: []string{},
			// Throttle high-frequency events to prevent flooding during large jobs
			ThrottleIntervals: map[string]string{
				"job_progress": "500ms",
			},
		},
		Gemini: GeminiConfig{
			APIKey:      "", // User must provide API key (no fallback)
			Model:       "gemini-3-flash-preview",
			Timeout:     "30s",
			RateLimit:   "4s", // Default to 4s (15 RPM) for free tier
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			APIKey:      "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   1024,
			Timeout:     "30s",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints plus the duration fields the
// validator tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"jobs.retention":          c.Jobs.Retention,
		"jobs.heartbeat_interval": c.Jobs.HeartbeatInterval,
		"jobs.classify_timeout":   c.Jobs.ClassifyTimeout,
		"gemini.timeout":          c.Gemini.Timeout,
		"gemini.rate_limit":       c.Gemini.RateLimit,
		"claude.timeout":          c.Claude.Timeout,
		"claude.rate_limit":       c.Claude.RateLimit,
	}
	for field, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", field, err)
		}
	}

	if c.Jobs.Concurrency > c.Jobs.MaxConcurrency {
		return fmt.Errorf("invalid configuration: jobs.concurrency (%d) exceeds jobs.max_concurrency (%d)",
			c.Jobs.Concurrency, c.Jobs.MaxConcurrency)
	}

	if c.Processing.Enabled {
		if err := ValidateJobSchedule(c.Processing.Schedule); err != nil {
			return fmt.Errorf("invalid configuration: processing.schedule: %w", err)
		}
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: CURATOR_ENV, fallback: GO_ENV)
	if env := os.Getenv("CURATOR_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("CURATOR_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("CURATOR_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("CURATOR_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("CURATOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("CURATOR_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("CURATOR_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if minEventLevel := os.Getenv("CURATOR_LOG_MIN_EVENT_LEVEL"); minEventLevel != "" {
		config.Logging.MinEventLevel = minEventLevel
	}

	// Jobs configuration
	if concurrency := os.Getenv("CURATOR_JOBS_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Jobs.Concurrency = c
		}
	}
	if maxConcurrency := os.Getenv("CURATOR_JOBS_MAX_CONCURRENCY"); maxConcurrency != "" {
		if mc, err := strconv.Atoi(maxConcurrency); err == nil {
			config.Jobs.MaxConcurrency = mc
		}
	}
	if retention := os.Getenv("CURATOR_JOBS_RETENTION"); retention != "" {
		config.Jobs.Retention = retention
	}
	if heartbeat := os.Getenv("CURATOR_JOBS_HEARTBEAT_INTERVAL"); heartbeat != "" {
		config.Jobs.HeartbeatInterval = heartbeat
	}
	if classifyTimeout := os.Getenv("CURATOR_JOBS_CLASSIFY_TIMEOUT"); classifyTimeout != "" {
		config.Jobs.ClassifyTimeout = classifyTimeout
	}

	// Taxonomy configuration
	if taxonomyPath := os.Getenv("CURATOR_TAXONOMY_PATH"); taxonomyPath != "" {
		config.Taxonomy.Path = taxonomyPath
	}

	// Processing configuration
	if enabled := os.Getenv("CURATOR_PROCESSING_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Processing.Enabled = e
		}
	}
	if schedule := os.Getenv("CURATOR_PROCESSING_SCHEDULE"); schedule != "" {
		config.Processing.Schedule = schedule
	}
	if owner := os.Getenv("CURATOR_PROCESSING_OWNER"); owner != "" {
		config.Processing.Owner = owner
	}
	if limit := os.Getenv("CURATOR_PROCESSING_LIMIT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			config.Processing.Limit = l
		}
	}

	// WebSocket configuration
	if allowedEvents := os.Getenv("CURATOR_WEBSOCKET_ALLOWED_EVENTS"); allowedEvents != "" {
		events := []string{}
		for _, e := range strings.Split(allowedEvents, ",") {
			if trimmed := strings.TrimSpace(e); trimmed != "" {
				events = append(events, trimmed)
			}
		}
		if len(events) > 0 {
			config.WebSocket.AllowedEvents = events
		}
	}
	if progressThrottle := os.Getenv("CURATOR_WEBSOCKET_THROTTLE_JOB_PROGRESS"); progressThrottle != "" {
		if _, err := time.ParseDuration(progressThrottle); err == nil {
			if config.WebSocket.ThrottleIntervals == nil {
				config.WebSocket.ThrottleIntervals = make(map[string]string)
			}
			config.WebSocket.ThrottleIntervals["job_progress"] = progressThrottle
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("CURATOR_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("CURATOR_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if timeout := os.Getenv("CURATOR_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("CURATOR_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}
	if temperature := os.Getenv("CURATOR_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("CURATOR_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // CURATOR_ prefix takes priority
	}
	if model := os.Getenv("CURATOR_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("CURATOR_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("CURATOR_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("CURATOR_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}
	if temperature := os.Getenv("CURATOR_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("CURATOR_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Duration parses a config duration string, falling back to def when the
// field is empty or malformed.
func Duration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

// ValidateJobSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateJobSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	// Check for minimum 5-minute interval via the minute field
	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]

	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	if strings.HasPrefix(minuteField, "*/") {
		intervalStr := strings.TrimPrefix(minuteField, "*/")
		interval, err := strconv.Atoi(intervalStr)
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
