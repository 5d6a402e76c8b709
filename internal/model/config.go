package model

import (
	"fmt"
	"strings"
	"time"
)

// DefaultPromptTemplate is used when no custom template is configured.
// Custom templates must carry both placeholders.
const DefaultPromptTemplate = `Classify this text into ONE category from the list.

Categories:
{categories}

Text: "{text}"

Answer with the category name ONLY.`

// Config is the complete Taxa configuration
type Config struct {
	LLM            LLMConfig            `yaml:"llm" mapstructure:"llm"`
	Classification ClassificationConfig `yaml:"classification" mapstructure:"classification"`
	Validation     ValidationConfig     `yaml:"validation" mapstructure:"validation"`
	Cache          CacheConfig          `yaml:"cache" mapstructure:"cache"`
	RateLimit      RateLimitConfig      `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency    ConcurrencyConfig    `yaml:"concurrency" mapstructure:"concurrency"`
	Log            LogConfig            `yaml:"log" mapstructure:"log"`
}

// LLMConfig holds remote endpoint settings
type LLMConfig struct {
	// Provider name: "openai" (OpenAI-compatible endpoints via BaseURL)
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Model name (provider-specific)
	Model string `yaml:"model" mapstructure:"model"`

	// APIKey for the provider (recommended: environment variable)
	APIKey string `yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL for custom endpoints
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"`

	Temperature float32       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries bounds dispatch attempts per value
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	// BackoffFactor grows the retry delay: min(factor^attempt, 60s)
	BackoffFactor float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`
}

// ClassificationConfig holds the taxonomy and prompt settings
type ClassificationConfig struct {
	// Categories is the closed target category set
	Categories []string `yaml:"categories" mapstructure:"categories"`

	// UnknownCategory is the fallback label for unmatched or failed values
	UnknownCategory string `yaml:"unknown_category" mapstructure:"unknown_category"`

	// IncludeUnknownInCategories appends UnknownCategory to Categories
	IncludeUnknownInCategories bool `yaml:"include_unknown_in_categories" mapstructure:"include_unknown_in_categories"`

	// BatchSize is the base batch size, scaled x4 (capped at 200) for the
	// deduplicated workload
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`

	// PromptTemplate must contain {categories} and {text} placeholders
	PromptTemplate string `yaml:"prompt_template" mapstructure:"prompt_template"`
}

// ValidationConfig controls response-to-category reconciliation
type ValidationConfig struct {
	// StrictMatching disables the containment and word-overlap tiers
	StrictMatching bool `yaml:"strict_matching" mapstructure:"strict_matching"`

	// FallbackStrategy for unmatched responses ("unknown")
	FallbackStrategy string `yaml:"fallback_strategy" mapstructure:"fallback_strategy"`
}

// CacheConfig controls the persistent classification cache
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Directory string `yaml:"directory" mapstructure:"directory"`

	// TTLDays is the entry time-to-live in days
	TTLDays int `yaml:"ttl_days" mapstructure:"ttl_days"`

	// Preload logs the loaded entry count at construction
	Preload bool `yaml:"preload" mapstructure:"preload"`
}

// RateLimitConfig controls outbound request admission
type RateLimitConfig struct {
	// RequestsPerMinute is the budget for any trailing 60-second window
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`

	// BatchDelay paces batch dispatch (0 disables pacing)
	BatchDelay time.Duration `yaml:"batch_delay" mapstructure:"batch_delay"`
}

// ConcurrencyConfig controls the worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LogConfig controls logging output
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider:      "openai",
			Model:         "gpt-4o-mini",
			Temperature:   0.0,
			MaxTokens:     20,
			Timeout:       10 * time.Second,
			MaxRetries:    2,
			BackoffFactor: 1.5,
		},
		Classification: ClassificationConfig{
			UnknownCategory:            "Other/Unknown",
			IncludeUnknownInCategories: true,
			BatchSize:                  50,
			PromptTemplate:             DefaultPromptTemplate,
		},
		Validation: ValidationConfig{
			StrictMatching:   false,
			FallbackStrategy: "unknown",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Directory: "taxa-cache",
			TTLDays:   365,
			Preload:   true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 1000,
			BatchDelay:        20 * time.Millisecond,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration once at construction time
func (c *Config) Validate() error {
	if len(c.Classification.Categories) == 0 {
		return fmt.Errorf("no target categories configured")
	}
	if c.Classification.UnknownCategory == "" {
		return fmt.Errorf("unknown_category must not be empty")
	}
	if !strings.Contains(c.Classification.PromptTemplate, "{categories}") ||
		!strings.Contains(c.Classification.PromptTemplate, "{text}") {
		return fmt.Errorf("prompt_template must contain {categories} and {text} placeholders")
	}
	if c.Classification.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.Classification.BatchSize)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model must not be empty")
	}
	if c.LLM.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.BackoffFactor < 1 {
		return fmt.Errorf("backoff_factor must be >= 1, got %g", c.LLM.BackoffFactor)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive, got %d", c.RateLimit.RequestsPerMinute)
	}
	if c.Concurrency.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Concurrency.Workers)
	}
	if c.Cache.Enabled && c.Cache.TTLDays <= 0 {
		return fmt.Errorf("cache ttl_days must be positive, got %d", c.Cache.TTLDays)
	}
	return nil
}

// TargetCategories returns the category set with the unknown category
// appended when configured and not already present.
func (c *Config) TargetCategories() []string {
	cats := make([]string, len(c.Classification.Categories))
	copy(cats, c.Classification.Categories)

	if !c.Classification.IncludeUnknownInCategories {
		return cats
	}
	for _, cat := range cats {
		if cat == c.Classification.UnknownCategory {
			return cats
		}
	}
	return append(cats, c.Classification.UnknownCategory)
}
