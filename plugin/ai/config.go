package ai

import (
	"errors"
	"time"

	"github.com/ayatoki/kiroku/internal/profile"
)

const (
	defaultMaxTokens   = 512
	defaultTemperature = 0.1
	defaultMaxRetries  = 3
	defaultTimeout     = 30 * time.Second
)

// LLMConfig configures the chat-completion provider behind the semantic
// classifier. Any OpenAI-compatible endpoint works; DeepSeek is the default.
type LLMConfig struct {
	Provider    string // deepseek, openai, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	MaxRetries  int
	Timeout     time.Duration
}

// NewLLMConfigFromProfile derives the classifier configuration from the
// server profile.
func NewLLMConfigFromProfile(p *profile.Profile) *LLMConfig {
	cfg := &LLMConfig{
		Provider:    p.AIProvider,
		Model:       p.AIModel,
		APIKey:      p.AIAPIKey,
		BaseURL:     p.AIBaseURL,
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
		MaxRetries:  p.AIMaxRetries,
		Timeout:     p.AITimeout(),
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg
}

// Validate validates the configuration.
func (c *LLMConfig) Validate() error {
	if c.Provider == "" {
		return errors.New("LLM provider is required")
	}

	if c.Model == "" {
		return errors.New("LLM model is required")
	}

	if c.Provider != "ollama" && c.APIKey == "" {
		return errors.New("LLM API key is required")
	}

	return nil
}
