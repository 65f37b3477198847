package anthropic

import "time"

// Config holds the Anthropic provider configuration.
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxTokens is sent when a call does not set one; the Messages API
	// requires it.
	MaxTokens int `mapstructure:"max_tokens"`
}

// DefaultConfig returns sensible defaults for Anthropic.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://api.anthropic.com",
		Model:     "claude-sonnet-4-5-20250929",
		Timeout:   2 * time.Minute,
		MaxTokens: 4096,
	}
}
