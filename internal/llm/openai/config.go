package openai

import "time"

// Config holds the configuration of the OpenAI-compatible backend.
type Config struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`

	// Timeout bounds each attempt until response headers arrive.
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`

	// Client-side pacing; zero RequestsPerSecond disables it.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// DefaultConfig returns defaults for the SiliconFlow endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.siliconflow.cn/v1",
		Model:       "deepseek-ai/DeepSeek-V2.5",
		Timeout:     60 * time.Second,
		MaxAttempts: 3,
	}
}
