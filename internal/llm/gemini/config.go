package gemini

import "time"

// Config holds the Gemini provider configuration.
type Config struct {
	// BaseURL overrides the Gemini API endpoint. Empty uses the SDK default.
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns sensible defaults for the Gemini API.
func DefaultConfig() Config {
	return Config{
		Model:   "gemini-2.0-flash",
		Timeout: 2 * time.Minute,
	}
}
