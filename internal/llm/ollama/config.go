package ollama

import "time"

// Config holds the Ollama provider configuration.
type Config struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`

	// Timeout bounds a whole call, including reading a streamed body.
	Timeout time.Duration `mapstructure:"timeout"`

	// KeepAlive controls how long Ollama keeps the model loaded after a
	// call. Zero leaves the server default.
	KeepAlive time.Duration `mapstructure:"keep_alive"`

	// NumCtx overrides the model's context window. A weekly plan prompt
	// plus its answer can outgrow small defaults.
	NumCtx int `mapstructure:"num_ctx"`
}

// DefaultConfig targets a local Ollama with a Chinese-capable model.
func DefaultConfig() Config {
	return Config{
		URL:     "http://localhost:11434",
		Model:   "qwen2.5:14b",
		Timeout: 5 * time.Minute,
		NumCtx:  8192,
	}
}
