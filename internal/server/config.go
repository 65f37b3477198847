package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/plangen/internal/llm"
	"github.com/HerbHall/plangen/internal/plan"
	"github.com/spf13/viper"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port" validate:"min=1,max=65535"`
	DevMode bool   `mapstructure:"dev_mode"`

	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout must cover the slowest generation, including retries.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// Per-client token bucket; the operational endpoints are exempt.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" validate:"min=1"`
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   6 * time.Minute,
		IdleTimeout:    60 * time.Second,
		RateLimitRPS:   5,
		RateLimitBurst: 20,
	}
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("plangen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/plangen")
	}

	// Environment variable support: PLANGEN_SERVER_PORT=9090
	v.SetEnvPrefix("PLANGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	srv := DefaultConfig()
	v.SetDefault("server.host", srv.Host)
	v.SetDefault("server.port", srv.Port)
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("server.read_timeout", srv.ReadTimeout)
	v.SetDefault("server.write_timeout", srv.WriteTimeout)
	v.SetDefault("server.idle_timeout", srv.IdleTimeout)
	v.SetDefault("server.rate_limit_rps", srv.RateLimitRPS)
	v.SetDefault("server.rate_limit_burst", srv.RateLimitBurst)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.path", "./data/plangen.db")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("prompt.dir", "")

	v.SetDefault("limiter.max_concurrent", 3)

	gen := plan.DefaultConfig()
	v.SetDefault("generation.max_attempts", gen.MaxAttempts)
	v.SetDefault("generation.temperature", gen.Temperature)
	v.SetDefault("generation.max_tokens", gen.MaxTokens)
	v.SetDefault("generation.daily_concurrency", gen.DailyConcurrency)

	m := llm.DefaultModuleConfig()
	v.SetDefault("llm.provider", m.Provider)
	v.SetDefault("llm.openai.base_url", m.OpenAI.BaseURL)
	v.SetDefault("llm.openai.model", m.OpenAI.Model)
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.timeout", m.OpenAI.Timeout)
	v.SetDefault("llm.openai.max_attempts", m.OpenAI.MaxAttempts)
	v.SetDefault("llm.openai.requests_per_second", m.OpenAI.RequestsPerSecond)
	v.SetDefault("llm.openai.burst", m.OpenAI.Burst)
	v.SetDefault("llm.ollama.url", m.Ollama.URL)
	v.SetDefault("llm.ollama.model", m.Ollama.Model)
	v.SetDefault("llm.ollama.timeout", m.Ollama.Timeout)
	v.SetDefault("llm.ollama.keep_alive", m.Ollama.KeepAlive)
	v.SetDefault("llm.ollama.num_ctx", m.Ollama.NumCtx)
	v.SetDefault("llm.anthropic.base_url", m.Anthropic.BaseURL)
	v.SetDefault("llm.anthropic.model", m.Anthropic.Model)
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.timeout", m.Anthropic.Timeout)
	v.SetDefault("llm.anthropic.max_tokens", m.Anthropic.MaxTokens)
	v.SetDefault("llm.gemini.base_url", m.Gemini.BaseURL)
	v.SetDefault("llm.gemini.model", m.Gemini.Model)
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.timeout", m.Gemini.Timeout)
	v.SetDefault("llm.mock.response", m.Mock.Response)
	v.SetDefault("llm.mock.stream_response", m.Mock.StreamResponse)
	v.SetDefault("llm.mock.invoke_delay", m.Mock.InvokeDelay)
	v.SetDefault("llm.mock.stream_delay", m.Mock.StreamDelay)
}
