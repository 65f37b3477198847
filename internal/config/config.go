// Package config turns the layered Viper settings into one validated,
// typed configuration for the plangen binary.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/plangen/internal/llm"
	"github.com/HerbHall/plangen/internal/plan"
	"github.com/HerbHall/plangen/internal/server"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the complete plangen configuration.
type Config struct {
	Server     server.Config    `mapstructure:"server"`
	Logging    Logging          `mapstructure:"logging"`
	Database   Database         `mapstructure:"database"`
	Auth       Auth             `mapstructure:"auth"`
	Prompt     Prompt           `mapstructure:"prompt"`
	LLM        llm.ModuleConfig `mapstructure:"llm"`
	Generation plan.Config      `mapstructure:"generation"`
	Limiter    Limiter          `mapstructure:"limiter"`
}

// Logging selects the zap level and encoder.
type Logging struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Database locates the SQLite file.
type Database struct {
	Path string `mapstructure:"path" validate:"required"`
}

// Auth configures accounts and tokens. An empty JWTSecret disables
// authentication entirely.
type Auth struct {
	JWTSecret  string        `mapstructure:"jwt_secret" validate:"omitempty,min=16"`
	TokenTTL   time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	BcryptCost int           `mapstructure:"bcrypt_cost" validate:"min=4,max=31"`
}

// Enabled reports whether a signing secret was configured.
func (a Auth) Enabled() bool { return a.JWTSecret != "" }

// Prompt points at an optional directory whose templates shadow the
// built-in ones.
type Prompt struct {
	Dir string `mapstructure:"dir"`
}

// Limiter bounds concurrent generations across all requests.
type Limiter struct {
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"min=1,max=64"`
}

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("invalid configuration")

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate config: %w", err)
		}
		problems := make([]string, len(verrs))
		for i, fe := range verrs {
			problems[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return &cfg, nil
}
