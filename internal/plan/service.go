// Package plan orchestrates weekly and daily plan generation: it renders the
// prompt, calls the provider, repairs and validates the reply and turns it
// into a fill payload for the document renderer.
package plan

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/HerbHall/plangen/internal/prompt"
	"github.com/HerbHall/plangen/internal/repair"
	"github.com/HerbHall/plangen/internal/store"
	"github.com/HerbHall/plangen/pkg/llm"
	"go.uber.org/zap"
)

// Template names used by the service.
const (
	TemplateWeekly     = "weekly-plan"
	TemplateDaily      = "daily-plan"
	TemplateReview     = "review"
	TemplateReflection = "reflection"
)

// Generation kinds written to the history.
const (
	KindWeekly       = "weekly"
	KindWeeklyStream = "weekly_stream"
	KindDaily        = "daily"
)

// Config tunes generation.
type Config struct {
	// MaxAttempts bounds how often a reply that fails repair or shape
	// validation is generated again. Provider errors are never re-invoked.
	MaxAttempts      int     `mapstructure:"max_attempts" validate:"min=1,max=5"`
	Temperature      float64 `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens        int     `mapstructure:"max_tokens" validate:"min=0"`
	DailyConcurrency int     `mapstructure:"daily_concurrency" validate:"min=1,max=5"`
}

// DefaultConfig returns the generation defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      2,
		Temperature:      llm.DefaultTemperature,
		MaxTokens:        4096,
		DailyConcurrency: 3,
	}
}

// Recorder persists one row per orchestrated run.
type Recorder interface {
	Record(ctx context.Context, g *store.Generation) error
}

// Service composes the template store, a provider and the optional history
// and publishing collaborators.
type Service struct {
	templates *prompt.Store
	provider  llm.Provider
	cfg       Config
	recorder  Recorder
	publisher Publisher
	logger    *zap.Logger
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

// WithRecorder records every run in the generation history.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithPublisher enables Publish.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService creates a Service.
func NewService(templates *prompt.Store, provider llm.Provider, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.DailyConcurrency < 1 {
		cfg.DailyConcurrency = 1
	}
	s := &Service{
		templates: templates,
		provider:  provider,
		cfg:       cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) callOptions() []llm.CallOption {
	opts := []llm.CallOption{llm.WithTemperature(s.cfg.Temperature)}
	if s.cfg.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(s.cfg.MaxTokens))
	}
	return opts
}

// conversation renders the named template. fieldList is derived from the
// template's declared fields.
func (s *Service) conversation(name string, vars map[string]any) ([]llm.Message, error) {
	t, err := s.templates.Load(name)
	if err != nil {
		return nil, err
	}
	vars = maps.Clone(vars)
	vars["fieldList"] = strings.Join(t.Fields, "、")

	rendered, err := s.templates.Get(name, vars)
	if err != nil {
		return nil, err
	}
	return llm.Conversation(rendered.System, rendered.User), nil
}

// generate runs one structured generation and returns the validated object
// and the number of provider calls made.
func (s *Service) generate(ctx context.Context, name string, vars map[string]any, shape Shape) (map[string]any, int, error) {
	messages, err := s.conversation(name, vars)
	if err != nil {
		return nil, 0, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		resp, err := s.provider.Invoke(ctx, messages, s.callOptions()...)
		if err != nil {
			return nil, attempt, fmt.Errorf("generate %s: %w", name, err)
		}

		obj, err := decode(resp.Content, shape)
		if err == nil {
			return obj, attempt, nil
		}
		lastErr = err
		s.logger.Warn("generated output rejected",
			zap.String("template", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.cfg.MaxAttempts),
			zap.Error(err),
		)
	}
	return nil, s.cfg.MaxAttempts, fmt.Errorf("generate %s: %w", name, lastErr)
}

// decode repairs content into an object, tidies its strings and validates it.
func decode(content string, shape Shape) (map[string]any, error) {
	obj, err := repair.ParseObject(content)
	if err != nil {
		return nil, err
	}
	obj, _ = repair.ApplyToEveryStringField(obj).(map[string]any)
	repair.CleanFields(obj, shape.TextFields()...)
	return shape.Validate(obj)
}

// text runs one free-text generation.
func (s *Service) text(ctx context.Context, name string, vars map[string]any) (string, error) {
	messages, err := s.conversation(name, vars)
	if err != nil {
		return "", err
	}
	resp, err := s.provider.Invoke(ctx, messages, s.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", name, err)
	}
	return strings.TrimSpace(repair.NormalizeNewlines(resp.Content)), nil
}

// record writes the history row. It outlives request cancellation so that
// aborted runs are recorded too.
func (s *Service) record(ctx context.Context, kind string, start time.Time, attempts int, err error) {
	if s.recorder == nil {
		return
	}
	g := &store.Generation{
		Kind:       kind,
		Provider:   s.provider.Name(),
		Model:      s.provider.Model(),
		Status:     store.StatusSucceeded,
		Attempts:   attempts,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		g.Status = store.StatusFailed
		g.Error = err.Error()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if rerr := s.recorder.Record(ctx, g); rerr != nil {
		s.logger.Warn("record generation failed", zap.String("kind", kind), zap.Error(rerr))
	}
}

// Provider returns the backend used for generation.
func (s *Service) Provider() llm.Provider { return s.provider }

// isCancellation reports whether err comes from the caller giving up.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
