package plan

import (
	"context"
	"iter"
	"time"

	"github.com/HerbHall/plangen/pkg/llm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WeeklyPlan generates a complete weekly plan. The review (only when a last
// week plan is given) and the reflection run alongside the main generation;
// if either fails its section is left empty and the plan still succeeds.
func (s *Service) WeeklyPlan(ctx context.Context, req WeeklyRequest) (FillPayload, error) {
	start := time.Now()
	vars := req.vars()

	var (
		generated  map[string]any
		attempts   int
		review     string
		reflection string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		generated, attempts, err = s.generate(gctx, TemplateWeekly, vars, WeeklyShape)
		return err
	})
	if req.LastWeekPlan != "" {
		g.Go(func() error {
			review = s.optional(gctx, TemplateReview, func(ctx context.Context) (string, error) {
				return s.Review(ctx, req)
			})
			return nil
		})
	}
	g.Go(func() error {
		reflection = s.optional(gctx, TemplateReflection, func(ctx context.Context) (string, error) {
			return s.Reflection(ctx, req)
		})
		return nil
	})

	err := g.Wait()
	s.record(ctx, KindWeekly, start, attempts, err)
	if err != nil {
		return nil, err
	}

	payload := ToFillPayload(generated, WeeklyShape)
	payload[FieldLastWeekReview] = review
	payload[FieldWeekReview] = review
	payload[FieldReflection] = reflection
	payload["班级"] = req.ClassName
	payload["第几周"] = req.WeekNumber
	payload["教师"] = req.Teacher
	payload["日期"] = req.DateRange
	payload["本月主题"] = req.Theme

	s.logger.Info("weekly plan generated",
		zap.String("theme", req.Theme),
		zap.Int("attempts", attempts),
		zap.Duration("duration", time.Since(start)),
	)
	return payload, nil
}

// optional runs an optional section. Failures are logged and yield "".
func (s *Service) optional(ctx context.Context, section string, fn func(context.Context) (string, error)) string {
	text, err := fn(ctx)
	if err != nil {
		if isCancellation(err) {
			s.logger.Debug("optional section cancelled", zap.String("section", section))
		} else {
			s.logger.Warn("optional section failed, leaving it empty", zap.String("section", section), zap.Error(err))
		}
		return ""
	}
	return text
}

// StreamWeeklyPlan streams the raw weekly plan reply. Fragments are passed
// through unrepaired; the caller assembles and parses the full text.
func (s *Service) StreamWeeklyPlan(ctx context.Context, req WeeklyRequest) iter.Seq2[string, error] {
	messages, err := s.conversation(TemplateWeekly, req.vars())
	if err != nil {
		return llm.StreamError(err)
	}

	return func(yield func(string, error) bool) {
		start := time.Now()
		var streamErr error
		defer func() { s.record(ctx, KindWeeklyStream, start, 1, streamErr) }()

		for fragment, err := range s.provider.Stream(ctx, messages, s.callOptions()...) {
			if err != nil {
				streamErr = err
				yield("", err)
				return
			}
			if !yield(fragment, nil) {
				return
			}
		}
	}
}
