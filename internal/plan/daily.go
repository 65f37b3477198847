package plan

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DailyPlans generates one daily plan per activity, at most MaxDays, on
// consecutive days from the start date. Days run concurrently up to the
// configured limit. A failed day is reported in its result and does not stop
// the others; the call only fails when no day succeeded.
func (s *Service) DailyPlans(ctx context.Context, req DailyRequest) ([]DailyResult, error) {
	first, err := parseStartDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	if len(req.Activities) == 0 {
		return nil, fmt.Errorf("%w: no activities", ErrInvalidRequest)
	}

	activities := req.Activities[:min(len(req.Activities), MaxDays)]
	results := make([]DailyResult, len(activities))

	var g errgroup.Group
	g.SetLimit(s.cfg.DailyConcurrency)
	for i, activity := range activities {
		day := first.AddDate(0, 0, i)
		results[i] = DailyResult{
			Day:      i + 1,
			Date:     FormatDate(day),
			Weekday:  Weekday(day),
			Activity: activity,
		}
		g.Go(func() error {
			results[i].Fields, results[i].Err = s.dailyPlan(ctx, req, results[i])
			if results[i].Err != nil {
				s.logger.Warn("daily plan failed",
					zap.Int("day", i+1),
					zap.String("activity", activity),
					zap.Error(results[i].Err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	for _, r := range results {
		if r.Err == nil {
			return results, nil
		}
	}
	return results, fmt.Errorf("all %d daily plans failed: %w", len(results), results[0].Err)
}

func (s *Service) dailyPlan(ctx context.Context, req DailyRequest, day DailyResult) (FillPayload, error) {
	start := time.Now()
	obj, attempts, err := s.generate(ctx, TemplateDaily, map[string]any{
		"activityName": day.Activity,
		"date":         day.Date,
		"weekday":      day.Weekday,
		"classInfo":    req.ClassInfo,
		"ageText":      AgeText(req.AgeGroup),
		"weekNumber":   req.WeekNumber,
	}, DailyShape)
	s.record(ctx, KindDaily, start, attempts, err)
	if err != nil {
		return nil, err
	}

	payload := ToFillPayload(obj, DailyShape)
	payload["日期"] = day.Date
	if payload["活动名称"] == "" {
		payload["活动名称"] = day.Activity
	}
	payload["班级"] = req.ClassInfo
	payload["教师"] = req.Teacher
	return payload, nil
}
