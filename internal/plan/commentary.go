package plan

import "context"

// Review writes the look back on last week's plan. It returns "" when the
// request carries no last week plan.
func (s *Service) Review(ctx context.Context, req WeeklyRequest) (string, error) {
	if req.LastWeekPlan == "" {
		return "", nil
	}
	return s.text(ctx, TemplateReview, map[string]any{
		"lastWeekPlan":  req.LastWeekPlan,
		"ageText":       AgeText(req.AgeGroup),
		"selectedNames": joinNames(req.SelectedNames),
	})
}

// Reflection writes the observation and reflection section for the month
// theme.
func (s *Service) Reflection(ctx context.Context, req WeeklyRequest) (string, error) {
	return s.text(ctx, TemplateReflection, map[string]any{
		"theme":         req.Theme,
		"ageText":       AgeText(req.AgeGroup),
		"requirements":  req.Requirements,
		"selectedNames": joinNames(req.SelectedNames),
	})
}
