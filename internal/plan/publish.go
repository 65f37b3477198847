package plan

import (
	"context"
	"errors"
	"fmt"
)

// Publisher renders a fill payload into a document and stores it.
// Implementations live outside this module.
type Publisher interface {
	Render(ctx context.Context, template string, fields FillPayload) ([]byte, error)
	Upload(ctx context.Context, key string, content []byte, contentType string) (string, error)
}

// Document templates and content type used when publishing.
const (
	WeeklyDocument  = "weekly_plan_template.docx"
	DailyDocument   = "daily_plan_template.docx"
	DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrNoPublisher is returned by Publish when no Publisher is configured.
var ErrNoPublisher = errors.New("no publisher configured")

// CanPublish reports whether a Publisher is configured.
func (s *Service) CanPublish() bool { return s.publisher != nil }

// Publish renders fields with the given document template, uploads the
// result under key and returns its URL.
func (s *Service) Publish(ctx context.Context, template, key string, fields FillPayload) (string, error) {
	if s.publisher == nil {
		return "", ErrNoPublisher
	}
	doc, err := s.publisher.Render(ctx, template, fields)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", template, err)
	}
	url, err := s.publisher.Upload(ctx, key, doc, DocxContentType)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return url, nil
}

// WeeklyKey names the stored weekly document.
func WeeklyKey(req WeeklyRequest) string {
	return fmt.Sprintf("第%s周周计划.docx", req.WeekNumber)
}

// DailyKey names the stored document of one day.
func DailyKey(weekNumber, date string) string {
	return fmt.Sprintf("第%s周%s.docx", weekNumber, date)
}
