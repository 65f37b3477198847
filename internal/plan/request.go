package plan

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRequest is returned for requests that pass struct validation but
// still cannot be planned, such as an unparseable start date.
var ErrInvalidRequest = errors.New("invalid plan request")

// Age groups accepted in requests.
const (
	AgeSmall  = "small"
	AgeMedium = "medium"
	AgeLarge  = "large"
)

var ageTexts = map[string]string{
	AgeSmall:  "3~4岁",
	AgeMedium: "4~5岁",
	AgeLarge:  "5~6岁",
}

// AgeText returns the age range phrase used in prompts. Unknown or empty
// groups fall back to the middle group.
func AgeText(group string) string {
	if t, ok := ageTexts[group]; ok {
		return t
	}
	return ageTexts[AgeMedium]
}

// WeeklyRequest describes one weekly plan. ClassName, Teacher, DateRange and
// WeekNumber are copied into the payload verbatim; the rest steer generation.
type WeeklyRequest struct {
	AgeGroup      string   `json:"ageGroup" validate:"omitempty,oneof=small medium large"`
	Theme         string   `json:"theme" validate:"required"`
	WeekNumber    string   `json:"weekNumber"`
	Requirements  string   `json:"requirements"`
	LastWeekPlan  string   `json:"lastWeekPlan"`
	SelectedNames []string `json:"selectedNames" validate:"max=20"`
	ClassName     string   `json:"className"`
	Teacher       string   `json:"teacher"`
	DateRange     string   `json:"dateRange"`
}

func (r WeeklyRequest) vars() map[string]any {
	return map[string]any{
		"ageGroup":        r.AgeGroup,
		"ageText":         AgeText(r.AgeGroup),
		"theme":           r.Theme,
		"weekNumber":      r.WeekNumber,
		"requirements":    r.Requirements,
		"lastWeekPlan":    r.LastWeekPlan,
		"hasLastWeekPlan": r.LastWeekPlan != "",
		"selectedNames":   joinNames(r.SelectedNames),
	}
}

func joinNames(names []string) string {
	return strings.Join(names, "、")
}

// MaxDays is the most daily plans generated for one request.
const MaxDays = 5

// DailyRequest asks for one daily plan per activity, on consecutive days
// from StartDate (YYYY-MM-DD). Activities beyond MaxDays are ignored.
type DailyRequest struct {
	Activities []string `json:"activities" validate:"required,min=1,dive,required"`
	DateRange  string   `json:"dateRange" validate:"required"`
	ClassInfo  string   `json:"classInfo" validate:"required"`
	Teacher    string   `json:"teacher" validate:"required"`
	StartDate  string   `json:"startDate" validate:"required"`
	AgeGroup   string   `json:"ageGroup" validate:"omitempty,oneof=small medium large"`
	WeekNumber string   `json:"weekNumber"`
}

// DailyResult is the outcome for one day. A failed day carries Err and no
// fields; the other days are unaffected.
type DailyResult struct {
	Day      int         `json:"day"`
	Date     string      `json:"date"`
	Weekday  string      `json:"weekday"`
	Activity string      `json:"activity"`
	Fields   FillPayload `json:"fields,omitempty"`
	URL      string      `json:"url,omitempty"`
	Err      error       `json:"-"`
}

var weekdays = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

// Weekday returns the Chinese weekday name of t.
func Weekday(t time.Time) string {
	return weekdays[t.Weekday()]
}

// FormatDate formats t as month.day without padding, e.g. 5.6.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d.%d", int(t.Month()), t.Day())
}

func parseStartDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start date %q is not YYYY-MM-DD", ErrInvalidRequest, s)
	}
	return t, nil
}
