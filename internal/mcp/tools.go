package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/HerbHall/plangen/internal/limiter"
	"github.com/HerbHall/plangen/internal/plan"
	"go.uber.org/zap"
)

// Tool input types. Every field is optional in the generated schema; the
// plan validator enforces what is required.

type weeklyPlanInput struct {
	Theme         string   `json:"theme,omitempty" jsonschema:"Monthly theme the week belongs to (required)"`
	AgeGroup      string   `json:"age_group,omitempty" jsonschema:"small, medium or large class (default medium)"`
	WeekNumber    string   `json:"week_number,omitempty" jsonschema:"Week number within the term"`
	Requirements  string   `json:"requirements,omitempty" jsonschema:"Extra requirements from the teacher"`
	LastWeekPlan  string   `json:"last_week_plan,omitempty" jsonschema:"Last week's plan text; enables the weekly review section"`
	SelectedNames []string `json:"selected_names,omitempty" jsonschema:"Children to mention in the observation notes (at most 20)"`
	ClassName     string   `json:"class_name,omitempty" jsonschema:"Class name copied into the plan"`
	Teacher       string   `json:"teacher,omitempty" jsonschema:"Teacher names copied into the plan"`
	DateRange     string   `json:"date_range,omitempty" jsonschema:"Date range copied into the plan, for example 5.6-5.10"`
}

func (in weeklyPlanInput) request() plan.WeeklyRequest {
	return plan.WeeklyRequest{
		AgeGroup:      in.AgeGroup,
		Theme:         in.Theme,
		WeekNumber:    in.WeekNumber,
		Requirements:  in.Requirements,
		LastWeekPlan:  in.LastWeekPlan,
		SelectedNames: in.SelectedNames,
		ClassName:     in.ClassName,
		Teacher:       in.Teacher,
		DateRange:     in.DateRange,
	}
}

type dailyPlansInput struct {
	Activities []string `json:"activities,omitempty" jsonschema:"One collective activity per day, Monday first (at most 5 are used)"`
	StartDate  string   `json:"start_date,omitempty" jsonschema:"Date of the first day as YYYY-MM-DD"`
	DateRange  string   `json:"date_range,omitempty" jsonschema:"Date range of the week, for example 5.6-5.10"`
	ClassInfo  string   `json:"class_info,omitempty" jsonschema:"Class name"`
	Teacher    string   `json:"teacher,omitempty" jsonschema:"Teacher names"`
	AgeGroup   string   `json:"age_group,omitempty" jsonschema:"small, medium or large class (default medium)"`
	WeekNumber string   `json:"week_number,omitempty" jsonschema:"Week number within the term"`
}

func (in dailyPlansInput) request() plan.DailyRequest {
	return plan.DailyRequest{
		Activities: in.Activities,
		DateRange:  in.DateRange,
		ClassInfo:  in.ClassInfo,
		Teacher:    in.Teacher,
		StartDate:  in.StartDate,
		AgeGroup:   in.AgeGroup,
		WeekNumber: in.WeekNumber,
	}
}

type listGenerationsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of records to return (default 20)"`
}

// dailyOutcome is one day of a generate_daily_plans result.
type dailyOutcome struct {
	Date    string           `json:"date"`
	Weekday string           `json:"weekday"`
	Fields  plan.FillPayload `json:"fields,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// registerTools adds all MCP tools to the server.
func (s *Server) registerTools() {
	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "generate_weekly_plan",
		Description: "Generate a kindergarten weekly plan for a theme. Returns the filled plan fields as a JSON object keyed by section name.",
	}, s.handleWeeklyPlan)

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "generate_daily_plans",
		Description: "Generate up to five daily plans, one per activity on consecutive days. Days that fail carry an error and do not stop the others.",
	}, s.handleDailyPlans)

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "list_generations",
		Description: "List the most recent generation runs with their kind, model, status and duration.",
	}, s.handleListGenerations)
}

func (s *Server) handleWeeklyPlan(ctx context.Context, _ *sdkmcp.CallToolRequest, input weeklyPlanInput) (*sdkmcp.CallToolResult, any, error) {
	req := input.request()
	if err := s.validate.Struct(&req); err != nil {
		return errorResult(fmt.Sprintf("invalid input: %v", err)), nil, nil
	}

	fields, err := limiter.Do(ctx, s.limiter, func(ctx context.Context) (plan.FillPayload, error) {
		return s.service.WeeklyPlan(ctx, req)
	})
	if err != nil {
		s.logger.Warn("mcp weekly plan failed", zap.Error(err))
		return errorResult(fmt.Sprintf("failed to generate weekly plan: %v", err)), nil, nil
	}
	return textResult(writeToolJSON(fields)), nil, nil
}

func (s *Server) handleDailyPlans(ctx context.Context, _ *sdkmcp.CallToolRequest, input dailyPlansInput) (*sdkmcp.CallToolResult, any, error) {
	req := input.request()
	if err := s.validate.Struct(&req); err != nil {
		return errorResult(fmt.Sprintf("invalid input: %v", err)), nil, nil
	}

	results, err := limiter.Do(ctx, s.limiter, func(ctx context.Context) ([]plan.DailyResult, error) {
		return s.service.DailyPlans(ctx, req)
	})
	if err != nil {
		s.logger.Warn("mcp daily plans failed", zap.Error(err))
		return errorResult(fmt.Sprintf("failed to generate daily plans: %v", err)), nil, nil
	}

	out := make([]dailyOutcome, len(results))
	for i, r := range results {
		out[i] = dailyOutcome{Date: r.Date, Weekday: r.Weekday, Fields: r.Fields}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return textResult(writeToolJSON(out)), nil, nil
}

func (s *Server) handleListGenerations(ctx context.Context, _ *sdkmcp.CallToolRequest, input listGenerationsInput) (*sdkmcp.CallToolResult, any, error) {
	if s.history == nil {
		return textResult("Generation history is not kept by this server."), nil, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	gens, err := s.history.Recent(ctx, limit)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list generations: %v", err)), nil, nil
	}
	return textResult(writeToolJSON(gens)), nil, nil
}

func textResult(text string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{
			&sdkmcp.TextContent{Text: text},
		},
	}
}

func errorResult(msg string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{
			&sdkmcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

func writeToolJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}
