package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"practice-planner/internal/llm"
	"practice-planner/internal/plan"
	"practice-planner/internal/shared"
)

func sevenDayResponse() string {
	days := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	var b strings.Builder
	b.WriteString(`{"days": [`)
	for i, d := range days {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"day": "` + d + `", "summary": "Easy day", "yin_practices": [{"name": "Box Breathing", "duration": 10, "start_time": "21:30"}]}`)
	}
	b.WriteString(`], "synergy": {"week_theme": "Slow build"}}`)
	return b.String()
}

type MockTextGenerator struct {
	response string
	err      error
	prompts  []string
}

func (m *MockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{
		Content: m.response,
		Usage:   shared.TokenUsage{Model: "mock", PromptTokens: 10, CompletionTokens: 20},
	}, nil
}

func TestGeneratePlan(t *testing.T) {
	ctx := context.Background()
	gen := &MockTextGenerator{response: sevenDayResponse()}
	coach := NewCoach(gen)

	weekStart := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	req := PlanRequest{
		Goal:         "Build strength without losing sleep quality",
		DailyTargets: plan.DailyTargets{SleepHours: 7.5},
		WeekStart:    weekStart,
	}

	result, err := coach.GeneratePlan(ctx, req)
	if err != nil {
		t.Fatalf("GeneratePlan failed: %v", err)
	}

	if result.Plan.ID == "" {
		t.Error("Expected a generated plan ID")
	}
	if !result.Plan.WeekStart.Equal(weekStart) {
		t.Errorf("Expected week start %v, got %v", weekStart, result.Plan.WeekStart)
	}
	if result.Plan.Goal != req.Goal {
		t.Errorf("Expected goal to carry over, got '%s'", result.Plan.Goal)
	}
	if len(result.Plan.Days) != 7 {
		t.Fatalf("Expected 7 days, got %d", len(result.Plan.Days))
	}
	// Migration defaults must already be applied
	if result.Plan.Days[0].ComplianceTargets == nil {
		t.Error("Expected compliance targets to be populated")
	}
	if result.Plan.UserContext == nil {
		t.Error("Expected user context to be populated")
	}
	if result.Meta.AgentName != "Coach" {
		t.Errorf("Expected agent name 'Coach', got '%s'", result.Meta.AgentName)
	}
	if result.Meta.Usage.CompletionTokens != 20 {
		t.Errorf("Expected 20 completion tokens, got %d", result.Meta.Usage.CompletionTokens)
	}
}

func TestGeneratePlanIncludesHistoryInPrompt(t *testing.T) {
	ctx := context.Background()
	gen := &MockTextGenerator{response: sevenDayResponse()}
	coach := NewCoach(gen)

	req := PlanRequest{
		Goal:      "Keep momentum",
		WeekStart: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		History: &plan.HistoricalComplianceSummary{
			TotalPlansAnalyzed:       3,
			AverageWorkoutCompliance: 60,
			CommonBlockers:           []plan.BlockerFrequency{{Blocker: "late meetings", Count: 4}},
		},
	}

	result, err := coach.GeneratePlan(ctx, req)
	if err != nil {
		t.Fatalf("GeneratePlan failed: %v", err)
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("Expected 1 prompt, got %d", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "late meetings") {
		t.Error("Expected history blockers to appear in the prompt")
	}
	if !result.Plan.IntelligenceFlags.HistoryInformed {
		t.Error("Expected plan to be flagged history informed")
	}
}

func TestGeneratePlanRejectsMalformedResponse(t *testing.T) {
	ctx := context.Background()
	gen := &MockTextGenerator{response: `{"days": [{"day": "Monday"}]}`}
	coach := NewCoach(gen)

	_, err := coach.GeneratePlan(ctx, PlanRequest{Goal: "g", WeekStart: time.Now()})
	if err == nil {
		t.Fatal("Expected error for a plan without 7 days")
	}
	if !errors.Is(err, plan.ErrMalformedDays) {
		t.Errorf("Expected ErrMalformedDays, got %v", err)
	}
}

func TestGeneratePlanPropagatesGeneratorError(t *testing.T) {
	ctx := context.Background()
	gen := &MockTextGenerator{err: errors.New("quota exhausted")}
	coach := NewCoach(gen)

	_, err := coach.GeneratePlan(ctx, PlanRequest{Goal: "g", WeekStart: time.Now()})
	if err == nil || !strings.Contains(err.Error(), "quota exhausted") {
		t.Errorf("Expected generator error to propagate, got %v", err)
	}
}
