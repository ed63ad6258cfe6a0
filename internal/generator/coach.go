package generator

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"

	"practice-planner/internal/llm"
	"practice-planner/internal/plan"
	"practice-planner/internal/shared"
)

//go:embed coach_prompt.md
var coachPrompt string

// PlanRequest carries the wizard inputs and historical context for one
// generation run.
type PlanRequest struct {
	Goal            string
	YangConstraints plan.YangConstraints
	YinPreferences  plan.YinPreferences
	DailyTargets    plan.DailyTargets
	WeekStart       time.Time
	History         *plan.HistoricalComplianceSummary
}

// CoachResult bundles the generated plan with execution metadata.
type CoachResult struct {
	Plan *plan.WeeklyPracticePlan
	Meta shared.AgentMeta
}

// Coach generates weekly practice plans through a text generator.
type Coach struct {
	textGen llm.TextGenerator
}

// NewCoach creates a new Coach instance.
func NewCoach(textGen llm.TextGenerator) *Coach {
	return &Coach{textGen: textGen}
}

// GeneratePlan runs the coach prompt and returns a structurally complete
// plan for the requested week. The returned plan always has its migration
// defaults applied, so callers never see a partially populated schema.
func (c *Coach) GeneratePlan(ctx context.Context, req PlanRequest) (CoachResult, error) {
	start := time.Now()

	prompt, err := buildCoachPrompt(req)
	if err != nil {
		return CoachResult{}, fmt.Errorf("failed to build coach prompt: %w", err)
	}

	resp, err := c.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return CoachResult{}, fmt.Errorf("failed to generate practice plan: %w", err)
	}

	generated := &plan.WeeklyPracticePlan{}
	if err := json.Unmarshal([]byte(resp.Content), generated); err != nil {
		return CoachResult{
				Meta: shared.AgentMeta{
					AgentName: "Coach",
					Usage:     resp.Usage,
				}},
			fmt.Errorf("failed to parse practice plan %w, :%s", err, resp.Content)
	}

	generated.ID = uuid.NewString()
	generated.CreatedAt = time.Now().UTC()
	generated.WeekStart = req.WeekStart
	generated.Goal = req.Goal
	generated.YangConstraints = &req.YangConstraints
	generated.YinPreferences = &req.YinPreferences
	generated.DailyTargets = req.DailyTargets
	if generated.IntelligenceFlags == nil {
		generated.IntelligenceFlags = &plan.IntelligenceFlags{
			AdaptiveScheduling: true,
			SynergyAware:       true,
			HistoryInformed:    req.History != nil && req.History.TotalPlansAnalyzed > 0,
		}
	}

	migrated, err := plan.Migrate(*generated)
	if err != nil {
		return CoachResult{
				Meta: shared.AgentMeta{
					AgentName: "Coach",
					Usage:     resp.Usage,
				}},
			fmt.Errorf("generated plan failed structural completion: %w", err)
	}

	complete := migrated.Plan
	return CoachResult{
		Plan: &complete,
		Meta: shared.AgentMeta{
			AgentName: "Coach",
			Usage:     resp.Usage,
			Latency:   time.Since(start),
		},
	}, nil
}

type coachPromptData struct {
	Goal            string
	YangConstraints string
	YinPreferences  string
	DailyTargets    string
	WeekStart       string
	History         string
}

func buildCoachPrompt(req PlanRequest) (string, error) {
	tmpl, err := template.New("Coach").Parse(coachPrompt)
	if err != nil {
		return "", err
	}

	yang, err := json.Marshal(req.YangConstraints)
	if err != nil {
		return "", err
	}
	yin, err := json.Marshal(req.YinPreferences)
	if err != nil {
		return "", err
	}
	targets, err := json.Marshal(req.DailyTargets)
	if err != nil {
		return "", err
	}

	history := "No prior plans on record."
	if req.History != nil && req.History.TotalPlansAnalyzed > 0 {
		h, err := json.Marshal(req.History)
		if err != nil {
			return "", err
		}
		history = string(h)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, coachPromptData{
		Goal:            req.Goal,
		YangConstraints: string(yang),
		YinPreferences:  string(yin),
		DailyTargets:    string(targets),
		WeekStart:       req.WeekStart.Format("2006-01-02"),
		History:         history,
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}
