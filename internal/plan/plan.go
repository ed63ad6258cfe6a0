package plan

import "time"

// Status represents the lifecycle state of a tracked practice plan.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// YangConstraints captures the physical-training side of the wizard input.
type YangConstraints struct {
	Equipment       []string `json:"equipment,omitempty"`
	UnavailableDays []string `json:"unavailable_days,omitempty"`
	InjuryNotes     []string `json:"injury_notes,omitempty"`
	TimeWindows     []string `json:"time_windows,omitempty"`
	FitnessLevel    string   `json:"fitness_level,omitempty"`
}

// YinPreferences captures the contemplative-practice side of the wizard input.
type YinPreferences struct {
	Goal            string   `json:"goal,omitempty"`
	ExperienceLevel string   `json:"experience_level,omitempty"`
	Intentions      []string `json:"intentions,omitempty"`
}

// DailyTargets holds per-day baseline targets shared across the week.
type DailyTargets struct {
	SleepHours  float64 `json:"sleep_hours,omitempty"`
	WaterLitres float64 `json:"water_litres,omitempty"`
	Steps       int     `json:"steps,omitempty"`
}

// UserContext is a later schema addition: a condensed view of the wizard
// inputs that travels with the plan so downstream consumers don't need the
// full constraint blocks.
type UserContext struct {
	Equipment       []string `json:"equipment,omitempty"`
	UnavailableDays []string `json:"unavailable_days,omitempty"`
	InjuryNotes     []string `json:"injury_notes,omitempty"`
	PracticeGoal    string   `json:"practice_goal,omitempty"`
	ExperienceLevel string   `json:"experience_level,omitempty"`
}

// SynergyNotes annotates how the week's Yang and Yin elements complement
// each other.
type SynergyNotes struct {
	WeekTheme string   `json:"week_theme,omitempty"`
	Notes     []string `json:"notes,omitempty"`
}

// FeedbackSettings controls how the daily check-in prompts behave.
type FeedbackSettings struct {
	PromptDaily    bool `json:"prompt_daily"`
	TrackIntensity bool `json:"track_intensity"`
	TrackEnergy    bool `json:"track_energy"`
}

// IntelligenceFlags records which generator capabilities produced this plan.
type IntelligenceFlags struct {
	AdaptiveScheduling bool `json:"adaptive_scheduling"`
	SynergyAware       bool `json:"synergy_aware"`
	HistoryInformed    bool `json:"history_informed"`
}

// Exercise is a single movement within a workout routine.
type Exercise struct {
	Name string `json:"name"`
	Sets int    `json:"sets,omitempty"`
	Reps string `json:"reps,omitempty"`
}

// WorkoutRoutine is the optional Yang block of a day.
type WorkoutRoutine struct {
	Focus     string     `json:"focus,omitempty"`
	Duration  int        `json:"duration,omitempty"` // minutes
	Exercises []Exercise `json:"exercises,omitempty"`
}

// YinPracticeDetail is a single contemplative practice scheduled on a day.
//
// TimeOfDay is a free-text label ("after dinner", "morning") kept for display.
// StartTime, when present, is the structured "HH:MM" slot the calendar
// projector uses directly; the label is only matched against the legacy
// keyword table when StartTime is absent.
type YinPracticeDetail struct {
	Name                 string   `json:"name"`
	PracticeType         string   `json:"practice_type,omitempty"`
	Duration             int      `json:"duration,omitempty"` // minutes
	TimeOfDay            string   `json:"time_of_day,omitempty"`
	StartTime            string   `json:"start_time,omitempty"`
	Intention            string   `json:"intention,omitempty"`
	Instructions         []string `json:"instructions,omitempty"`
	SchedulingConfidence int      `json:"scheduling_confidence,omitempty"` // 0-100
}

// ComplianceTargets is a later per-day schema addition: the baseline the
// aggregator's rates are read against.
type ComplianceTargets struct {
	YinMinutes         int     `json:"yin_minutes"`
	WorkoutSlots       int     `json:"workout_slots"`
	NutritionAdherence float64 `json:"nutrition_adherence"` // percent
	SleepHours         float64 `json:"sleep_hours,omitempty"`
}

// DayConstraints is a later per-day schema addition for day-specific limits.
type DayConstraints struct {
	Unavailable bool     `json:"unavailable,omitempty"`
	Notes       []string `json:"notes,omitempty"`
}

// DayPlan is one of the seven days of a weekly plan.
type DayPlan struct {
	DayID             string              `json:"day_id,omitempty"`
	Day               string              `json:"day"`
	Summary           string              `json:"summary,omitempty"`
	Workout           *WorkoutRoutine     `json:"workout,omitempty"`
	YinPractices      []YinPracticeDetail `json:"yin_practices,omitempty"`
	Meals             []string            `json:"meals,omitempty"`
	SleepTips         []string            `json:"sleep_tips,omitempty"`
	Synergy           string              `json:"synergy,omitempty"`
	ComplianceTargets *ComplianceTargets  `json:"compliance_targets,omitempty"`
	DayConstraints    *DayConstraints     `json:"day_constraints,omitempty"`
}

// WeeklyPracticePlan is a full generated week: exactly seven days of combined
// physical training and contemplative practice.
type WeeklyPracticePlan struct {
	ID                string             `json:"id"`
	CreatedAt         time.Time          `json:"created_at"`
	WeekStart         time.Time          `json:"week_start"`
	Goal              string             `json:"goal"`
	YangConstraints   *YangConstraints   `json:"yang_constraints,omitempty"`
	YinPreferences    *YinPreferences    `json:"yin_preferences,omitempty"`
	DailyTargets      DailyTargets       `json:"daily_targets"`
	Days              []DayPlan          `json:"days"`
	ShoppingList      []string           `json:"shopping_list,omitempty"`
	UserContext       *UserContext       `json:"user_context,omitempty"`
	Synergy           *SynergyNotes      `json:"synergy,omitempty"`
	Feedback          *FeedbackSettings  `json:"feedback,omitempty"`
	IntelligenceFlags *IntelligenceFlags `json:"intelligence_flags,omitempty"`
}

// PlanDayFeedback is one daily check-in logged against a plan.
type PlanDayFeedback struct {
	Date               string    `json:"date"` // YYYY-MM-DD
	Day                string    `json:"day"`
	CompletedWorkout   bool      `json:"completed_workout"`
	CompletedPractices []string  `json:"completed_practices,omitempty"`
	IntensityFelt      int       `json:"intensity_felt"` // 1-10
	EnergyLevel        int       `json:"energy_level"`   // 1-10
	Blockers           string    `json:"blockers,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	LoggedAt           time.Time `json:"logged_at"`
}

// AggregateMetrics is recomputed from the feedback list on every append.
type AggregateMetrics struct {
	WorkoutComplianceRate float64 `json:"workout_compliance_rate"`
	YinComplianceRate     float64 `json:"yin_compliance_rate"`
	AverageIntensity      float64 `json:"average_intensity"`
	AverageEnergy         float64 `json:"average_energy"`
	TotalBlockerDays      int     `json:"total_blocker_days"`
}

// PlanHistoryEntry is the tracked adherence record for one plan.
type PlanHistoryEntry struct {
	PlanID           string            `json:"plan_id"`
	Goal             string            `json:"goal,omitempty"`
	WeekStart        time.Time         `json:"week_start"`
	StartedAt        time.Time         `json:"started_at"`
	Status           Status            `json:"status"`
	Feedback         []PlanDayFeedback `json:"feedback"`
	AggregateMetrics *AggregateMetrics `json:"aggregate_metrics,omitempty"`
}

// BlockerFrequency is one exact-string blocker group with its occurrence count.
type BlockerFrequency struct {
	Blocker string `json:"blocker"`
	Count   int    `json:"count"`
}

// HistoricalComplianceSummary is the derived cross-plan view serialized into
// future plan-generation requests. BestPerformingDayPatterns and
// RecommendedAdjustments are filled by the generator, not computed locally.
type HistoricalComplianceSummary struct {
	TotalPlansAnalyzed        int                `json:"total_plans_analyzed"`
	AverageWorkoutCompliance  float64            `json:"average_workout_compliance"`
	AverageYinCompliance      float64            `json:"average_yin_compliance"`
	CommonBlockers            []BlockerFrequency `json:"common_blockers,omitempty"`
	BestPerformingDayPatterns []string           `json:"best_performing_day_patterns,omitempty"`
	RecommendedAdjustments    []string           `json:"recommended_adjustments,omitempty"`
}

// NextMonday returns the next Monday after the given time, at local midnight.
// A Monday input maps to the following Monday.
func NextMonday(from time.Time) time.Time {
	daysAhead := (int(time.Monday) - int(from.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	next := from.AddDate(0, 0, daysAhead)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, from.Location())
}
