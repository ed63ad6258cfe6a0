package plan

import (
	"errors"
	"fmt"
)

// ErrMalformedDays is returned when a stored record's day list is missing or
// is not the expected 7-day sequence. Older builds skipped per-day migration
// silently in this case; such records are now rejected outright.
var ErrMalformedDays = errors.New("plan days missing or not a 7-day sequence")

// defaultNutritionAdherence is the assumed nutrition target, in percent, for
// days that predate compliance targets.
const defaultNutritionAdherence = 80

// MigrationResult is the outcome of upgrading a persisted plan record.
// MigrationsApplied lists one human-readable entry per change, in the order
// the migration steps ran.
type MigrationResult struct {
	Plan              WeeklyPracticePlan
	WasMigrated       bool
	MigrationsApplied []string
}

// Migrate upgrades a persisted plan record to the current schema. It is pure
// and idempotent: migrating an already-migrated plan reports WasMigrated
// false and returns the plan unchanged. Fields that already exist are never
// touched; absent fields are defaulted from whatever sibling data the record
// still carries, so no information is discarded.
func Migrate(p WeeklyPracticePlan) (MigrationResult, error) {
	if len(p.Days) != 7 {
		return MigrationResult{}, fmt.Errorf("plan %q has %d days: %w", p.ID, len(p.Days), ErrMalformedDays)
	}

	var applied []string

	if p.UserContext == nil {
		uc := &UserContext{}
		if p.YangConstraints != nil {
			uc.Equipment = p.YangConstraints.Equipment
			uc.UnavailableDays = p.YangConstraints.UnavailableDays
			uc.InjuryNotes = p.YangConstraints.InjuryNotes
		}
		if p.YinPreferences != nil {
			uc.PracticeGoal = p.YinPreferences.Goal
			uc.ExperienceLevel = p.YinPreferences.ExperienceLevel
		}
		p.UserContext = uc
		applied = append(applied, "added user_context derived from yang constraints and yin preferences")
	}

	if p.Synergy == nil {
		p.Synergy = &SynergyNotes{}
		applied = append(applied, "added empty synergy block")
	}

	if p.Feedback == nil {
		p.Feedback = &FeedbackSettings{PromptDaily: true, TrackIntensity: true, TrackEnergy: true}
		applied = append(applied, "added feedback settings with daily prompts enabled")
	}

	if p.IntelligenceFlags == nil {
		p.IntelligenceFlags = &IntelligenceFlags{}
		applied = append(applied, "added intelligence flags")
	}

	// Per-day steps copy the day list on first change so the input plan's
	// backing array is never mutated.
	days := p.Days
	copied := false
	for i := range p.Days {
		day := p.Days[i]
		changed := false

		if day.DayID == "" {
			day.DayID = fmt.Sprintf("%s-day-%d", p.ID, i)
			applied = append(applied, fmt.Sprintf("assigned day_id to day %d", i))
			changed = true
		}

		if day.ComplianceTargets == nil {
			day.ComplianceTargets = complianceTargetsFor(day, p.DailyTargets)
			applied = append(applied, fmt.Sprintf("derived compliance targets for day %d", i))
			changed = true
		}

		if day.DayConstraints == nil {
			day.DayConstraints = &DayConstraints{}
			applied = append(applied, fmt.Sprintf("added empty day constraints for day %d", i))
			changed = true
		}

		if changed {
			if !copied {
				days = append([]DayPlan(nil), p.Days...)
				copied = true
			}
			days[i] = day
		}
	}
	p.Days = days

	return MigrationResult{
		Plan:              p,
		WasMigrated:       len(applied) > 0,
		MigrationsApplied: applied,
	}, nil
}

// complianceTargetsFor derives a day's targets from its own content: total
// scheduled Yin minutes, one workout slot when a workout exists, the fixed
// nutrition default and the plan-wide sleep target.
func complianceTargetsFor(day DayPlan, targets DailyTargets) *ComplianceTargets {
	ct := &ComplianceTargets{
		NutritionAdherence: defaultNutritionAdherence,
		SleepHours:         targets.SleepHours,
	}
	for _, practice := range day.YinPractices {
		ct.YinMinutes += practice.Duration
	}
	if day.Workout != nil {
		ct.WorkoutSlots = 1
	}
	return ct
}

// MigrateAll maps Migrate over a collection of plans. When no plan needed
// migration it returns the input slice itself, so callers can skip
// re-persisting an unchanged collection.
func MigrateAll(plans []WeeklyPracticePlan) ([]WeeklyPracticePlan, bool, error) {
	out := plans
	changed := false
	for i := range plans {
		res, err := Migrate(plans[i])
		if err != nil {
			return nil, false, err
		}
		if res.WasMigrated {
			if !changed {
				out = append([]WeeklyPracticePlan(nil), plans...)
				changed = true
			}
			out[i] = res.Plan
		}
	}
	return out, changed, nil
}
