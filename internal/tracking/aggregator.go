package tracking

import (
	"strings"
	"time"

	"practice-planner/internal/plan"
)

// ProgressIndex is a plan → date → feedback lookup maintained alongside the
// history so "did I log today" checks never scan the feedback lists.
type ProgressIndex map[string]map[string]plan.PlanDayFeedback

// HasLogged reports whether feedback exists for the plan on the given date.
func (p ProgressIndex) HasLogged(planID, date string) bool {
	_, ok := p[planID][date]
	return ok
}

// RebuildProgressIndex folds stored history entries into a copy of the given
// progress index, warming it from persistence after a restart. Dates already
// present in the in-memory index win over the stored copy.
func RebuildProgressIndex(history []plan.PlanHistoryEntry, progress ProgressIndex) ProgressIndex {
	next := make(ProgressIndex, len(progress)+len(history))
	for planID, byDate := range progress {
		inner := make(map[string]plan.PlanDayFeedback, len(byDate))
		for d, fb := range byDate {
			inner[d] = fb
		}
		next[planID] = inner
	}
	for _, entry := range history {
		for _, fb := range entry.Feedback {
			if fb.Date == "" {
				continue
			}
			if next[entry.PlanID] == nil {
				next[entry.PlanID] = make(map[string]plan.PlanDayFeedback)
			}
			if _, ok := next[entry.PlanID][fb.Date]; !ok {
				next[entry.PlanID][fb.Date] = fb
			}
		}
	}
	return next
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LogPlanDayFeedback appends one daily check-in to the plan's history entry,
// creating an active entry when none exists, and returns updated copies of
// both the history and the progress index. Intensity and energy are stored
// clamped to [1,10]. Same-date duplicates are appended as-is; deduplication
// is the caller's call to make via the progress index.
func LogPlanDayFeedback(
	p plan.WeeklyPracticePlan,
	date string,
	feedback plan.PlanDayFeedback,
	history []plan.PlanHistoryEntry,
	progress ProgressIndex,
) ([]plan.PlanHistoryEntry, ProgressIndex) {
	feedback.Date = date
	feedback.IntensityFelt = clamp(feedback.IntensityFelt, 1, 10)
	feedback.EnergyLevel = clamp(feedback.EnergyLevel, 1, 10)
	if feedback.LoggedAt.IsZero() {
		feedback.LoggedAt = time.Now().UTC()
	}

	updated := append([]plan.PlanHistoryEntry(nil), history...)
	idx := -1
	for i := range updated {
		if updated[i].PlanID == p.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		updated = append(updated, plan.PlanHistoryEntry{
			PlanID:    p.ID,
			Goal:      p.Goal,
			WeekStart: p.WeekStart,
			StartedAt: feedback.LoggedAt,
			Status:    plan.StatusActive,
		})
		idx = len(updated) - 1
	}

	entry := updated[idx]
	entry.Feedback = append(append([]plan.PlanDayFeedback(nil), entry.Feedback...), feedback)
	updated[idx] = CalculatePlanAggregates(entry)

	next := make(ProgressIndex, len(progress)+1)
	for planID, byDate := range progress {
		inner := make(map[string]plan.PlanDayFeedback, len(byDate))
		for d, fb := range byDate {
			inner[d] = fb
		}
		next[planID] = inner
	}
	if next[p.ID] == nil {
		next[p.ID] = make(map[string]plan.PlanDayFeedback, 1)
	}
	next[p.ID][date] = feedback

	return updated, next
}

// CalculatePlanAggregates recomputes the entry's aggregate metrics from its
// feedback list. Every metric is exactly zero when no days are logged.
//
// The yin rate is completed practice instances over logged days: more than
// one completed practice per day pushes it past 100. Kept as-is so stored
// aggregates stay comparable across builds.
func CalculatePlanAggregates(entry plan.PlanHistoryEntry) plan.PlanHistoryEntry {
	metrics := &plan.AggregateMetrics{}
	logged := len(entry.Feedback)
	if logged > 0 {
		var workoutDays, yinInstances, blockerDays int
		var intensitySum, energySum int
		for _, fb := range entry.Feedback {
			if fb.CompletedWorkout {
				workoutDays++
			}
			yinInstances += len(fb.CompletedPractices)
			intensitySum += fb.IntensityFelt
			energySum += fb.EnergyLevel
			if strings.TrimSpace(fb.Blockers) != "" {
				blockerDays++
			}
		}
		metrics.WorkoutComplianceRate = float64(workoutDays) / float64(logged) * 100
		metrics.YinComplianceRate = float64(yinInstances) / float64(logged) * 100
		metrics.AverageIntensity = float64(intensitySum) / float64(logged)
		metrics.AverageEnergy = float64(energySum) / float64(logged)
		metrics.TotalBlockerDays = blockerDays
	}
	entry.AggregateMetrics = metrics
	return entry
}

// MergePlanWithTracker reconciles a plan against a practice-completion
// tracker. It walks every day the plan defines, not just logged ones: workout
// completion comes from the day's matching feedback, while the completed Yin
// practices are re-derived per practice name by checking whether any recorded
// completion date equals that day's feedback date. Days with no feedback get
// defaults. The returned entry carries freshly computed aggregates.
func MergePlanWithTracker(
	p plan.WeeklyPracticePlan,
	completionHistory map[string][]string,
	history []plan.PlanHistoryEntry,
) plan.PlanHistoryEntry {
	var existing *plan.PlanHistoryEntry
	for i := range history {
		if history[i].PlanID == p.ID {
			existing = &history[i]
			break
		}
	}

	entry := plan.PlanHistoryEntry{
		PlanID:    p.ID,
		Goal:      p.Goal,
		WeekStart: p.WeekStart,
		StartedAt: p.CreatedAt,
		Status:    plan.StatusActive,
	}
	if existing != nil {
		entry.StartedAt = existing.StartedAt
		entry.Status = existing.Status
	}

	for _, day := range p.Days {
		fb := plan.PlanDayFeedback{Day: day.Day}

		if existing != nil {
			for j := range existing.Feedback {
				if existing.Feedback[j].Day == day.Day {
					logged := existing.Feedback[j]
					fb.Date = logged.Date
					fb.CompletedWorkout = logged.CompletedWorkout
					fb.IntensityFelt = logged.IntensityFelt
					fb.EnergyLevel = logged.EnergyLevel
					fb.Blockers = logged.Blockers
					fb.Notes = logged.Notes
					fb.LoggedAt = logged.LoggedAt
					break
				}
			}
		}

		if fb.Date != "" {
			for _, practice := range day.YinPractices {
				for _, completedOn := range completionHistory[practice.Name] {
					if completedOn == fb.Date {
						fb.CompletedPractices = append(fb.CompletedPractices, practice.Name)
						break
					}
				}
			}
		}

		entry.Feedback = append(entry.Feedback, fb)
	}

	return CalculatePlanAggregates(entry)
}
