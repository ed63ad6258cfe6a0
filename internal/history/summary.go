// Package history reduces many tracked plans into the compliance summary the
// generator receives with the next plan request.
package history

import (
	"sort"
	"strings"

	"practice-planner/internal/plan"
)

// BuildSummary reduces the given history entries into one cross-plan summary.
// Callers pre-filter to the plans they care about. Blockers are grouped by
// exact string and ranked by frequency; no semantic clustering happens here.
// BestPerformingDayPatterns and RecommendedAdjustments stay empty: ranking
// day/time correlations is the generator's responsibility when this summary
// is serialized into a plan request.
func BuildSummary(entries []plan.PlanHistoryEntry) plan.HistoricalComplianceSummary {
	summary := plan.HistoricalComplianceSummary{TotalPlansAnalyzed: len(entries)}
	if len(entries) == 0 {
		return summary
	}

	var workoutSum, yinSum float64
	blockerCounts := make(map[string]int)
	for _, entry := range entries {
		if entry.AggregateMetrics != nil {
			workoutSum += entry.AggregateMetrics.WorkoutComplianceRate
			yinSum += entry.AggregateMetrics.YinComplianceRate
		}
		for _, fb := range entry.Feedback {
			blocker := strings.TrimSpace(fb.Blockers)
			if blocker != "" {
				blockerCounts[blocker]++
			}
		}
	}

	summary.AverageWorkoutCompliance = workoutSum / float64(len(entries))
	summary.AverageYinCompliance = yinSum / float64(len(entries))

	for blocker, count := range blockerCounts {
		summary.CommonBlockers = append(summary.CommonBlockers, plan.BlockerFrequency{
			Blocker: blocker,
			Count:   count,
		})
	}
	// Frequency desc, then alphabetical so equal counts rank deterministically.
	sort.Slice(summary.CommonBlockers, func(i, j int) bool {
		a, b := summary.CommonBlockers[i], summary.CommonBlockers[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Blocker < b.Blocker
	})

	return summary
}
