package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"practice-planner/internal/calendar"
	"practice-planner/internal/config"
	"practice-planner/internal/generator"
	"practice-planner/internal/history"
	"practice-planner/internal/metrics"
	"practice-planner/internal/plan"
	"practice-planner/internal/tracking"
)

// App holds the application's dependencies.
type App struct {
	coach        *generator.Coach
	planRepo     *plan.Repository
	historyRepo  *tracking.Repository
	metricsStore *metrics.Store
	projector    *calendar.Projector
	cfg          *config.Config

	// plan → date → feedback; warmed from stored history the first time a
	// plan is looked up, then kept current by LogFeedback
	progress tracking.ProgressIndex
}

// NewApp creates and initializes a new App instance.
func NewApp(
	coach *generator.Coach,
	planRepo *plan.Repository,
	historyRepo *tracking.Repository,
	metricsStore *metrics.Store,
	cfg *config.Config,
) *App {
	return &App{
		coach:        coach,
		planRepo:     planRepo,
		historyRepo:  historyRepo,
		metricsStore: metricsStore,
		projector:    calendar.NewProjector(),
		cfg:          cfg,
		progress:     make(tracking.ProgressIndex),
	}
}

// GeneratePlan builds a plan for the given week, informed by the user's
// adherence history, and persists it.
func (a *App) GeneratePlan(ctx context.Context, userID string, req generator.PlanRequest) (*plan.WeeklyPracticePlan, error) {
	entries, err := a.historyRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	summary := history.BuildSummary(entries)
	req.History = &summary

	if req.WeekStart.IsZero() {
		req.WeekStart = plan.NextMonday(time.Now())
	}
	if req.DailyTargets.SleepHours == 0 {
		req.DailyTargets.SleepHours = a.cfg.DefaultSleepHours
	}

	result, err := a.coach.GeneratePlan(ctx, req)
	if recErr := a.metricsStore.RecordMeta(ctx, result.Meta); recErr != nil {
		log.Printf("Warning: failed to record coach metrics: %v", recErr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}

	if err := a.planRepo.Upsert(ctx, userID, *result.Plan); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	return result.Plan, nil
}

// LogFeedback appends one daily check-in to the user's latest plan and
// persists the recomputed history entry. The date defaults to today.
func (a *App) LogFeedback(ctx context.Context, userID, date string, fb plan.PlanDayFeedback) (*plan.PlanHistoryEntry, error) {
	latest, err := a.planRepo.Latest(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest plan: %w", err)
	}
	if latest == nil {
		return nil, fmt.Errorf("no plan to log against; generate one first")
	}

	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	entries, err := a.historyRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	updated, progress := tracking.LogPlanDayFeedback(*latest, date, fb, entries, a.progress)
	a.progress = progress

	for i := range updated {
		if updated[i].PlanID == latest.ID {
			if err := a.historyRepo.Upsert(ctx, userID, updated[i]); err != nil {
				return nil, fmt.Errorf("failed to save history: %w", err)
			}
			entry := updated[i]
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("history entry for plan %s vanished after logging", latest.ID)
}

// HasLoggedToday reports whether feedback exists for the user's latest plan
// today. When the in-memory index has no record of the plan it is rebuilt
// from stored history first, so the answer survives restarts.
func (a *App) HasLoggedToday(ctx context.Context, userID string) (bool, error) {
	latest, err := a.planRepo.Latest(ctx, userID)
	if err != nil || latest == nil {
		return false, err
	}

	today := time.Now().UTC().Format("2006-01-02")
	if _, warm := a.progress[latest.ID]; !warm {
		entries, err := a.historyRepo.ListByUser(ctx, userID)
		if err != nil {
			return false, fmt.Errorf("failed to load history: %w", err)
		}
		a.progress = tracking.RebuildProgressIndex(entries, a.progress)
	}
	return a.progress.HasLogged(latest.ID, today), nil
}

// ClosePlan marks the user's latest plan completed or abandoned. A plan with
// no check-ins yet gets a bare history entry so the status has a row to live
// on; its aggregates stay at zero until feedback arrives.
func (a *App) ClosePlan(ctx context.Context, userID string, status plan.Status) error {
	latest, err := a.planRepo.Latest(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load latest plan: %w", err)
	}
	if latest == nil {
		return fmt.Errorf("no plan to close; generate one first")
	}

	entry, err := a.historyRepo.Get(ctx, latest.ID)
	if err != nil {
		return err
	}
	if entry == nil {
		fresh := tracking.CalculatePlanAggregates(plan.PlanHistoryEntry{
			PlanID:    latest.ID,
			Goal:      latest.Goal,
			WeekStart: latest.WeekStart,
			StartedAt: latest.CreatedAt,
			Status:    plan.StatusActive,
		})
		if err := a.historyRepo.Upsert(ctx, userID, fresh); err != nil {
			return fmt.Errorf("failed to create history entry for plan %s: %w", latest.ID, err)
		}
	}
	return a.historyRepo.SetStatus(ctx, userID, latest.ID, status)
}

// Summary derives the cross-plan compliance view from the user's history.
func (a *App) Summary(ctx context.Context, userID string) (plan.HistoricalComplianceSummary, error) {
	entries, err := a.historyRepo.ListByUser(ctx, userID)
	if err != nil {
		return plan.HistoricalComplianceSummary{}, fmt.Errorf("failed to load history: %w", err)
	}
	return history.BuildSummary(entries), nil
}

// ExportCalendar projects the user's latest plan to iCalendar and writes it
// to the given path.
func (a *App) ExportCalendar(ctx context.Context, userID, path string) error {
	latest, err := a.planRepo.Latest(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load latest plan: %w", err)
	}
	if latest == nil {
		return fmt.Errorf("no plan to export; generate one first")
	}

	ics := a.projector.Project(*latest)
	if err := os.WriteFile(path, []byte(ics), 0644); err != nil {
		return fmt.Errorf("failed to write calendar file: %w", err)
	}
	log.Printf("Calendar for week %s written to %s", latest.WeekStart.Format("2006-01-02"), path)
	return nil
}

// ProjectCalendar projects the user's latest plan to iCalendar text.
func (a *App) ProjectCalendar(ctx context.Context, userID string) (string, error) {
	latest, err := a.planRepo.Latest(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load latest plan: %w", err)
	}
	if latest == nil {
		return "", fmt.Errorf("no plan to project; generate one first")
	}
	return a.projector.Project(*latest), nil
}

// LatestPlan returns the user's most recent plan, or nil when none exists.
func (a *App) LatestPlan(ctx context.Context, userID string) (*plan.WeeklyPracticePlan, error) {
	return a.planRepo.Latest(ctx, userID)
}

// PlanExistsForWeek reports whether the user already has a plan for the week.
func (a *App) PlanExistsForWeek(ctx context.Context, userID string, weekStart time.Time) (bool, error) {
	return a.planRepo.ExistsForWeek(ctx, userID, weekStart)
}

// MigrateStoredPlans upgrades every persisted plan to the current schema.
// Plans already at the current schema are left untouched.
func (a *App) MigrateStoredPlans(ctx context.Context) (int, error) {
	stored, err := a.planRepo.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list plans: %w", err)
	}

	migrated := 0
	for _, sp := range stored {
		res, err := plan.Migrate(sp.Plan)
		if err != nil {
			log.Printf("Warning: skipping plan %s: %v", sp.Plan.ID, err)
			continue
		}
		if !res.WasMigrated {
			continue
		}
		if err := a.planRepo.Upsert(ctx, sp.UserID, res.Plan); err != nil {
			return migrated, fmt.Errorf("failed to save migrated plan %s: %w", res.Plan.ID, err)
		}
		log.Printf("Migrated plan %s: %v", res.Plan.ID, res.MigrationsApplied)
		migrated++
	}
	return migrated, nil
}
