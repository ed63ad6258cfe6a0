package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"practice-planner/internal/app"
	"practice-planner/internal/config"
	"practice-planner/internal/database"
	"practice-planner/internal/feed"
	"practice-planner/internal/generator"
	"practice-planner/internal/llm"
	"practice-planner/internal/metrics"
	"practice-planner/internal/plan"
	"practice-planner/internal/tracking"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	var coachModel llm.TextGenerator
	if cfg.LLMBackend == "gemini" {
		geminiClient, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini client: %v", err)
		}
		defer geminiClient.Close()
		coachModel = geminiClient
	} else {
		coachModel = llm.NewGroqClient(cfg, llm.ModelCoach, 0.3)
	}
	coach := generator.NewCoach(coachModel)

	planRepo := plan.NewRepository(db.SQL)
	historyRepo := tracking.NewRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	application := app.NewApp(coach, planRepo, historyRepo, metricsStore, cfg)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	userID := os.Getenv("PLANNER_USER_ID")
	if userID == "" {
		userID = "default_user"
	}

	switch os.Args[1] {
	case "generate":
		generateCmd := flag.NewFlagSet("generate", flag.ExitOnError)
		goal := generateCmd.String("goal", "", "Goal for the week")
		week := generateCmd.String("week", "", "Week start date (YYYY-MM-DD), defaults to next Monday")
		generateCmd.Parse(os.Args[2:])

		if *goal == "" {
			log.Fatal("generate requires -goal")
		}

		var weekStart time.Time
		if *week != "" {
			weekStart, err = time.Parse("2006-01-02", *week)
			if err != nil {
				log.Fatalf("Invalid -week date: %v", err)
			}
		}

		generated, err := application.GeneratePlan(ctx, userID, generator.PlanRequest{
			Goal:      *goal,
			WeekStart: weekStart,
		})
		if err != nil {
			log.Fatalf("Plan generation failed: %v", err)
		}
		printPlan(generated)
	case "log":
		logCmd := flag.NewFlagSet("log", flag.ExitOnError)
		day := logCmd.String("day", "", "Day name, e.g. Monday")
		date := logCmd.String("date", "", "Date (YYYY-MM-DD), defaults to today")
		workout := logCmd.Bool("workout", false, "Workout completed")
		practices := logCmd.String("practices", "", "Comma-separated completed practices")
		intensity := logCmd.Int("intensity", 5, "Felt intensity 1-10")
		energy := logCmd.Int("energy", 5, "Energy level 1-10")
		blockers := logCmd.String("blockers", "", "What got in the way")
		notes := logCmd.String("notes", "", "Free-form notes")
		logCmd.Parse(os.Args[2:])

		if *day == "" {
			log.Fatal("log requires -day")
		}

		fb := plan.PlanDayFeedback{
			Day:              *day,
			CompletedWorkout: *workout,
			IntensityFelt:    *intensity,
			EnergyLevel:      *energy,
			Blockers:         *blockers,
			Notes:            *notes,
		}
		for _, p := range splitCSV(*practices) {
			fb.CompletedPractices = append(fb.CompletedPractices, p)
		}

		entry, err := application.LogFeedback(ctx, userID, *date, fb)
		if err != nil {
			log.Fatalf("Logging failed: %v", err)
		}
		m := entry.AggregateMetrics
		fmt.Printf("Check-in saved. %d days logged.\n", len(entry.Feedback))
		fmt.Printf("  Workout compliance: %.0f%%\n", m.WorkoutComplianceRate)
		fmt.Printf("  Yin compliance:     %.0f%%\n", m.YinComplianceRate)
		fmt.Printf("  Average energy:     %.1f\n", m.AverageEnergy)
	case "complete":
		if err := application.ClosePlan(ctx, userID, plan.StatusCompleted); err != nil {
			log.Fatalf("Completing plan failed: %v", err)
		}
		fmt.Println("Plan marked completed.")
	case "abandon":
		if err := application.ClosePlan(ctx, userID, plan.StatusAbandoned); err != nil {
			log.Fatalf("Abandoning plan failed: %v", err)
		}
		fmt.Println("Plan marked abandoned.")
	case "summary":
		summary, err := application.Summary(ctx, userID)
		if err != nil {
			log.Fatalf("Summary failed: %v", err)
		}
		printSummary(summary)
	case "export":
		exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
		out := exportCmd.String("out", "practice-plan.ics", "Output .ics path")
		exportCmd.Parse(os.Args[2:])

		if err := application.ExportCalendar(ctx, userID, *out); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
	case "issue-token":
		tokenCmd := flag.NewFlagSet("issue-token", flag.ExitOnError)
		days := tokenCmd.Int("days", 90, "Token validity in days")
		tokenCmd.Parse(os.Args[2:])

		if cfg.FeedTokenSecret == "" {
			log.Fatal("FEED_TOKEN_SECRET is not set")
		}
		token, err := feed.IssueToken([]byte(cfg.FeedTokenSecret), userID, time.Duration(*days)*24*time.Hour)
		if err != nil {
			log.Fatalf("Token issuance failed: %v", err)
		}
		fmt.Println(token)
	case "migrate-plans":
		migrated, err := application.MigrateStoredPlans(ctx)
		if err != nil {
			log.Fatalf("Plan migration failed: %v", err)
		}
		fmt.Printf("Migration complete. Upgraded %d plans.\n", migrated)
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		affected, err := metricsStore.Cleanup(ctx, *days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printPlan(p *plan.WeeklyPracticePlan) {
	fmt.Printf("\n=== WEEKLY PRACTICE PLAN (week of %s) ===\n", p.WeekStart.Format("2006-01-02"))
	if p.Synergy != nil && p.Synergy.WeekTheme != "" {
		fmt.Printf("Theme: %s\n", p.Synergy.WeekTheme)
	}
	for _, day := range p.Days {
		fmt.Printf("\n%-10s", day.Day)
		if day.Workout != nil {
			fmt.Printf(" [Workout] %s (%d min)", day.Workout.Focus, day.Workout.Duration)
		}
		fmt.Println()
		for _, practice := range day.YinPractices {
			when := practice.StartTime
			if when == "" {
				when = practice.TimeOfDay
			}
			fmt.Printf("            [Yin] %s", practice.Name)
			if when != "" {
				fmt.Printf(" @ %s", when)
			}
			fmt.Println()
		}
	}
	if len(p.ShoppingList) > 0 {
		fmt.Println("\n=== SHOPPING LIST ===")
		for _, item := range p.ShoppingList {
			fmt.Printf("- %s\n", item)
		}
	}
}

func printSummary(s plan.HistoricalComplianceSummary) {
	if s.TotalPlansAnalyzed == 0 {
		fmt.Println("No tracked plans yet.")
		return
	}
	fmt.Printf("Plans analyzed:      %d\n", s.TotalPlansAnalyzed)
	fmt.Printf("Workout compliance:  %.0f%%\n", s.AverageWorkoutCompliance)
	fmt.Printf("Yin compliance:      %.0f%%\n", s.AverageYinCompliance)
	if len(s.CommonBlockers) > 0 {
		fmt.Println("Common blockers:")
		for _, b := range s.CommonBlockers {
			fmt.Printf("  - %s (%d)\n", b.Blocker, b.Count)
		}
	}
}

func printUsage() {
	fmt.Println("Usage: practice-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate         Generate a weekly practice plan (-goal, -week)")
	fmt.Println("  log              Log a daily check-in (-day, -workout, -practices, ...)")
	fmt.Println("  complete         Mark the latest plan completed")
	fmt.Println("  abandon          Mark the latest plan abandoned")
	fmt.Println("  summary          Show cross-plan compliance summary")
	fmt.Println("  export           Write the latest plan as an .ics file (-out)")
	fmt.Println("  issue-token      Print a calendar feed share token (-days)")
	fmt.Println("  migrate-plans    Upgrade stored plans to the current schema")
	fmt.Println("  metrics-cleanup  Remove old metric records (-days)")
}
