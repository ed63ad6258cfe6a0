package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"practice-planner/internal/app"
	"practice-planner/internal/config"
	"practice-planner/internal/database"
	"practice-planner/internal/feed"
	"practice-planner/internal/generator"
	"practice-planner/internal/llm"
	"practice-planner/internal/metrics"
	"practice-planner/internal/plan"
	"practice-planner/internal/telegram"
	"practice-planner/internal/tracking"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	var coachModel llm.TextGenerator
	if cfg.LLMBackend == "gemini" {
		geminiClient, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		defer geminiClient.Close()
		coachModel = geminiClient
	} else {
		coachModel = llm.NewGroqClient(cfg, llm.ModelCoach, 0.3)
	}
	coach := generator.NewCoach(coachModel)

	planRepo := plan.NewRepository(db.SQL)
	historyRepo := tracking.NewRepository(db.SQL)
	sessionRepo := telegram.NewSessionRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	application := app.NewApp(coach, planRepo, historyRepo, metricsStore, cfg)

	bot, err := telegram.NewBot(cfg, application, metricsStore, sessionRepo)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	if cfg.FeedTokenSecret != "" {
		feedServer := feed.NewServer(planRepo, []byte(cfg.FeedTokenSecret))
		feedServer.Routes(mux)
	} else {
		log.Printf("Warning: FEED_TOKEN_SECRET not set; calendar feed disabled")
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
