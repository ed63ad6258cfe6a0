package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the configuration for the application.
type Config struct {
	GeminiAPIKey string
	GroqAPIKey   string

	// Which model backend generates plans: "groq" (default) or "gemini".
	LLMBackend string

	DatabasePath string

	// Secret for signing read-only calendar feed tokens. Feed serving is
	// disabled when empty.
	FeedTokenSecret string

	// Telegram Config (Optional for CLI, required for Bot)
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64

	// Default daily targets used when the wizard doesn't supply them.
	DefaultSleepHours float64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	llmBackend := os.Getenv("PLANNER_LLM")
	if llmBackend == "" {
		llmBackend = "groq"
	}
	if llmBackend != "groq" && llmBackend != "gemini" {
		return nil, fmt.Errorf("unsupported PLANNER_LLM %q: expected groq or gemini", llmBackend)
	}

	// Only the selected backend's key is required.
	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if llmBackend == "gemini" && geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	groqAPIKey := os.Getenv("GROQ_API_KEY")
	if llmBackend == "groq" && groqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
	}

	databasePath := os.Getenv("PLANNER_DB_PATH")
	if databasePath == "" {
		databasePath = "data/practice-planner.db"
	}

	feedTokenSecret := os.Getenv("FEED_TOKEN_SECRET")

	telegramBotToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	telegramWebhookURL := os.Getenv("TELEGRAM_WEBHOOK_URL")

	var allowedUserIDs []int64
	for _, part := range strings.Split(os.Getenv("TELEGRAM_ALLOW_USER_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOW_USER_IDS entry %q: %w", part, err)
		}
		allowedUserIDs = append(allowedUserIDs, id)
	}

	var adminTelegramID int64
	if raw := os.Getenv("TELEGRAM_ADMIN_ID"); raw != "" {
		fmt.Sscanf(raw, "%d", &adminTelegramID)
	}

	defaultSleepHours := 8.0
	if raw := os.Getenv("DEFAULT_SLEEP_HOURS"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_SLEEP_HOURS %q: %w", raw, err)
		}
		defaultSleepHours = parsed
	}

	return &Config{
		GeminiAPIKey:           geminiAPIKey,
		GroqAPIKey:             groqAPIKey,
		LLMBackend:             llmBackend,
		DatabasePath:           databasePath,
		FeedTokenSecret:        feedTokenSecret,
		TelegramBotToken:       telegramBotToken,
		TelegramWebhookURL:     telegramWebhookURL,
		TelegramAllowedUserIDs: allowedUserIDs,
		AdminTelegramID:        adminTelegramID,
		DefaultSleepHours:      defaultSleepHours,
	}, nil
}
