package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"practice-planner/internal/app"
	"practice-planner/internal/config"
	"practice-planner/internal/feed"
	"practice-planner/internal/generator"
	"practice-planner/internal/metrics"
	"practice-planner/internal/plan"
)

const checkinTTLSeconds = 30 * 60

// Bot wraps the Telegram API and the practice planner application.
type Bot struct {
	api          *tgbotapi.BotAPI
	app          *app.App
	metricsStore *metrics.Store
	sessionRepo  *SessionRepository
	cfg          *config.Config
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	application *app.App,
	metricsStore *metrics.Store,
	sessionRepo *SessionRepository,
) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          bot,
		app:          application,
		metricsStore: metricsStore,
		sessionRepo:  sessionRepo,
		cfg:          cfg,
	}, nil
}

// RegisterHandlers registers the webhook handler with the given mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.CallbackQuery != nil {
		b.handleCallbackQuery(update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	isAllowed := false
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if update.Message.From.ID == id {
			isAllowed = true
			break
		}
	}

	if !isAllowed {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/metrics":
		b.handleMetricsRequest(msg)
	case text == "/summary":
		b.handleSummaryRequest(msg)
	case text == "/calendar":
		b.handleCalendarRequest(msg)
	case text == "/log":
		b.handleLogStart(msg)
	case strings.HasPrefix(text, "/plan"):
		b.handlePlanRequest(msg, strings.TrimSpace(strings.TrimPrefix(text, "/plan")))
	default:
		b.handleFreeText(msg)
	}
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, "⛔ *Access Denied*: Admin only."))
		return
	}
	b.handleMetricsCommand(msg.Chat.ID)
}

func (b *Bot) handlePlanRequest(msg *tgbotapi.Message, goal string) {
	if goal == "" {
		b.reply(msg.Chat.ID, "Tell me the goal for the week, e.g. `/plan build strength, protect my sleep`")
		return
	}

	statusText := "🧘 *Thinking...* \n(Reading your history and designing your week)"
	replyMsg := tgbotapi.NewMessage(msg.Chat.ID, statusText)
	replyMsg.ParseMode = "Markdown"
	sentMsg, err := b.api.Send(replyMsg)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	ctx := context.Background()
	userID := fmt.Sprintf("%d", msg.From.ID)
	nextMonday := plan.NextMonday(time.Now())

	exists, _ := b.app.PlanExistsForWeek(ctx, userID, nextMonday)
	if exists {
		promptText := fmt.Sprintf("🗓️ A plan already exists for next week (starting *%s*).\nWhat would you like to do?", nextMonday.Format("2006-01-02"))

		// Callback data is limited to 64 bytes
		shortGoal := goal
		if len(shortGoal) > 32 {
			shortGoal = shortGoal[:32]
		}

		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔄 Redo Next Week", "redo|"+shortGoal),
				tgbotapi.NewInlineKeyboardButtonData("⏭️ Plan Following Week", "next|"+shortGoal),
			),
		)

		edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sentMsg.MessageID, promptText)
		edit.ParseMode = "Markdown"
		edit.ReplyMarkup = &keyboard
		b.api.Send(edit)
		return
	}

	b.generateAndSendPlan(ctx, userID, msg.Chat.ID, sentMsg.MessageID, goal, nextMonday)
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx := context.Background()
	userID := fmt.Sprintf("%d", query.From.ID)

	parts := strings.Split(query.Data, "|")
	if len(parts) < 2 {
		return
	}

	action := parts[0]
	goal := parts[1]

	var targetWeek time.Time
	if action == "redo" {
		targetWeek = plan.NextMonday(time.Now())
	} else {
		targetWeek = plan.NextMonday(plan.NextMonday(time.Now()))
	}

	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, "🧘 *Thinking...*")
	edit.ParseMode = "Markdown"
	b.api.Send(edit)

	b.generateAndSendPlan(ctx, userID, query.Message.Chat.ID, query.Message.MessageID, goal, targetWeek)
}

func (b *Bot) generateAndSendPlan(ctx context.Context, userID string, chatID int64, messageID int, goal string, targetWeek time.Time) {
	log.Printf("Generating plan for goal: %s", goal)

	generated, err := b.app.GeneratePlan(ctx, userID, generator.PlanRequest{
		Goal:      goal,
		WeekStart: targetWeek,
	})
	if err != nil {
		log.Printf("Error generating plan: %v", err)
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		finalText := fmt.Sprintf("❌ *Error generating plan:*\n```\n%v\n```", safeErr)
		edit := tgbotapi.NewEditMessageText(chatID, messageID, finalText)
		edit.ParseMode = "Markdown"
		b.api.Send(edit)
		return
	}

	planText, shoppingText := formatPlanMarkdownParts(generated)

	edit := tgbotapi.NewEditMessageText(chatID, messageID, planText)
	edit.ParseMode = "Markdown"
	b.api.Send(edit)

	if shoppingText != "" {
		shoppingMsg := tgbotapi.NewMessage(chatID, shoppingText)
		shoppingMsg.ParseMode = "Markdown"
		b.api.Send(shoppingMsg)
	}
}

func (b *Bot) handleLogStart(msg *tgbotapi.Message) {
	ctx := context.Background()
	userID := fmt.Sprintf("%d", msg.From.ID)

	latest, err := b.app.LatestPlan(ctx, userID)
	if err != nil || latest == nil {
		b.reply(msg.Chat.ID, "No active plan to log against. Send `/plan <goal>` first.")
		return
	}

	alreadyLogged, err := b.app.HasLoggedToday(ctx, userID)
	if err != nil {
		log.Printf("Warning: failed to check today's progress: %v", err)
	}

	_, err = b.sessionRepo.Create(ctx, userID, "checkin", "awaiting_feedback", SessionContextData{
		PlanID: latest.ID,
		Date:   time.Now().UTC().Format("2006-01-02"),
	}, checkinTTLSeconds)
	if err != nil {
		log.Printf("Failed to create check-in session: %v", err)
		b.reply(msg.Chat.ID, "❌ Could not start the check-in.")
		return
	}

	intro := "📝 *Daily check-in*\nReply with lines like:\n```\nday: Monday\nworkout: yes\npractices: Box Breathing, Evening Stretch\nintensity: 7\nenergy: 6\nblockers: late meeting\nnotes: felt good\n```"
	if alreadyLogged {
		intro = "⚠️ You already checked in today; this will add another entry.\n\n" + intro
	}
	b.reply(msg.Chat.ID, intro)
}

func (b *Bot) handleFreeText(msg *tgbotapi.Message) {
	ctx := context.Background()
	userID := fmt.Sprintf("%d", msg.From.ID)

	session, err := b.sessionRepo.GetActive(ctx, userID, time.Now())
	if err != nil {
		log.Printf("Failed to look up session: %v", err)
		return
	}
	if session == nil || session.State != "awaiting_feedback" {
		b.reply(msg.Chat.ID, "Commands: `/plan <goal>`, `/log`, `/summary`, `/calendar`")
		return
	}

	data, err := session.GetContextData()
	if err != nil {
		log.Printf("Failed to read session context: %v", err)
		return
	}

	fb, err := parseFeedbackMessage(msg.Text)
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("🤔 %v\nTry again, one `key: value` per line.", err))
		return
	}

	entry, err := b.app.LogFeedback(ctx, userID, data.Date, fb)
	if err != nil {
		log.Printf("Error logging feedback: %v", err)
		b.reply(msg.Chat.ID, "❌ Could not save the check-in.")
		return
	}

	if err := b.sessionRepo.Delete(ctx, session.ID); err != nil {
		log.Printf("Warning: failed to delete session %d: %v", session.ID, err)
	}

	m := entry.AggregateMetrics
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"✅ *Check-in saved* (%d days logged)\n• Workouts: %.0f%%\n• Yin practice: %.0f%%\n• Avg energy: %.1f",
		len(entry.Feedback), m.WorkoutComplianceRate, m.YinComplianceRate, m.AverageEnergy))
}

func (b *Bot) handleSummaryRequest(msg *tgbotapi.Message) {
	ctx := context.Background()
	userID := fmt.Sprintf("%d", msg.From.ID)

	summary, err := b.app.Summary(ctx, userID)
	if err != nil {
		log.Printf("Error building summary: %v", err)
		b.reply(msg.Chat.ID, "❌ Could not build the summary.")
		return
	}

	b.reply(msg.Chat.ID, formatSummaryMarkdown(summary))
}

func (b *Bot) handleCalendarRequest(msg *tgbotapi.Message) {
	ctx := context.Background()
	userID := fmt.Sprintf("%d", msg.From.ID)

	ics, err := b.app.ProjectCalendar(ctx, userID)
	if err != nil {
		b.reply(msg.Chat.ID, "No plan to export. Send `/plan <goal>` first.")
		return
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  "practice-plan.ics",
		Bytes: []byte(ics),
	})
	if _, err := b.api.Send(doc); err != nil {
		log.Printf("Failed to send calendar document: %v", err)
		return
	}

	if len(b.cfg.FeedTokenSecret) > 0 {
		token, err := feed.IssueToken([]byte(b.cfg.FeedTokenSecret), userID, 90*24*time.Hour)
		if err == nil {
			b.reply(msg.Chat.ID, fmt.Sprintf("🔗 Subscribe in your calendar app:\n`%s/calendar.ics?token=%s`", strings.TrimSuffix(b.cfg.TelegramWebhookURL, "/webhook"), token))
		}
	}
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	usage, err := b.metricsStore.GetDailyUsage(context.Background(), 7)
	if err != nil {
		b.api.Send(tgbotapi.NewMessage(chatID, "❌ Error fetching metrics."))
		return
	}

	health := metrics.GetSysHealth("data")

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))

	b.reply(chatID, sb.String())
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	b.api.Send(msg)
}

// parseFeedbackMessage reads a check-in written as "key: value" lines.
func parseFeedbackMessage(text string) (plan.PlanDayFeedback, error) {
	fb := plan.PlanDayFeedback{}
	seen := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		seen = true

		switch key {
		case "day":
			fb.Day = value
		case "workout":
			v := strings.ToLower(value)
			fb.CompletedWorkout = v == "yes" || v == "y" || v == "true" || v == "done"
		case "practices":
			for _, p := range strings.Split(value, ",") {
				if name := strings.TrimSpace(p); name != "" {
					fb.CompletedPractices = append(fb.CompletedPractices, name)
				}
			}
		case "intensity":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fb, fmt.Errorf("intensity must be a number, got %q", value)
			}
			fb.IntensityFelt = n
		case "energy":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fb, fmt.Errorf("energy must be a number, got %q", value)
			}
			fb.EnergyLevel = n
		case "blockers":
			fb.Blockers = value
		case "notes":
			fb.Notes = value
		}
	}

	if !seen {
		return fb, fmt.Errorf("no `key: value` lines found")
	}
	if fb.Day == "" {
		return fb, fmt.Errorf("missing `day:` line")
	}
	return fb, nil
}

func formatPlanMarkdownParts(p *plan.WeeklyPracticePlan) (string, string) {
	var pb strings.Builder
	pb.WriteString(fmt.Sprintf("📅 *Practice Plan* (week of %s)\n", p.WeekStart.Format("2006-01-02")))
	if p.Synergy != nil && p.Synergy.WeekTheme != "" {
		pb.WriteString(fmt.Sprintf("_%s_\n", p.Synergy.WeekTheme))
	}
	pb.WriteString("\n")

	for _, day := range p.Days {
		pb.WriteString(fmt.Sprintf("*%s*", day.Day))
		if day.Workout != nil {
			pb.WriteString(fmt.Sprintf(" — 🏋️ %s (%d min)", day.Workout.Focus, day.Workout.Duration))
		}
		pb.WriteString("\n")
		for _, practice := range day.YinPractices {
			pb.WriteString(fmt.Sprintf("  🧘 %s", practice.Name))
			if practice.StartTime != "" {
				pb.WriteString(fmt.Sprintf(" at %s", practice.StartTime))
			} else if practice.TimeOfDay != "" {
				pb.WriteString(fmt.Sprintf(" (%s)", practice.TimeOfDay))
			}
			pb.WriteString("\n")
		}
		if day.Synergy != "" {
			pb.WriteString(fmt.Sprintf("  _%s_\n", day.Synergy))
		}
	}

	var sb strings.Builder
	if len(p.ShoppingList) > 0 {
		sb.WriteString("🛒 *Shopping List*\n\n")
		for _, item := range p.ShoppingList {
			sb.WriteString(fmt.Sprintf("• %s\n", item))
		}
	}

	return pb.String(), sb.String()
}

func formatSummaryMarkdown(s plan.HistoricalComplianceSummary) string {
	if s.TotalPlansAnalyzed == 0 {
		return "📈 *Compliance Summary*\n\n_No tracked plans yet. Log a check-in with /log._"
	}

	var sb strings.Builder
	sb.WriteString("📈 *Compliance Summary*\n\n")
	sb.WriteString(fmt.Sprintf("Plans analyzed: %d\n", s.TotalPlansAnalyzed))
	sb.WriteString(fmt.Sprintf("🏋️ Workout compliance: %.0f%%\n", s.AverageWorkoutCompliance))
	sb.WriteString(fmt.Sprintf("🧘 Yin compliance: %.0f%%\n", s.AverageYinCompliance))

	if len(s.CommonBlockers) > 0 {
		sb.WriteString("\n*Common blockers*\n")
		for _, blocker := range s.CommonBlockers {
			sb.WriteString(fmt.Sprintf("• %s (%d×)\n", blocker.Blocker, blocker.Count))
		}
	}
	return sb.String()
}
