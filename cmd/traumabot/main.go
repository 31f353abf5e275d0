package main

import (
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/NalimovStudio/TraumaBot/app/controllers"
	"github.com/NalimovStudio/TraumaBot/app/models"
	"github.com/NalimovStudio/TraumaBot/app/repository"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/assistant"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/cache"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/database"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/dialog"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/env"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/history"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/payment"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/profile"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/quota"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/router"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/subscription"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/telegram"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

// notifyingConfirmer applies a payment confirmation and then pings the
// user over Telegram. notify is bound after the bot handler exists.
type notifyingConfirmer struct {
	lifecycle *subscription.Service
	notify    func(telegramID string, user *models.User)
}

func (n *notifyingConfirmer) ApplyPaymentConfirmation(purchaseID string) (*models.User, error) {
	user, err := n.lifecycle.ApplyPaymentConfirmation(purchaseID)
	if err == nil && user != nil && n.notify != nil {
		n.notify(user.TelegramID, user)
	}
	return user, err
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repos := repository.NewRepositories(database.GetDB())

	policy := quota.NewPolicy(quota.Limits{
		FreeDaily:       env.GetEnvInt("FREE_DAILY_LIMIT", 10),
		StandardMonthly: env.GetEnvInt("STANDARD_MONTHLY_LIMIT", 1000),
	})
	lifecycle := subscription.NewService(repos.User, repos.Payment, policy)

	historyStore := history.NewStore(
		cache.GetClient(),
		env.GetEnvInt("HISTORY_MAX_TURNS", 30),
		time.Duration(env.GetEnvInt("HISTORY_TTL_SECONDS", 86400))*time.Second,
	)

	llm := assistant.NewClient(
		env.GetEnv("LLM_API_KEY", ""),
		env.GetEnv("LLM_BASE_URL", "https://api.deepseek.com/v1"),
		env.GetEnv("LLM_MODEL", "deepseek-chat"),
		time.Duration(env.GetEnvInt("LLM_TIMEOUT_SECONDS", 60))*time.Second,
	)

	orchestrator := dialog.NewOrchestrator(lifecycle, historyStore, llm, repos.DialogLog)
	profileSvc := profile.NewService(repos.Profile, repos.DialogLog, llm,
		env.GetEnvInt("MIN_DAYS_BETWEEN_CHARACTERISTIC_GENERATION", 7))

	confirmer := &notifyingConfirmer{lifecycle: lifecycle}
	payments := payment.NewServiceFromEnv(repos.Payment, confirmer)

	bot, err := tgbotapi.NewBotAPI(env.GetEnv("TELEGRAM_BOT_TOKEN", ""))
	if err != nil {
		log.Fatalf("telegram bot init failed: %v", err)
	}
	bot.Debug = env.IsDev()

	botHandler := telegram.NewHandler(bot, lifecycle, orchestrator, payments, profileSvc)
	confirmer.notify = botHandler.NotifySubscriptionActivated

	registerTelegramWebhook(bot)

	app := fiber.New(fiber.Config{
		AppName: "TraumaBot",
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouters(app,
		router.NewWebhookRouter(controllers.NewWebhookController(
			botHandler, payments, env.GetEnv("TELEGRAM_WEBHOOK_SECRET", ""))),
		router.NewApiRouter(controllers.NewProfileAPIController(lifecycle, profileSvc),
			env.GetEnv("PROFILE_API_KEY", "")),
	)

	return app
}

func registerTelegramWebhook(bot *tgbotapi.BotAPI) {
	base := env.GetEnv("TELEGRAM_WEBHOOK_URL", "")
	if base == "" {
		log.Print("TELEGRAM_WEBHOOK_URL not set, skipping webhook registration")
		return
	}

	wh, err := tgbotapi.NewWebhook(base + "/v1/webhooks/telegram")
	if err != nil {
		log.Fatalf("webhook config invalid: %v", err)
	}
	if _, err := bot.Request(wh); err != nil {
		log.Fatalf("webhook registration failed: %v", err)
	}
	log.Printf("telegram webhook registered for bot @%s", bot.Self.UserName)
}
