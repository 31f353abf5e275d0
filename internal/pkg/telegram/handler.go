package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2/log"

	"github.com/NalimovStudio/TraumaBot/app/models"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/assistant"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/dialog"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/payment"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/profile"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/subscription"
)

// Sender is the narrow bot API surface the handler uses. Satisfied by
// *tgbotapi.BotAPI; faked in tests.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Handler dispatches webhook updates onto the application services. It
// keeps one piece of transport state: which support method a chat is
// currently talking in.
type Handler struct {
	bot          Sender
	lifecycle    *subscription.Service
	orchestrator *dialog.Orchestrator
	payments     *payment.Service
	profile      *profile.Service

	mu          sync.Mutex
	activeScope map[int64]string
}

// NewHandler wires the update dispatcher.
func NewHandler(bot Sender, lifecycle *subscription.Service, orchestrator *dialog.Orchestrator, payments *payment.Service, profileSvc *profile.Service) *Handler {
	return &Handler{
		bot:          bot,
		lifecycle:    lifecycle,
		orchestrator: orchestrator,
		payments:     payments,
		profile:      profileSvc,
		activeScope:  make(map[int64]string),
	}
}

// HandleUpdate processes one incoming webhook update.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		h.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		h.handleStart(msg)
	case strings.HasPrefix(text, "/stop"):
		h.handleStop(ctx, msg.Chat.ID, msg.From.ID)
	case strings.HasPrefix(text, "/subscribe"):
		h.reply(msg.Chat.ID, "Choose a subscription:", planKeyboard())
	case strings.HasPrefix(text, "/profile"):
		h.handleProfile(ctx, msg.Chat.ID, msg.From.ID)
	case strings.HasPrefix(text, "/mood"):
		h.reply(msg.Chat.ID, "How are you feeling right now?", moodKeyboard())
	case strings.HasPrefix(text, "/help"):
		h.handleHelp(msg.Chat.ID)
	case strings.HasPrefix(text, "/"):
		h.reply(msg.Chat.ID, "Unknown command. Use /help.", nil)
	default:
		h.handleDialogMessage(ctx, msg.Chat.ID, msg.From.ID, text)
	}
}

func (h *Handler) handleStart(msg *tgbotapi.Message) {
	telegramID := strconv.FormatInt(msg.From.ID, 10)
	if _, err := h.lifecycle.EnsureUser(telegramID, msg.From.UserName, msg.From.FirstName, msg.From.LastName); err != nil {
		log.Errorf("telegram: ensure user %s failed: %v", telegramID, err)
		h.reply(msg.Chat.ID, "Something went wrong, please try again.", nil)
		return
	}
	h.reply(msg.Chat.ID,
		"Hi! I'm here to support you. Pick what would help most right now:",
		scopeKeyboard())
}

func (h *Handler) handleHelp(chatID int64) {
	help := strings.Join([]string{
		"Commands:",
		"/start — pick a support method",
		"/stop — end the current conversation",
		"/mood — record today's mood",
		"/profile — your psychological profile",
		"/subscribe — subscription plans",
	}, "\n")
	h.reply(chatID, help, nil)
}

func (h *Handler) handleDialogMessage(ctx context.Context, chatID, fromID int64, text string) {
	h.mu.Lock()
	scope, ok := h.activeScope[chatID]
	h.mu.Unlock()
	if !ok {
		h.reply(chatID, "Pick a support method first:", scopeKeyboard())
		return
	}

	telegramID := strconv.FormatInt(fromID, 10)
	res := h.orchestrator.HandleInbound(ctx, telegramID, scope, text)
	switch res.Status {
	case dialog.StatusOK:
		h.reply(chatID, res.Reply, nil)
	case dialog.StatusDenied:
		h.reply(chatID, h.quotaDeniedText(telegramID), planKeyboard())
	default:
		h.reply(chatID, "I couldn't reply just now. Please try again in a moment.", nil)
	}
}

func (h *Handler) quotaDeniedText(telegramID string) string {
	user, err := h.lifecycle.GetAndNormalize(telegramID)
	if err != nil {
		return "You've reached your message limit. A subscription removes it."
	}
	limits := h.lifecycle.Policy().Limits()
	if user.Subscription == models.SUBSCRIPTION_FREE {
		return fmt.Sprintf(
			"You've used all %d free messages for today. They refresh in 24 hours, or a subscription removes the wait.",
			limits.FreeDaily)
	}
	return fmt.Sprintf(
		"You've used all %d messages of your subscription term.",
		h.lifecycle.Policy().StandardLimit(*user))
}

func (h *Handler) handleStop(ctx context.Context, chatID, fromID int64) {
	h.mu.Lock()
	scope, ok := h.activeScope[chatID]
	delete(h.activeScope, chatID)
	h.mu.Unlock()
	if !ok {
		h.reply(chatID, "No conversation is active. Use /start to begin.", nil)
		return
	}

	telegramID := strconv.FormatInt(fromID, 10)
	if err := h.orchestrator.Stop(ctx, telegramID, scope); err != nil {
		log.Errorf("telegram: stop failed for user %s scope %s: %v", telegramID, scope, err)
	}
	h.reply(chatID, "Conversation ended. I'm here whenever you need me. /start", nil)
}

func (h *Handler) handleProfile(ctx context.Context, chatID, fromID int64) {
	telegramID := strconv.FormatInt(fromID, 10)
	user, err := h.lifecycle.GetAndNormalize(telegramID)
	if err != nil {
		h.reply(chatID, "Use /start first.", nil)
		return
	}

	ok, err := h.profile.MayGenerate(user.ID)
	if err != nil {
		log.Errorf("telegram: profile gate failed for user %s: %v", telegramID, err)
		h.reply(chatID, "Profile is unavailable right now.", nil)
		return
	}
	if ok {
		c, err := h.profile.Generate(ctx, user.ID)
		if err != nil {
			if errors.Is(err, profile.ErrNotEnoughData) {
				h.reply(chatID, "Talk to me a little first, then I can build your profile.", nil)
				return
			}
			log.Errorf("telegram: profile generation failed for user %s: %v", telegramID, err)
			h.reply(chatID, "Profile generation failed, please try later.", nil)
			return
		}
		h.reply(chatID, formatCharacteristic(c), nil)
		return
	}

	c, err := h.profile.LatestCharacteristic(user.ID)
	if err != nil {
		h.reply(chatID, "No profile yet. Keep talking to me and check back.", nil)
		return
	}
	h.reply(chatID, formatCharacteristic(c), nil)
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.From == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	telegramID := strconv.FormatInt(cb.From.ID, 10)
	data := cb.Data

	switch {
	case strings.HasPrefix(data, "scope:"):
		h.handleScopeSelected(ctx, chatID, telegramID, strings.TrimPrefix(data, "scope:"))
	case strings.HasPrefix(data, "mood:"):
		h.handleMoodSelected(chatID, telegramID, strings.TrimPrefix(data, "mood:"))
	case strings.HasPrefix(data, "buy:"):
		h.handleBuy(chatID, telegramID, cb.From.UserName, data)
	case data == "stop":
		h.handleStop(ctx, chatID, cb.From.ID)
	}
	if _, err := h.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Warnf("telegram: callback ack failed: %v", err)
	}
}

func (h *Handler) handleScopeSelected(ctx context.Context, chatID int64, telegramID, scope string) {
	if _, err := h.orchestrator.Start(ctx, telegramID, scope); err != nil {
		if errors.Is(err, dialog.ErrUnknownScope) {
			h.reply(chatID, "Pick a method from the keyboard:", scopeKeyboard())
			return
		}
		log.Errorf("telegram: session start failed for user %s scope %s: %v", telegramID, scope, err)
		h.reply(chatID, "Couldn't start the conversation, please try again.", nil)
		return
	}

	h.mu.Lock()
	h.activeScope[chatID] = scope
	h.mu.Unlock()

	h.reply(chatID, scopeGreeting(scope), nil)
}

func (h *Handler) handleMoodSelected(chatID int64, telegramID, value string) {
	mood, err := strconv.Atoi(value)
	if err != nil {
		return
	}
	user, err := h.lifecycle.GetAndNormalize(telegramID)
	if err != nil {
		h.reply(chatID, "Use /start first.", nil)
		return
	}
	switch err := h.profile.SetMood(user.ID, mood); {
	case errors.Is(err, profile.ErrMoodAlreadySet):
		h.reply(chatID, "You already checked in today. See you tomorrow!", nil)
	case err != nil:
		log.Errorf("telegram: mood save failed for user %s: %v", telegramID, err)
		h.reply(chatID, "Couldn't save that, please try again.", nil)
	default:
		h.reply(chatID, fmt.Sprintf("Noted: %d/10. Thank you for checking in.", mood), nil)
	}
}

func (h *Handler) handleBuy(chatID int64, telegramID, username, data string) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return
	}
	months, err := strconv.Atoi(parts[2])
	if err != nil {
		return
	}

	p, err := h.payments.CreateCharge(telegramID, username, parts[1], months)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrNotConfigured):
			h.reply(chatID, "Payments are temporarily unavailable.", nil)
		case errors.Is(err, payment.ErrUnknownPlan):
			h.reply(chatID, "That plan is not available.", planKeyboard())
		default:
			log.Errorf("telegram: checkout failed for user %s: %v", telegramID, err)
			h.reply(chatID, "Couldn't create the payment, please try again.", nil)
		}
		return
	}
	h.reply(chatID, fmt.Sprintf("%s\n\nPay here: %s", p.Description, p.Link), nil)
}

// NotifySubscriptionActivated tells the user their payment went
// through. Called from the webhook path.
func (h *Handler) NotifySubscriptionActivated(telegramID string, user *models.User) {
	chatID, err := strconv.ParseInt(telegramID, 10, 64)
	if err != nil {
		return
	}
	until := ""
	if user.SubscriptionDateEnd != nil {
		until = " until " + user.SubscriptionDateEnd.Format("02.01.2006")
	}
	h.reply(chatID, fmt.Sprintf("Your %s subscription is active%s. Thank you!", user.Subscription, until), nil)
}

func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	parts := splitMessage(text)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		if keyboard != nil && i == len(parts)-1 {
			msg.ReplyMarkup = keyboard
		}
		if _, err := h.bot.Send(msg); err != nil {
			log.Errorf("telegram: send to chat %d failed: %v", chatID, err)
			return
		}
	}
}

func scopeGreeting(scope string) string {
	switch scope {
	case assistant.ScopeVenting:
		return "I'm listening. Tell me what's on your mind."
	case assistant.ScopeCalming:
		return "Let's slow things down together. What's happening right now?"
	case assistant.ScopeProblemSolving:
		return "Let's work through it step by step. What's the problem?"
	case assistant.ScopeCBT:
		return "Let's open your thought diary. What situation are we looking at?"
	case assistant.ScopeRelationships:
		return "Tell me what's going on between you."
	case assistant.ScopeBlackpillExit:
		return "I'm glad you're here. Where would you like to begin?"
	default:
		return "I'm listening."
	}
}

func formatCharacteristic(c *models.UserCharacteristic) string {
	var b strings.Builder
	b.WriteString("Your profile\n\n")
	fmt.Fprintf(&b, "Mood: %s (%s, stability %s)\n", c.CurrentMood, c.MoodTrend, c.MoodStability)
	fmt.Fprintf(&b, "Stress: %s, anxiety: %s, risk group: %s\n", c.StressLevel, c.AnxietyLevel, c.RiskGroup)
	fmt.Fprintf(&b, "Communication style: %s\n", c.CommunicationStyle)
	writeList(&b, "Strengths", c.Strengths)
	writeList(&b, "Growth areas", c.Weaknesses)
	writeList(&b, "Insights", c.PersonalInsights)
	writeList(&b, "Recommendations", c.Recommendations)
	fmt.Fprintf(&b, "\nEstimated accuracy: %s", c.CharacteristicAccuracy)
	return b.String()
}

func writeList(b *strings.Builder, title, jsonList string) {
	items := decodeList(jsonList)
	if len(items) == 0 {
		return
	}
	b.WriteString("\n" + title + ":\n")
	for _, item := range items {
		b.WriteString("• " + item + "\n")
	}
}
