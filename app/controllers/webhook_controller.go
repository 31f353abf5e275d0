package controllers

import (
	"encoding/json"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/NalimovStudio/TraumaBot/internal/pkg/payment"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/telegram"
)

// WebhookController terminates the two inbound webhook surfaces:
// Telegram updates and Stripe payment events.
type WebhookController struct {
	handler     *telegram.Handler
	payments    *payment.Service
	secretToken string
}

// NewWebhookController wires the webhook controller. secretToken, when
// set, must match Telegram's X-Telegram-Bot-Api-Secret-Token header.
func NewWebhookController(handler *telegram.Handler, payments *payment.Service, secretToken string) *WebhookController {
	return &WebhookController{
		handler:     handler,
		payments:    payments,
		secretToken: secretToken,
	}
}

// HandleTelegram accepts one bot update. Telegram retries on non-200,
// so parse failures are answered with 200 to stop useless redelivery;
// only an auth mismatch is rejected.
func (wc *WebhookController) HandleTelegram(c *fiber.Ctx) error {
	if wc.secretToken != "" && c.Get("X-Telegram-Bot-Api-Secret-Token") != wc.secretToken {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(c.Body(), &update); err != nil {
		log.Warnf("webhook: unparseable telegram update: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	wc.handler.HandleUpdate(c.UserContext(), update)
	return c.SendStatus(fiber.StatusOK)
}

// HandleStripe accepts one provider event. A bad signature is a 400 so
// the provider surfaces the misconfiguration; processing failures are
// 500 so the event is redelivered and retried against the dedup row.
func (wc *WebhookController) HandleStripe(c *fiber.Ctx) error {
	err := wc.payments.ProcessWebhook(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid signature"})
		}
		log.Errorf("webhook: stripe event processing failed: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.SendStatus(fiber.StatusOK)
}
