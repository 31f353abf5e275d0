package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/NalimovStudio/TraumaBot/app/controllers"
)

// WebhookRouter mounts the inbound webhook endpoints.
type WebhookRouter struct {
	webhooks *controllers.WebhookController
}

func NewWebhookRouter(webhooks *controllers.WebhookController) *WebhookRouter {
	return &WebhookRouter{webhooks: webhooks}
}

func (r *WebhookRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/v1/webhooks")
	v1.Post("/telegram", r.webhooks.HandleTelegram)
	v1.Post("/stripe", r.webhooks.HandleStripe)
}
