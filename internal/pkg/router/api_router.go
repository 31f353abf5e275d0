package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/NalimovStudio/TraumaBot/app/controllers"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/middleware"
)

// ApiRouter mounts the key-protected internal API.
type ApiRouter struct {
	profile *controllers.ProfileAPIController
	apiKey  string
}

func NewApiRouter(profile *controllers.ProfileAPIController, apiKey string) *ApiRouter {
	return &ApiRouter{profile: profile, apiKey: apiKey}
}

func (r *ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware(r.apiKey))
	v1.Get("/users/:telegram_id/characteristic", r.profile.HandleGetCharacteristic)
}
