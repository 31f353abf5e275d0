package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/NalimovStudio/TraumaBot/internal/pkg/profile"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/subscription"
)

// ProfileAPIController exposes generated user characteristics to
// internal consumers (admin tooling, analytics).
type ProfileAPIController struct {
	lifecycle *subscription.Service
	profile   *profile.Service
}

// NewProfileAPIController wires the profile API controller.
func NewProfileAPIController(lifecycle *subscription.Service, profileSvc *profile.Service) *ProfileAPIController {
	return &ProfileAPIController{lifecycle: lifecycle, profile: profileSvc}
}

// HandleGetCharacteristic returns the latest profile snapshot for a
// Telegram account.
func (pc *ProfileAPIController) HandleGetCharacteristic(c *fiber.Ctx) error {
	telegramID := c.Params("telegram_id")
	if telegramID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "telegram_id is required"})
	}

	user, err := pc.lifecycle.GetAndNormalize(telegramID)
	if err != nil {
		if errors.Is(err, subscription.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}

	characteristic, err := pc.profile.LatestCharacteristic(user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no characteristic yet"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}

	return c.JSON(characteristic)
}
