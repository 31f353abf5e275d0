package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/NalimovStudio/TraumaBot/app/models"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/assistant"
)

func scopeKeyboard() *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Just listen to me", "scope:"+assistant.ScopeVenting),
			tgbotapi.NewInlineKeyboardButtonData("Help me calm down", "scope:"+assistant.ScopeCalming),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Solve a problem", "scope:"+assistant.ScopeProblemSolving),
			tgbotapi.NewInlineKeyboardButtonData("Thought diary (CBT)", "scope:"+assistant.ScopeCBT),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Relationships", "scope:"+assistant.ScopeRelationships),
			tgbotapi.NewInlineKeyboardButtonData("Way out of the blackpill", "scope:"+assistant.ScopeBlackpillExit),
		),
	)
	return &markup
}

func moodKeyboard() *tgbotapi.InlineKeyboardMarkup {
	low := make([]tgbotapi.InlineKeyboardButton, 0, 6)
	for i := 0; i <= 5; i++ {
		low = append(low, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", i), fmt.Sprintf("mood:%d", i)))
	}
	high := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for i := 6; i <= 10; i++ {
		high = append(high, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", i), fmt.Sprintf("mood:%d", i)))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(low...),
		tgbotapi.NewInlineKeyboardRow(high...),
	)
	return &markup
}

func planKeyboard() *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Standard · 1 month", "buy:"+models.SUBSCRIPTION_STANDARD+":1"),
			tgbotapi.NewInlineKeyboardButtonData("Standard · 3 months", "buy:"+models.SUBSCRIPTION_STANDARD+":3"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Standard · 6 months", "buy:"+models.SUBSCRIPTION_STANDARD+":6"),
			tgbotapi.NewInlineKeyboardButtonData("Standard · 12 months", "buy:"+models.SUBSCRIPTION_STANDARD+":12"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Pro · 1 month", "buy:"+models.SUBSCRIPTION_PRO+":1"),
			tgbotapi.NewInlineKeyboardButtonData("Pro · 3 months", "buy:"+models.SUBSCRIPTION_PRO+":3"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Pro · 6 months", "buy:"+models.SUBSCRIPTION_PRO+":6"),
			tgbotapi.NewInlineKeyboardButtonData("Pro · 12 months", "buy:"+models.SUBSCRIPTION_PRO+":12"),
		),
	)
	return &markup
}
