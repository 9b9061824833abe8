package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cbYes = "act_yes"
	cbNo  = "act_no"

	maxMessageLen = 3900
)

// Кнопки подтверждения действия
func makeConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	yes := tgbotapi.NewInlineKeyboardButtonData("Ya", cbYes)
	no := tgbotapi.NewInlineKeyboardButtonData("Tidak", cbNo)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(yes, no))
}

func clip(text string) string {
	r := []rune(text)
	if len(r) > maxMessageLen {
		return string(r[:maxMessageLen]) + "…"
	}
	return text
}
