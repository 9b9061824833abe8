package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (r *Router) handleCallback(_ context.Context, cb tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	// убрать клавиатуру
	edit := tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{})
	_, _ = r.Bot.Send(edit)

	p := r.getPending(cid)
	if p == nil || p.Stage != stageConfirm {
		r.send(cid, "Konfirmasi ini sudah tidak berlaku.")
		return
	}
	switch cb.Data {
	case cbYes:
		r.onYes(cid)
	case cbNo:
		r.onNo(cid)
	}
}
