package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID

	if strings.HasPrefix(cb.Data, enginePrefix) {
		r.onEngineChosen(cid, cb.Message.MessageID, strings.TrimPrefix(cb.Data, enginePrefix))
	}
}

func (r *Router) onEngineChosen(chatID int64, msgID int, arg string) {
	name, ok := resolveEngineName(arg, r.Engines)
	if !ok {
		r.send(chatID, "Движок недоступен.")
		return
	}
	r.chats.set(chatID, name)
	// убрать клавиатуру
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	_, _ = r.Bot.Send(edit)
	r.send(chatID, "✅ Движок: "+name)
}
