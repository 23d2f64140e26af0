package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const enginePrefix = "engine:"

// Кнопки выбора движка, по одной на каждый настроенный.
func makeEngineKeyboard(engines []string, current string) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(engines))
	for _, name := range engines {
		label := name
		if name == current {
			label = "✅ " + name
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, enginePrefix+name))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "…"
	}
	return s
}
