package telegram

import (
	"context"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"paddy-doctor/api/internal/pipeline"
)

type Router struct {
	Bot      *tgbotapi.BotAPI
	Pipeline *pipeline.Pipeline

	// Engines: настроенные движки ("gpt", "gemini"); Default: движок без /engine.
	Engines []string
	Default string

	// MaxImageBytes ограничивает размер скачиваемого файла. 0: без лимита.
	MaxImageBytes int64
	// Timeout на одну классификацию; 0: 180 с.
	Timeout time.Duration

	// FileEndpoint переопределяется в тестах; по умолчанию tgbotapi.FileEndpoint.
	FileEndpoint string
	HTTPClient   *http.Client

	chats chatEngines
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, "Пришлите фото листа риса, и я определю болезнь (Blast, False Smut, Boron Deficiency).\n"+
			"Send a photo of a rice plant to identify the disease.\n"+
			"Команды: /health, /engine")
	case "health":
		r.send(cid, "✅ OK")
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	default:
		r.send(cid, "Неизвестная команда")
	}
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.HandleCommand(msg)
	case len(msg.Photo) > 0:
		// самое большое разрешение: последнее
		r.acceptImage(cid, msg.Photo[len(msg.Photo)-1].FileID, msg.Photo[len(msg.Photo)-1].FileSize)
	case msg.Document != nil && isImageDocument(msg.Document):
		r.acceptImage(cid, msg.Document.FileID, msg.Document.FileSize)
	case msg.Document != nil:
		r.send(cid, "Поддерживаются только изображения: jpeg, png, gif.")
	case msg.Text != "":
		r.send(cid, "Пришлите фото растения.")
	}
}

// engineFor returns the engine chosen for the chat, or the default.
func (r *Router) engineFor(chatID int64) string {
	if name := r.chats.get(chatID); name != "" {
		return name
	}
	return r.Default
}

// handleEngineCommand:
//
//	/engine: текущий движок и кнопки выбора
//	/engine gemini: переключить
//	/engine default: сбросить на движок по умолчанию
func (r *Router) handleEngineCommand(chatID int64, args string) {
	arg := strings.ToLower(strings.TrimSpace(args))
	if f := strings.Fields(arg); len(f) > 0 {
		arg = f[0]
	}
	if arg == "" {
		msg := tgbotapi.NewMessage(chatID, "Текущий движок: "+r.engineFor(chatID))
		if len(r.Engines) > 0 {
			msg.ReplyMarkup = makeEngineKeyboard(r.Engines, r.engineFor(chatID))
		}
		_, _ = r.Bot.Send(msg)
		return
	}
	if arg == "default" {
		r.chats.clear(chatID)
		r.send(chatID, "✅ Движок: "+r.Default)
		return
	}
	name, ok := resolveEngineName(arg, r.Engines)
	if !ok {
		r.send(chatID, "Неизвестный движок. Доступны: "+strings.Join(r.Engines, " | "))
		return
	}
	r.chats.set(chatID, name)
	r.send(chatID, "✅ Движок: "+name)
}

// resolveEngineName maps user input onto a configured engine name.
func resolveEngineName(arg string, available []string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(arg))
	if name == "openai" {
		name = "gpt"
	}
	for _, e := range available {
		if e == name {
			return e, true
		}
	}
	return "", false
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, clip(text, maxReplyLen))
	_, _ = r.Bot.Send(msg)
}

func (r *Router) requestContext() (context.Context, context.CancelFunc) {
	d := r.Timeout
	if d <= 0 {
		d = 180 * time.Second
	}
	return context.WithTimeout(context.Background(), d)
}
