package telegram

import (
	"sync"
)

const maxReplyLen = 3900 // Telegram режет сообщения длиннее 4096

// chatEngines: chatID -> имя движка, выбранное через /engine.
// Только в памяти; после рестарта все чаты снова на движке по умолчанию.
type chatEngines struct {
	m sync.Map
}

func (c *chatEngines) set(chatID int64, name string) { c.m.Store(chatID, name) }

func (c *chatEngines) get(chatID int64) string {
	if v, ok := c.m.Load(chatID); ok {
		if s, _ := v.(string); s != "" {
			return s
		}
	}
	return ""
}

func (c *chatEngines) clear(chatID int64) { c.m.Delete(chatID) }
