package telegram

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"paddy-doctor/api/internal/diagnose"
	"paddy-doctor/api/internal/pipeline"
	"paddy-doctor/api/internal/present"
	"paddy-doctor/api/internal/util"
)

// acceptImage скачивает файл и прогоняет его через конвейер классификации.
func (r *Router) acceptImage(chatID int64, fileID string, size int) {
	if r.MaxImageBytes > 0 && int64(size) > r.MaxImageBytes {
		r.send(chatID, fmt.Sprintf("Файл слишком большой (%d байт, максимум %d).", size, r.MaxImageBytes))
		return
	}
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		r.sendFailure(chatID, &diagnose.EncodingError{Reason: "telegram getFile", Err: err})
		return
	}
	imgBytes, err := r.download(r.fileURL(file.FilePath))
	if err != nil {
		r.sendFailure(chatID, &diagnose.EncodingError{Reason: "download failed", Err: err})
		return
	}

	_, _ = r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	ctx, cancel := r.requestContext()
	defer cancel()
	out := r.Pipeline.Run(ctx, r.engineFor(chatID), bytes.NewReader(imgBytes))
	if out.State != pipeline.Presented {
		r.sendFailure(chatID, out.Err)
		return
	}
	r.send(chatID, "🌾 "+present.Text(out.Result))
}

func (r *Router) sendFailure(chatID int64, err error) {
	r.send(chatID, "❌ "+present.ErrorText(err))
}

func (r *Router) fileURL(filePath string) string {
	endpoint := r.FileEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.FileEndpoint
	}
	return fmt.Sprintf(endpoint, r.Bot.Token, filePath)
}

func (r *Router) download(url string) ([]byte, error) {
	resp, err := r.httpClient().Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	var body io.Reader = resp.Body
	if r.MaxImageBytes > 0 {
		body = io.LimitReader(resp.Body, r.MaxImageBytes+1)
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if r.MaxImageBytes > 0 && int64(len(b)) > r.MaxImageBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", r.MaxImageBytes)
	}
	return b, nil
}

func (r *Router) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

// isImageDocument: картинка, отправленная файлом (без сжатия Telegram).
func isImageDocument(d *tgbotapi.Document) bool {
	if d.MimeType != "" {
		return util.IsAcceptedImageMIME(d.MimeType)
	}
	switch strings.ToLower(path.Ext(d.FileName)) {
	case ".jpeg", ".jpg", ".png", ".gif":
		return true
	}
	return false
}
