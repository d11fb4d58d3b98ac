package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	fileDownloadTimeout = 30 * time.Second
	llmTimeout          = 2 * time.Minute
	sendMessageTimeout  = 10 * time.Second
	dbOpTimeout         = 5 * time.Second

	maxDownloadSize = 10 * 1024 * 1024
)

// BroadcastDrafts holds composed broadcast texts awaiting confirmation,
// keyed by the admin who is composing. Drafts are transient by design; a
// restart discards them.
type BroadcastDrafts struct {
	mu     sync.Mutex
	drafts map[int64]string
}

// NewBroadcastDrafts creates an empty draft holder.
func NewBroadcastDrafts() *BroadcastDrafts {
	return &BroadcastDrafts{drafts: make(map[int64]string)}
}

// Put stores or replaces the admin's draft.
func (d *BroadcastDrafts) Put(adminID int64, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drafts[adminID] = text
}

// Take removes and returns the admin's draft.
func (d *BroadcastDrafts) Take(adminID int64) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	text, ok := d.drafts[adminID]
	delete(d.drafts, adminID)
	return text, ok
}

// Discard drops the admin's draft if one exists.
func (d *BroadcastDrafts) Discard(adminID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.drafts, adminID)
}

// sendText sends a message with an optional inline keyboard, bounded by the
// send timeout. Send failures are logged, not propagated; there is nothing
// a handler can do about them.
func sendText(ctx context.Context, b *bot.Bot, deps HandlerDeps, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	if text == "" {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	if _, err := b.SendMessage(sendCtx, params); err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// answerCallback acknowledges a callback query so the client stops showing
// the loading spinner.
func answerCallback(ctx context.Context, b *bot.Bot, deps HandlerDeps, callbackID string) {
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callbackID}); err != nil {
		deps.Logger.WarnContext(ctx, "Failed to answer callback query", "error", err, "callback_id", callbackID)
	}
}

// callbackChatID resolves the chat to reply in for a callback query, falling
// back to the sender's private chat when the original message is gone.
func callbackChatID(q *models.CallbackQuery) int64 {
	if q.Message.Message != nil {
		return q.Message.Message.Chat.ID
	}
	return q.From.ID
}

// DownloadFile fetches a Telegram file by its file ID and returns the raw
// data with the detected MIME type. Downloads are capped at 10 MiB.
func DownloadFile(ctx context.Context, b *bot.Bot, token, fileID string) (data []byte, mimeType string, err error) {
	if token == "" {
		return nil, "", fmt.Errorf("empty token provided for file download")
	}
	if fileID == "" {
		return nil, "", fmt.Errorf("empty fileID provided for file download")
	}
	if ctx.Err() != nil {
		return nil, "", fmt.Errorf("context cancelled before file download: %w", ctx.Err())
	}

	downloadCtx, cancel := context.WithTimeout(ctx, fileDownloadTimeout)
	defer cancel()

	fileObj, err := b.GetFile(downloadCtx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file info from Telegram: %w", err)
	}
	if fileObj.FilePath == "" {
		return nil, "", fmt.Errorf("empty file path returned from Telegram for file ID %s", fileID)
	}

	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", token, fileObj.FilePath)
	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download file: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code %d downloading file", resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file data: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("received empty file data")
	}

	mimeType = http.DetectContentType(data)
	return data, mimeType, nil
}

// bestPhoto picks the highest resolution variant from a photo size list.
func bestPhoto(sizes []models.PhotoSize) models.PhotoSize {
	var best models.PhotoSize
	bestQuality := 0
	for _, photo := range sizes {
		quality := photo.Width * photo.Height
		if quality > bestQuality {
			bestQuality = quality
			best = photo
		}
	}
	return best
}
