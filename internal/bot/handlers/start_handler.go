package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Start handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /start command", "chat_id", chatID, "user_id", userID)

	// A fresh /start always drops any half-finished flow.
	if err := h.deps.Sessions.Clear(ctx, userID); err != nil {
		log.ErrorContext(ctx, "Failed to clear session state on /start", "error", err, "user_id", userID)
	}

	welcome := h.deps.Config.Messages.Welcome
	if h.deps.Config.Telegram.BotInfo != nil && h.deps.Config.Telegram.BotInfo.Username != "" {
		welcome = strings.ReplaceAll(welcome, "@botname", "@"+h.deps.Config.Telegram.BotInfo.Username)
	}

	sendText(ctx, b, h.deps, chatID, welcome, mainMenuKeyboard())
}
