package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ndrwnv/zubrilabot/internal/session"
)

// NewMenuCallbackHandler returns the dispatcher for main menu button
// presses (btn_ callbacks).
func NewMenuCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return menuCallbackHandler{deps}.Handle
}

type menuCallbackHandler struct {
	deps HandlerDeps
}

func (h menuCallbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "menu_callback")

	q := update.CallbackQuery
	if q == nil {
		log.WarnContext(ctx, "Menu callback handler received update without callback query", "update_id", update.ID)
		return
	}

	answerCallback(ctx, b, h.deps, q.ID)

	userID := q.From.ID
	chatID := callbackChatID(q)
	msgs := h.deps.Config.Messages
	log.DebugContext(ctx, "Handling menu callback", "data", q.Data, "user_id", userID)

	switch q.Data {
	case cbSolveText:
		h.enterMode(ctx, b, chatID, userID, session.StateAwaitingText, msgs.AwaitText)
	case cbSolvePhoto:
		h.enterMode(ctx, b, chatID, userID, session.StateAwaitingPhoto, msgs.AwaitPhoto)
	case cbSummary:
		h.enterMode(ctx, b, chatID, userID, session.StateAwaitingSummary, msgs.AwaitSummary)

	case cbProfile:
		showProfile(ctx, b, h.deps, chatID, userID)

	case cbClearMemory:
		if err := h.deps.Memory.Forget(ctx, userID); err != nil {
			log.ErrorContext(ctx, "Failed to clear memory", "error", err, "user_id", userID)
			sendText(ctx, b, h.deps, chatID, msgs.StorageError, backToMenuKeyboard())
			return
		}
		sendText(ctx, b, h.deps, chatID, msgs.MemoryCleared, backToMenuKeyboard())

	case cbHelp:
		sendText(ctx, b, h.deps, chatID, msgs.Help, backToMenuKeyboard())

	case cbCancel:
		h.deps.Drafts.Discard(userID)
		if err := h.deps.Sessions.Clear(ctx, userID); err != nil {
			log.ErrorContext(ctx, "Failed to clear session state on cancel", "error", err, "user_id", userID)
		}
		sendText(ctx, b, h.deps, chatID, msgs.Cancelled, mainMenuKeyboard())

	case cbMenu:
		if err := h.deps.Sessions.Clear(ctx, userID); err != nil {
			log.ErrorContext(ctx, "Failed to clear session state on menu return", "error", err, "user_id", userID)
		}
		sendText(ctx, b, h.deps, chatID, msgs.MainMenu, mainMenuKeyboard())

	default:
		log.WarnContext(ctx, "Unknown menu callback", "data", q.Data, "user_id", userID)
	}
}

// enterMode transitions the user into an awaiting state and prompts for the
// matching input.
func (h menuCallbackHandler) enterMode(ctx context.Context, b *bot.Bot, chatID, userID int64, state session.State, prompt string) {
	log := h.deps.Logger.With("handler", "menu_callback")

	if err := h.deps.Sessions.Set(ctx, userID, state); err != nil {
		log.ErrorContext(ctx, "Failed to set session state", "error", err, "user_id", userID, "state", state)
		sendText(ctx, b, h.deps, chatID, h.deps.Config.Messages.StorageError, backToMenuKeyboard())
		return
	}

	sendText(ctx, b, h.deps, chatID, prompt, cancelKeyboard())
}
