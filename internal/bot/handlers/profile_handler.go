package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewProfileHandler returns a handler for the /profile command.
func NewProfileHandler(deps HandlerDeps) bot.HandlerFunc {
	return profileHandler{deps}.Handle
}

type profileHandler struct {
	deps HandlerDeps
}

func (h profileHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "profile")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Profile handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	showProfile(ctx, b, h.deps, update.Message.Chat.ID, update.Message.From.ID)
}

// showProfile renders the user's tier, remaining daily allowance, and
// activity counters. Shared by the /profile command and the menu button.
func showProfile(ctx context.Context, b *bot.Bot, deps HandlerDeps, chatID, userID int64) {
	log := deps.Logger.With("handler", "profile")

	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 Ваш профиль\n\nID: %d\n", userID)

	switch {
	case deps.Tiers.IsAdmin(userID):
		sb.WriteString("Тариф: Админ\nЗапросы: безлимит\n")
	default:
		premium, err := deps.Tiers.IsPremium(ctx, userID)
		if err != nil {
			log.ErrorContext(ctx, "Failed to look up tier", "error", err, "user_id", userID)
			sendText(ctx, b, deps, chatID, deps.Config.Messages.StorageError, backToMenuKeyboard())
			return
		}
		if premium {
			sb.WriteString("Тариф: Премиум ⭐\n")
		} else {
			sb.WriteString("Тариф: Стандарт\n")
		}

		remaining, _, err := deps.Quota.RemainingAllowance(ctx, userID)
		if err != nil {
			log.ErrorContext(ctx, "Failed to compute remaining allowance", "error", err, "user_id", userID)
			sendText(ctx, b, deps, chatID, deps.Config.Messages.StorageError, backToMenuKeyboard())
			return
		}
		fmt.Fprintf(&sb, "Осталось запросов сегодня: %d\n", remaining)
	}

	profile, err := deps.Store.GetUserProfile(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load user profile", "error", err, "user_id", userID)
		sendText(ctx, b, deps, chatID, deps.Config.Messages.StorageError, backToMenuKeyboard())
		return
	}
	if profile != nil {
		fmt.Fprintf(&sb, "\nАктивность: %d сообщений, %d фото, %d документов\n",
			profile.MessageCount, profile.PhotoCount, profile.DocumentCount)
		fmt.Fprintf(&sb, "Впервые в боте: %s\n", profile.FirstSeen.Format("02.01.2006"))
	}

	sendText(ctx, b, deps, chatID, sb.String(), backToMenuKeyboard())
}
