// Package handlers contains Telegram command, callback, and message
// handlers, along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly creates a middleware that rejects updates from non-admin users.
// It handles both message and callback query updates.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			log := deps.Logger.With("middleware", "AdminOnly")

			var userID, chatID int64
			switch {
			case update.Message != nil && update.Message.From != nil:
				userID = update.Message.From.ID
				chatID = update.Message.Chat.ID
			case update.CallbackQuery != nil:
				userID = update.CallbackQuery.From.ID
				chatID = callbackChatID(update.CallbackQuery)
			default:
				log.WarnContext(ctx, "Update without identifiable sender, dropping", "update_id", update.ID)
				return
			}

			if !deps.Config.Telegram.IsAdmin(userID) {
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)

				if update.CallbackQuery != nil {
					answerCallback(ctx, b, deps, update.CallbackQuery.ID)
				}
				sendText(ctx, b, deps, chatID, deps.Config.Messages.Unauthorized, nil)
				return
			}

			next(ctx, b, update)
		}
	}
}
