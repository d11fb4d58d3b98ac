package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ndrwnv/zubrilabot/internal/session"
)

const (
	adminUserListLimit  = 20
	broadcastSendPause  = 50 * time.Millisecond
	broadcastRunTimeout = 10 * time.Minute
)

// NewAdminPanelHandler returns a handler for the /admpanel command. The
// AdminOnly middleware gates it.
func NewAdminPanelHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}
		sendText(ctx, b, deps, update.Message.Chat.ID, deps.Config.Messages.AdminPanel, adminPanelKeyboard())
	}
}

// NewAdminCallbackHandler returns the dispatcher for admin panel button
// presses (admin_ callbacks). The AdminOnly middleware gates it.
func NewAdminCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return adminCallbackHandler{deps}.Handle
}

type adminCallbackHandler struct {
	deps HandlerDeps
}

func (h adminCallbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "admin_callback")

	q := update.CallbackQuery
	if q == nil {
		log.WarnContext(ctx, "Admin callback handler received update without callback query", "update_id", update.ID)
		return
	}

	answerCallback(ctx, b, h.deps, q.ID)

	adminID := q.From.ID
	chatID := callbackChatID(q)
	msgs := h.deps.Config.Messages
	log.DebugContext(ctx, "Handling admin callback", "data", q.Data, "admin_id", adminID)

	switch q.Data {
	case cbAdminPanel:
		sendText(ctx, b, h.deps, chatID, msgs.AdminPanel, adminPanelKeyboard())

	case cbAdminStats:
		h.showStats(ctx, b, chatID)
	case cbAdminUsers:
		h.showUsers(ctx, b, chatID)
	case cbAdminActivity:
		h.showActivity(ctx, b, chatID)

	case cbAdminBroadcast:
		h.enterFlow(ctx, b, chatID, adminID, session.StateAwaitingBroadcast, msgs.BroadcastPrompt)
	case cbAdminMemoryLookup:
		h.enterFlow(ctx, b, chatID, adminID, session.StateAwaitingMemoryLookup, msgs.MemoryLookupPrompt)
	case cbAdminGrantPremium:
		h.enterFlow(ctx, b, chatID, adminID, session.StateAwaitingGrantPremium, msgs.GrantPremiumPrompt)
	case cbAdminRevokePremium:
		h.enterFlow(ctx, b, chatID, adminID, session.StateAwaitingRevokePremium, msgs.RevokePremiumPrompt)

	case cbAdminBroadcastSend:
		h.sendBroadcast(ctx, b, chatID, adminID)
	case cbAdminBroadcastCancel:
		h.deps.Drafts.Discard(adminID)
		if err := h.deps.Sessions.Clear(ctx, adminID); err != nil {
			log.ErrorContext(ctx, "Failed to clear session state on broadcast cancel", "error", err, "admin_id", adminID)
		}
		sendText(ctx, b, h.deps, chatID, msgs.BroadcastCancelled, adminPanelKeyboard())

	default:
		log.WarnContext(ctx, "Unknown admin callback", "data", q.Data, "admin_id", adminID)
	}
}

func (h adminCallbackHandler) enterFlow(ctx context.Context, b *bot.Bot, chatID, adminID int64, state session.State, prompt string) {
	log := h.deps.Logger.With("handler", "admin_callback")

	if err := h.deps.Sessions.Set(ctx, adminID, state); err != nil {
		log.ErrorContext(ctx, "Failed to set admin session state", "error", err, "admin_id", adminID, "state", state)
		sendText(ctx, b, h.deps, chatID, h.deps.Config.Messages.StorageError, adminPanelKeyboard())
		return
	}

	sendText(ctx, b, h.deps, chatID, prompt, cancelKeyboard())
}

func (h adminCallbackHandler) showStats(ctx context.Context, b *bot.Bot, chatID int64) {
	log := h.deps.Logger.With("handler", "admin_callback")

	profiles, err := h.deps.Store.GetAllUserProfiles(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load user profiles for stats", "error", err)
		sendText(ctx, b, h.deps, chatID, h.deps.Config.Messages.StorageError, adminBackKeyboard())
		return
	}
	premium, err := h.deps.Tiers.ListPremium(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list premium users for stats", "error", err)
		sendText(ctx, b, h.deps, chatID, h.deps.Config.Messages.StorageError, adminBackKeyboard())
		return
	}

	var messages, photos, documents int64
	activeToday := 0
	dayAgo := time.Now().UTC().Add(-24 * time.Hour)
	for _, p := range profiles {
		messages += p.MessageCount
		photos += p.PhotoCount
		documents += p.DocumentCount
		if p.LastSeen.After(dayAgo) {
			activeToday++
		}
	}

	var sb strings.Builder
	sb.WriteString("📊 Статистика\n\n")
	fmt.Fprintf(&sb, "Всего пользователей: %d\n", len(profiles))
	fmt.Fprintf(&sb, "Активны за 24 часа: %d\n", activeToday)
	fmt.Fprintf(&sb, "Премиум: %d\n\n", len(premium))
	fmt.Fprintf(&sb, "Сообщений: %d\nФото: %d\nДокументов: %d\n", messages, photos, documents)

	sendText(ctx, b, h.deps, chatID, sb.String(), adminBackKeyboard())
}

func (h adminCallbackHandler) showUsers(ctx context.Context, b *bot.Bot, chatID int64) {
	log := h.deps.Logger.With("handler", "admin_callback")

	profiles, err := h.deps.Store.GetAllUserProfiles(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load user profiles", "error", err)
		sendText(ctx, b, h.deps, chatID, h.deps.Config.Messages.StorageError, adminBackKeyboard())
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Пользователи (%d)\n\n", len(profiles))
	for i, p := range profiles {
		if i >= adminUserListLimit {
			fmt.Fprintf(&sb, "... и ещё %d\n", len(profiles)-adminUserListLimit)
			break
		}
		fmt.Fprintf(&sb, "%d — запросов: %d, был: %s\n", p.UserID, p.TotalActivity(), p.LastSeen.Format("02.01 15:04"))
	}

	sendText(ctx, b, h.deps, chatID, sb.String(), adminBackKeyboard())
}

func (h adminCallbackHandler) showActivity(ctx context.Context, b *bot.Bot, chatID int64) {
	log := h.deps.Logger.With("handler", "admin_callback")

	profiles, err := h.deps.Store.GetAllUserProfiles(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load user profiles for activity", "error", err)
		sendText(ctx, b, h.deps, chatID, h.deps.Config.Messages.StorageError, adminBackKeyboard())
		return
	}

	now := time.Now().UTC()
	var day, week, month int
	for _, p := range profiles {
		since := now.Sub(p.LastSeen)
		if since <= 24*time.Hour {
			day++
		}
		if since <= 7*24*time.Hour {
			week++
		}
		if since <= 30*24*time.Hour {
			month++
		}
	}

	var sb strings.Builder
	sb.WriteString("📈 Активность\n\n")
	fmt.Fprintf(&sb, "За сутки: %d\nЗа неделю: %d\nЗа месяц: %d\nВсего: %d\n", day, week, month, len(profiles))

	sendText(ctx, b, h.deps, chatID, sb.String(), adminBackKeyboard())
}

// sendBroadcast delivers the composed draft to every known user. Delivery
// runs detached from the callback context; per-recipient failures are
// logged and skipped.
func (h adminCallbackHandler) sendBroadcast(ctx context.Context, b *bot.Bot, chatID, adminID int64) {
	log := h.deps.Logger.With("handler", "admin_callback")
	msgs := h.deps.Config.Messages

	text, ok := h.deps.Drafts.Take(adminID)
	if !ok || strings.TrimSpace(text) == "" {
		sendText(ctx, b, h.deps, chatID, msgs.BroadcastMissing, adminPanelKeyboard())
		return
	}

	if err := h.deps.Sessions.Clear(ctx, adminID); err != nil {
		log.ErrorContext(ctx, "Failed to clear session state before broadcast", "error", err, "admin_id", adminID)
	}

	profiles, err := h.deps.Store.GetAllUserProfiles(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load recipients for broadcast", "error", err)
		sendText(ctx, b, h.deps, chatID, msgs.StorageError, adminPanelKeyboard())
		return
	}

	sendText(ctx, b, h.deps, chatID, msgs.BroadcastStarted, adminPanelKeyboard())

	go func() {
		bcCtx, cancel := context.WithTimeout(context.Background(), broadcastRunTimeout)
		defer cancel()

		sent := 0
		for _, p := range profiles {
			if bcCtx.Err() != nil {
				break
			}
			if _, err := b.SendMessage(bcCtx, &bot.SendMessageParams{ChatID: p.UserID, Text: text}); err != nil {
				log.Warn("Broadcast delivery failed for recipient", "user_id", p.UserID, "error", err)
				continue
			}
			sent++
			time.Sleep(broadcastSendPause)
		}

		log.Info("Broadcast finished", "admin_id", adminID, "recipients", len(profiles), "delivered", sent)
	}()
}
