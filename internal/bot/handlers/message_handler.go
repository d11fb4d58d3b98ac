package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ndrwnv/zubrilabot/internal/database"
	"github.com/ndrwnv/zubrilabot/internal/extract"
	"github.com/ndrwnv/zubrilabot/internal/openrouter"
	"github.com/ndrwnv/zubrilabot/internal/session"
)

const memoryViewEntryLimit = 300

// NewMessageHandler returns the default handler: it routes every non-command
// message by the sender's session state, runs the chargeable solve pipeline,
// and services the admin text sub-flows.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	// Unknown commands fall through to the default handler; ignore them
	// rather than feeding them to the model.
	if strings.HasPrefix(msg.Text, "/") {
		log.DebugContext(ctx, "Ignoring unknown command", "text", msg.Text, "chat_id", msg.Chat.ID)
		return
	}

	userID := msg.From.ID
	chatID := msg.Chat.ID

	h.recordActivity(ctx, userID, msg)

	state, err := h.deps.Sessions.Get(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to read session state", "error", err, "user_id", userID)
		sendText(ctx, b, h.deps, chatID, h.deps.Config.Messages.StorageError, mainMenuKeyboard())
		return
	}

	switch {
	case msg.Document != nil:
		h.handleDocument(ctx, b, chatID, userID, state, msg.Document)
	case len(msg.Photo) > 0:
		h.handlePhoto(ctx, b, chatID, userID, state, msg.Photo)
	case msg.Text != "":
		h.handleText(ctx, b, chatID, userID, state, msg.Text)
	default:
		log.DebugContext(ctx, "Ignoring unsupported message content", "chat_id", chatID, "user_id", userID)
	}
}

// recordActivity bumps the user's profile counters. Best effort: a failure
// is logged and the request continues.
func (h messageHandler) recordActivity(ctx context.Context, userID int64, msg *models.Message) {
	kind := database.ActivityText
	switch {
	case msg.Document != nil:
		kind = database.ActivityDocument
	case len(msg.Photo) > 0:
		kind = database.ActivityPhoto
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbOpTimeout)
	defer cancel()
	if err := h.deps.Store.UpsertUserActivity(dbCtx, userID, kind); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to record user activity", "error", err, "user_id", userID)
	}
}

func (h messageHandler) handleText(ctx context.Context, b *bot.Bot, chatID, userID int64, state session.State, text string) {
	msgs := h.deps.Config.Messages
	text = strings.TrimSpace(text)

	if state.IsAdminFlow() {
		h.handleAdminFlow(ctx, b, chatID, userID, state, text)
		return
	}

	switch state {
	case session.StateAwaitingPhoto:
		sendText(ctx, b, h.deps, chatID, msgs.AwaitPhoto, cancelKeyboard())
	case session.StateAwaitingSummary:
		if text == "" {
			sendText(ctx, b, h.deps, chatID, msgs.EmptyText, cancelKeyboard())
			return
		}
		h.solve(ctx, b, chatID, userID, openrouter.SummaryPromptPrefix+text)
	default:
		// Both the explicit solve mode and the idle state treat plain
		// text as a task to solve.
		if text == "" {
			sendText(ctx, b, h.deps, chatID, msgs.EmptyText, cancelKeyboard())
			return
		}
		h.solve(ctx, b, chatID, userID, openrouter.SolvePromptPrefix+text)
	}
}

func (h messageHandler) handlePhoto(ctx context.Context, b *bot.Bot, chatID, userID int64, state session.State, photos []models.PhotoSize) {
	log := h.deps.Logger.With("handler", "message")
	msgs := h.deps.Config.Messages

	if state != session.StateAwaitingPhoto && state != session.StateIdle {
		// Mid-flow photo in a text mode: remind without dropping the flow.
		sendText(ctx, b, h.deps, chatID, msgs.AwaitText, cancelKeyboard())
		return
	}

	data, _, err := DownloadFile(ctx, b, h.deps.Config.Telegram.Token, bestPhoto(photos).FileID)
	if err != nil {
		log.ErrorContext(ctx, "Photo download failed", "error", err, "chat_id", chatID)
		h.clearState(ctx, userID)
		sendText(ctx, b, h.deps, chatID, msgs.DownloadError, mainMenuKeyboard())
		return
	}

	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	ocrCtx, cancel := context.WithTimeout(ctx, llmTimeout)
	extracted, err := h.deps.LLM.ExtractImageText(ocrCtx, data)
	cancel()
	if err != nil {
		log.ErrorContext(ctx, "OCR failed", "error", err, "chat_id", chatID)
		h.clearState(ctx, userID)
		sendText(ctx, b, h.deps, chatID, msgs.TransientError, mainMenuKeyboard())
		return
	}
	if extracted == "" {
		// Unreadable image. Keep the state so the user can retry with a
		// better shot.
		sendText(ctx, b, h.deps, chatID, msgs.OCRFailed, cancelKeyboard())
		return
	}

	h.solve(ctx, b, chatID, userID, openrouter.SolvePromptPrefix+extracted)
}

func (h messageHandler) handleDocument(ctx context.Context, b *bot.Bot, chatID, userID int64, state session.State, doc *models.Document) {
	log := h.deps.Logger.With("handler", "message")
	msgs := h.deps.Config.Messages

	if !state.AcceptsDocument() {
		// Documents only make sense in solve-text or summary mode; remind
		// without touching the current state.
		sendText(ctx, b, h.deps, chatID, msgs.DocumentNeedsMode, mainMenuKeyboard())
		return
	}

	data, _, err := DownloadFile(ctx, b, h.deps.Config.Telegram.Token, doc.FileID)
	if err != nil {
		log.ErrorContext(ctx, "Document download failed", "error", err, "chat_id", chatID)
		h.clearState(ctx, userID)
		sendText(ctx, b, h.deps, chatID, msgs.DownloadError, mainMenuKeyboard())
		return
	}

	text, err := extract.FromDocument(data, doc.FileName)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			sendText(ctx, b, h.deps, chatID, msgs.UnsupportedDocument, cancelKeyboard())
			return
		}
		log.ErrorContext(ctx, "Document extraction failed", "error", err, "chat_id", chatID, "filename", doc.FileName)
		h.clearState(ctx, userID)
		sendText(ctx, b, h.deps, chatID, msgs.ExtractFailed, mainMenuKeyboard())
		return
	}
	if text == "" {
		sendText(ctx, b, h.deps, chatID, msgs.EmptyText, cancelKeyboard())
		return
	}

	prefix := openrouter.SolvePromptPrefix
	if state == session.StateAwaitingSummary {
		prefix = openrouter.SummaryPromptPrefix
	}
	h.solve(ctx, b, chatID, userID, prefix+text)
}

// solve runs the chargeable pipeline: allowance gate, completion with
// conversation context, then usage recording and memory append on success.
// A failed completion charges nothing and drops the user back to idle.
func (h messageHandler) solve(ctx context.Context, b *bot.Bot, chatID, userID int64, prompt string) {
	log := h.deps.Logger.With("handler", "message")
	msgs := h.deps.Config.Messages

	remaining, unlimited, err := h.deps.Quota.RemainingAllowance(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "Allowance check failed", "error", err, "user_id", userID)
		sendText(ctx, b, h.deps, chatID, msgs.StorageError, mainMenuKeyboard())
		return
	}
	if !unlimited && remaining <= 0 {
		log.InfoContext(ctx, "Daily quota exhausted", "user_id", userID)
		h.clearState(ctx, userID)
		sendText(ctx, b, h.deps, chatID, msgs.QuotaExceeded, mainMenuKeyboard())
		return
	}

	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	history, err := h.deps.Memory.Recent(ctx, userID, h.deps.Config.Memory.ContextPairs)
	if err != nil {
		// Degrade to a contextless completion rather than failing the request.
		log.ErrorContext(ctx, "Failed to load conversation context", "error", err, "user_id", userID)
		history = nil
	}

	llmCtx, cancel := context.WithTimeout(ctx, llmTimeout)
	answer, err := h.deps.LLM.Complete(llmCtx, prompt, history)
	cancel()
	if err != nil {
		log.ErrorContext(ctx, "Completion failed", "error", err, "user_id", userID)
		h.clearState(ctx, userID)
		sendText(ctx, b, h.deps, chatID, msgs.TransientError, mainMenuKeyboard())
		return
	}

	if err := h.deps.Quota.RecordUsage(ctx, userID); err != nil {
		log.ErrorContext(ctx, "Failed to record usage", "error", err, "user_id", userID)
	}
	if err := h.deps.Memory.Remember(ctx, userID, prompt, answer); err != nil {
		log.ErrorContext(ctx, "Failed to remember exchange", "error", err, "user_id", userID)
	}

	h.clearState(ctx, userID)
	sendText(ctx, b, h.deps, chatID, answer, mainMenuKeyboard())
}

// handleAdminFlow services the text steps of the admin sub-flows: broadcast
// composition and the user-id prompts for memory lookup and premium changes.
func (h messageHandler) handleAdminFlow(ctx context.Context, b *bot.Bot, chatID, adminID int64, state session.State, text string) {
	log := h.deps.Logger.With("handler", "message")
	msgs := h.deps.Config.Messages

	if !h.deps.Tiers.IsAdmin(adminID) {
		// A swept admin row or a tampered state tag; reset and bail.
		log.WarnContext(ctx, "Non-admin user found in admin flow, resetting", "user_id", adminID, "state", state)
		h.clearState(ctx, adminID)
		sendText(ctx, b, h.deps, chatID, msgs.Unauthorized, mainMenuKeyboard())
		return
	}

	switch state {
	case session.StateAwaitingBroadcast:
		if text == "" {
			sendText(ctx, b, h.deps, chatID, msgs.EmptyText, cancelKeyboard())
			return
		}
		h.deps.Drafts.Put(adminID, text)
		if err := h.deps.Sessions.Set(ctx, adminID, session.StateAwaitingBroadcastConfirm); err != nil {
			log.ErrorContext(ctx, "Failed to advance broadcast flow", "error", err, "admin_id", adminID)
			sendText(ctx, b, h.deps, chatID, msgs.StorageError, adminPanelKeyboard())
			return
		}
		sendText(ctx, b, h.deps, chatID, "📣 Предпросмотр рассылки:\n\n"+text, broadcastConfirmKeyboard())

	case session.StateAwaitingBroadcastConfirm:
		// Waiting on a button press, not text.
		sendText(ctx, b, h.deps, chatID, msgs.BroadcastPrompt, broadcastConfirmKeyboard())

	case session.StateAwaitingMemoryLookup:
		targetID, ok := parseUserID(text)
		if !ok {
			sendText(ctx, b, h.deps, chatID, msgs.InvalidUserID, cancelKeyboard())
			return
		}
		h.showMemory(ctx, b, chatID, adminID, targetID)

	case session.StateAwaitingGrantPremium:
		targetID, ok := parseUserID(text)
		if !ok {
			sendText(ctx, b, h.deps, chatID, msgs.InvalidUserID, cancelKeyboard())
			return
		}
		if err := h.deps.Tiers.GrantPremium(ctx, targetID); err != nil {
			log.ErrorContext(ctx, "Failed to grant premium", "error", err, "target_id", targetID)
			sendText(ctx, b, h.deps, chatID, msgs.StorageError, adminPanelKeyboard())
			return
		}
		h.clearState(ctx, adminID)
		sendText(ctx, b, h.deps, chatID, msgs.PremiumGranted, adminPanelKeyboard())

	case session.StateAwaitingRevokePremium:
		targetID, ok := parseUserID(text)
		if !ok {
			sendText(ctx, b, h.deps, chatID, msgs.InvalidUserID, cancelKeyboard())
			return
		}
		if err := h.deps.Tiers.RevokePremium(ctx, targetID); err != nil {
			log.ErrorContext(ctx, "Failed to revoke premium", "error", err, "target_id", targetID)
			sendText(ctx, b, h.deps, chatID, msgs.StorageError, adminPanelKeyboard())
			return
		}
		h.clearState(ctx, adminID)
		sendText(ctx, b, h.deps, chatID, msgs.PremiumRevoked, adminPanelKeyboard())
	}
}

// showMemory renders a user's conversation window newest-first for admin
// inspection.
func (h messageHandler) showMemory(ctx context.Context, b *bot.Bot, chatID, adminID, targetID int64) {
	log := h.deps.Logger.With("handler", "message")
	msgs := h.deps.Config.Messages

	exchanges, err := h.deps.Memory.History(ctx, targetID)
	if err != nil {
		log.ErrorContext(ctx, "Memory lookup failed", "error", err, "target_id", targetID)
		sendText(ctx, b, h.deps, chatID, msgs.StorageError, adminPanelKeyboard())
		return
	}

	h.clearState(ctx, adminID)

	if len(exchanges) == 0 {
		sendText(ctx, b, h.deps, chatID, msgs.MemoryEmpty, adminPanelKeyboard())
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 Память пользователя %d (%d записей)\n", targetID, len(exchanges))
	for i, ex := range exchanges {
		fmt.Fprintf(&sb, "\n%d) %s\nВопрос: %s\nОтвет: %s\n",
			i+1, ex.CreatedAt.Format("02.01 15:04"),
			truncate(ex.Prompt, memoryViewEntryLimit),
			truncate(ex.Response, memoryViewEntryLimit))
	}

	sendText(ctx, b, h.deps, chatID, truncate(sb.String(), 4000), adminPanelKeyboard())
}

func (h messageHandler) clearState(ctx context.Context, userID int64) {
	if err := h.deps.Sessions.Clear(ctx, userID); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to clear session state", "error", err, "user_id", userID)
	}
}

func parseUserID(text string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
