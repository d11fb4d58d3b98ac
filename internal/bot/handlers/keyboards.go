package handlers

import (
	"github.com/go-telegram/bot/models"
)

// Callback data values. Menu buttons share the btn_ prefix, admin buttons
// the admin_ prefix; the registry dispatches on those prefixes.
const (
	menuCallbackPrefix  = "btn_"
	adminCallbackPrefix = "admin_"

	cbSolveText   = "btn_solve_text"
	cbSolvePhoto  = "btn_solve_photo"
	cbSummary     = "btn_summary"
	cbProfile     = "btn_profile"
	cbClearMemory = "btn_clear_memory"
	cbHelp        = "btn_help"
	cbCancel      = "btn_cancel"
	cbMenu        = "btn_menu"

	cbAdminPanel           = "admin_panel"
	cbAdminStats           = "admin_stats"
	cbAdminUsers           = "admin_users"
	cbAdminActivity        = "admin_activity"
	cbAdminBroadcast       = "admin_broadcast"
	cbAdminBroadcastSend   = "admin_broadcast_send"
	cbAdminBroadcastCancel = "admin_broadcast_cancel"
	cbAdminMemoryLookup    = "admin_memory"
	cbAdminGrantPremium    = "admin_grant"
	cbAdminRevokePremium   = "admin_revoke"
)

func mainMenuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "✍️ Решить задачу текстом", CallbackData: cbSolveText}},
			{{Text: "📸 Решить задачу по фото", CallbackData: cbSolvePhoto}},
			{{Text: "📝 Составить конспект", CallbackData: cbSummary}},
			{
				{Text: "👤 Профиль", CallbackData: cbProfile},
				{Text: "🧹 Очистить память", CallbackData: cbClearMemory},
			},
			{{Text: "❓ Помощь", CallbackData: cbHelp}},
		},
	}
}

func cancelKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "❌ Отмена", CallbackData: cbCancel}},
		},
	}
}

func backToMenuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "⬅️ В меню", CallbackData: cbMenu}},
		},
	}
}

func adminPanelKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "📊 Статистика", CallbackData: cbAdminStats},
				{Text: "👥 Пользователи", CallbackData: cbAdminUsers},
			},
			{
				{Text: "📈 Активность", CallbackData: cbAdminActivity},
				{Text: "🔍 Память", CallbackData: cbAdminMemoryLookup},
			},
			{{Text: "📣 Рассылка", CallbackData: cbAdminBroadcast}},
			{
				{Text: "⭐ Выдать премиум", CallbackData: cbAdminGrantPremium},
				{Text: "💤 Снять премиум", CallbackData: cbAdminRevokePremium},
			},
			{{Text: "⬅️ В меню", CallbackData: cbMenu}},
		},
	}
}

func adminBackKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "⬅️ В панель", CallbackData: cbAdminPanel}},
		},
	}
}

func broadcastConfirmKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Отправить", CallbackData: cbAdminBroadcastSend},
				{Text: "❌ Отменить", CallbackData: cbAdminBroadcastCancel},
			},
		},
	}
}
