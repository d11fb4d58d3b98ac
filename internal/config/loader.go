package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. The YAML file at configPath
// 3. BOT_* environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Missing config file is fine, defaults plus env vars may be enough.
	// An explicitly set file path surfaces as fs.ErrNotExist rather than
	// viper's ConfigFileNotFoundError.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %q: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	// Required keys get empty defaults so BOT_* env overrides reach
	// Unmarshal; validation still rejects them when left empty.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_ids", []int64{})
	v.SetDefault("openrouter.api_key", "")

	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "deepseek/deepseek-chat")
	v.SetDefault("openrouter.ocr_model", "openai/gpt-4o-mini")
	v.SetDefault("openrouter.temperature", 0.1)
	v.SetDefault("openrouter.max_tokens", 1500)
	v.SetDefault("openrouter.timeout", 2*time.Minute)
	v.SetDefault("openrouter.max_retries", 2)
	v.SetDefault("openrouter.retry_delay", 2*time.Second)

	v.SetDefault("database.path", "storage.db")

	v.SetDefault("quota.standard_daily_limit", 50)
	v.SetDefault("quota.premium_daily_limit", 500)

	v.SetDefault("memory.window_size", 10)
	v.SetDefault("memory.context_pairs", 3)

	v.SetDefault("session.stale_after", 24*time.Hour)

	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 4 * * *")
	v.SetDefault("scheduler.tasks.session_sweep.enabled", true)
	v.SetDefault("scheduler.tasks.session_sweep.schedule", "*/30 * * * *")
	v.SetDefault("scheduler.tasks.daily_stats.enabled", false)
	v.SetDefault("scheduler.tasks.daily_stats.schedule", "0 0 * * *")

	setMessageDefaults(v)
}

func setMessageDefaults(v *viper.Viper) {
	v.SetDefault("messages.welcome", "👋 Привет!\nЯ бот-помощник по учебе — отправь текст, фото или файл (TXT/PDF) задачи, или выбери действие кнопкой ниже.")
	v.SetDefault("messages.help", "Отправь текст, фото или файл (TXT/PDF) с заданием — я решу его и отвечу. Кнопки ниже переключают режимы, «Конспект» делает краткий конспект по теме.")
	v.SetDefault("messages.main_menu", "👋 Главное меню")
	v.SetDefault("messages.cancelled", "❌ Отмена. Возврат в главное меню.")
	v.SetDefault("messages.await_text", "✍️ Хорошо — отправь текст или файл (TXT/PDF) задания. Нажми ❌ Отмена, чтобы выйти.")
	v.SetDefault("messages.await_photo", "📸 Отлично — отправь фото задания. Нажми ❌ Отмена, чтобы выйти.")
	v.SetDefault("messages.await_summary", "📚 Хорошо — пришли тему, текст или файл (TXT/PDF), по которому надо сделать конспект.")
	v.SetDefault("messages.empty_text", "Пустой текст — отправь задание.")
	v.SetDefault("messages.quota_exceeded", "⚠️ Дневной лимит запросов исчерпан. Попробуй завтра.")
	v.SetDefault("messages.transient_error", "⚠️ Не получилось обработать запрос. Попробуй ещё раз чуть позже.")
	v.SetDefault("messages.storage_error", "⚠️ Внутренняя ошибка. Попробуй ещё раз.")
	v.SetDefault("messages.download_error", "⚠️ Не удалось скачать файл. Попробуй ещё раз.")
	v.SetDefault("messages.ocr_failed", "🤖 Не удалось распознать текст. Попробуй фото получше или добавь описание.")
	v.SetDefault("messages.extract_failed", "🤖 Не удалось извлечь текст. Если PDF сканированный, отправь как фото.")
	v.SetDefault("messages.unsupported_document", "📎 Поддерживаемые форматы: TXT, PDF.")
	v.SetDefault("messages.document_needs_mode", "📎 Для обработки файлов выбери «Решить текст» или «Конспект».")
	v.SetDefault("messages.memory_cleared", "🧹 Память очищена.")
	v.SetDefault("messages.memory_empty", "📭 Память пуста.")
	v.SetDefault("messages.unauthorized", "⛔️ У вас нет доступа к этой команде.")
	v.SetDefault("messages.admin_panel", "👨‍💻 Админ-панель\nВыберите действие:")
	v.SetDefault("messages.broadcast_prompt", "📢 Создание рассылки\nОтправьте сообщение для рассылки:")
	v.SetDefault("messages.broadcast_missing", "❌ Нет сообщения для рассылки.")
	v.SetDefault("messages.broadcast_cancelled", "❌ Рассылка отменена.")
	v.SetDefault("messages.broadcast_started", "🔄 Рассылка началась...")
	v.SetDefault("messages.memory_lookup_prompt", "🔍 Просмотр памяти пользователя\nОтправьте ID пользователя:")
	v.SetDefault("messages.grant_premium_prompt", "⭐️ Выдача премиума\nОтправьте ID пользователя:")
	v.SetDefault("messages.revoke_premium_prompt", "🚫 Отзыв премиума\nОтправьте ID пользователя:")
	v.SetDefault("messages.premium_granted", "⭐️ Премиум выдан.")
	v.SetDefault("messages.premium_revoked", "🚫 Премиум отозван.")
	v.SetDefault("messages.invalid_user_id", "❌ Неверный ID пользователя.")
}
