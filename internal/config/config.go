// Package config provides configuration loading, validation, and defaults
// for the bot. Values come from defaults, an optional config.yaml, and
// BOT_* environment variables, in that order of precedence.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config holds the full application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Quota      QuotaConfig      `mapstructure:"quota"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Session    SessionConfig    `mapstructure:"session"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Messages   MessagesConfig   `mapstructure:"messages"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot token and the static admin set.
// BotInfo is populated at startup from GetMe and is not read from file.
type TelegramConfig struct {
	Token    string  `mapstructure:"token"     validate:"required"`
	AdminIDs []int64 `mapstructure:"admin_ids" validate:"required,min=1,dive,gt=0"`

	BotInfo *models.User `mapstructure:"-"`
}

// OpenRouterConfig configures the LLM collaborator. OpenRouter speaks the
// OpenAI wire protocol, so BaseURL points at its /api/v1 endpoint.
type OpenRouterConfig struct {
	APIKey      string        `mapstructure:"api_key"     validate:"required"`
	BaseURL     string        `mapstructure:"base_url"    validate:"url"`
	Model       string        `mapstructure:"model"       validate:"required"`
	OCRModel    string        `mapstructure:"ocr_model"   validate:"required"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens   int           `mapstructure:"max_tokens"  validate:"min=1,max=32000"`
	Timeout     time.Duration `mapstructure:"timeout"     validate:"min=1s,max=10m"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" validate:"min=0"`
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// QuotaConfig sets the daily request ceilings per tier. Admins bypass
// quota entirely and have no ceiling.
type QuotaConfig struct {
	StandardDailyLimit int `mapstructure:"standard_daily_limit" validate:"min=1"`
	PremiumDailyLimit  int `mapstructure:"premium_daily_limit"  validate:"min=1"`
}

// MemoryConfig bounds the per-user conversation window. WindowSize is the
// retention cap, ContextPairs is how many recent exchanges go to the LLM.
type MemoryConfig struct {
	WindowSize   int `mapstructure:"window_size"   validate:"min=1,max=100"`
	ContextPairs int `mapstructure:"context_pairs" validate:"min=1,max=10"`
}

// SessionConfig controls the stale session state sweep.
type SessionConfig struct {
	StaleAfter time.Duration `mapstructure:"stale_after" validate:"min=1m"`
}

// SchedulerConfig lists scheduled tasks keyed by registry name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a single scheduled task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MessagesConfig holds every user-visible string so deployments can
// localize or reword them without a rebuild.
type MessagesConfig struct {
	Welcome             string `mapstructure:"welcome"`
	Help                string `mapstructure:"help"`
	MainMenu            string `mapstructure:"main_menu"`
	Cancelled           string `mapstructure:"cancelled"`
	AwaitText           string `mapstructure:"await_text"`
	AwaitPhoto          string `mapstructure:"await_photo"`
	AwaitSummary        string `mapstructure:"await_summary"`
	EmptyText           string `mapstructure:"empty_text"`
	QuotaExceeded       string `mapstructure:"quota_exceeded"`
	TransientError      string `mapstructure:"transient_error"`
	StorageError        string `mapstructure:"storage_error"`
	DownloadError       string `mapstructure:"download_error"`
	OCRFailed           string `mapstructure:"ocr_failed"`
	ExtractFailed       string `mapstructure:"extract_failed"`
	UnsupportedDocument string `mapstructure:"unsupported_document"`
	DocumentNeedsMode   string `mapstructure:"document_needs_mode"`
	MemoryCleared       string `mapstructure:"memory_cleared"`
	MemoryEmpty         string `mapstructure:"memory_empty"`
	Unauthorized        string `mapstructure:"unauthorized"`
	AdminPanel          string `mapstructure:"admin_panel"`
	BroadcastPrompt     string `mapstructure:"broadcast_prompt"`
	BroadcastMissing    string `mapstructure:"broadcast_missing"`
	BroadcastCancelled  string `mapstructure:"broadcast_cancelled"`
	BroadcastStarted    string `mapstructure:"broadcast_started"`
	MemoryLookupPrompt  string `mapstructure:"memory_lookup_prompt"`
	GrantPremiumPrompt  string `mapstructure:"grant_premium_prompt"`
	RevokePremiumPrompt string `mapstructure:"revoke_premium_prompt"`
	PremiumGranted      string `mapstructure:"premium_granted"`
	PremiumRevoked      string `mapstructure:"premium_revoked"`
	InvalidUserID       string `mapstructure:"invalid_user_id"`
}

// IsAdmin reports whether the given user is in the static admin set.
func (c *TelegramConfig) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
