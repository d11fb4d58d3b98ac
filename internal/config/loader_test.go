package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ndrwnv/zubrilabot/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, `
telegram:
  token: "123456:test-token"
  admin_ids: [42]
openrouter:
  api_key: "sk-or-test"
`)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level = %q, want info", cfg.Logger.Level)
	}
	if cfg.OpenRouter.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("OpenRouter.BaseURL = %q, want OpenRouter endpoint", cfg.OpenRouter.BaseURL)
	}
	if cfg.Quota.StandardDailyLimit != 50 || cfg.Quota.PremiumDailyLimit != 500 {
		t.Errorf("quota limits = %d/%d, want 50/500", cfg.Quota.StandardDailyLimit, cfg.Quota.PremiumDailyLimit)
	}
	if cfg.Memory.WindowSize != 10 || cfg.Memory.ContextPairs != 3 {
		t.Errorf("memory config = %d/%d, want 10/3", cfg.Memory.WindowSize, cfg.Memory.ContextPairs)
	}
	if cfg.Session.StaleAfter != 24*time.Hour {
		t.Errorf("Session.StaleAfter = %v, want 24h", cfg.Session.StaleAfter)
	}
	if task, ok := cfg.Scheduler.Tasks["sql_maintenance"]; !ok || !task.Enabled {
		t.Errorf("sql_maintenance task = %+v, want enabled", task)
	}
	if cfg.Messages.Welcome == "" || cfg.Messages.QuotaExceeded == "" {
		t.Error("message defaults missing")
	}
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, `
telegram:
  token: "123456:test-token"
  admin_ids: [42, 43]
openrouter:
  api_key: "sk-or-test"
  model: "qwen/qwen-2.5-72b-instruct"
quota:
  standard_daily_limit: 5
messages:
  welcome: "custom greeting"
`)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.OpenRouter.Model != "qwen/qwen-2.5-72b-instruct" {
		t.Errorf("OpenRouter.Model = %q, want file value", cfg.OpenRouter.Model)
	}
	if cfg.Quota.StandardDailyLimit != 5 {
		t.Errorf("Quota.StandardDailyLimit = %d, want 5", cfg.Quota.StandardDailyLimit)
	}
	if cfg.Quota.PremiumDailyLimit != 500 {
		t.Errorf("Quota.PremiumDailyLimit = %d, want default 500", cfg.Quota.PremiumDailyLimit)
	}
	if cfg.Messages.Welcome != "custom greeting" {
		t.Errorf("Messages.Welcome = %q, want file value", cfg.Messages.Welcome)
	}
	if len(cfg.Telegram.AdminIDs) != 2 {
		t.Errorf("AdminIDs = %v, want two entries", cfg.Telegram.AdminIDs)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing token",
			content: `
telegram:
  admin_ids: [42]
openrouter:
  api_key: "sk-or-test"
`,
		},
		{
			name: "missing admin ids",
			content: `
telegram:
  token: "123456:test-token"
openrouter:
  api_key: "sk-or-test"
`,
		},
		{
			name: "missing api key",
			content: `
telegram:
  token: "123456:test-token"
  admin_ids: [42]
`,
		},
		{
			name: "negative admin id",
			content: `
telegram:
  token: "123456:test-token"
  admin_ids: [-1]
openrouter:
  api_key: "sk-or-test"
`,
		},
		{
			name: "zero quota limit",
			content: `
telegram:
  token: "123456:test-token"
  admin_ids: [42]
openrouter:
  api_key: "sk-or-test"
quota:
  standard_daily_limit: 0
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfigFile(t, tt.content)
			if _, err := config.LoadConfig(path); err == nil {
				t.Error("LoadConfig() succeeded, want validation error")
			}
		})
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "123456:env-token")
	t.Setenv("BOT_OPENROUTER_API_KEY", "sk-or-env")

	// Admin IDs cannot come from the environment as a list, so a missing
	// file without them must fail validation, proving the file was skipped
	// without a read error.
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("LoadConfig() succeeded without admin ids, want validation error")
	}
}
