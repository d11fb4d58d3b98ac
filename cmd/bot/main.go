// Package main contains the entrypoint for the Telegram bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/ndrwnv/zubrilabot/internal/bot"
	"github.com/ndrwnv/zubrilabot/internal/bot/handlers"
	"github.com/ndrwnv/zubrilabot/internal/bot/tasks"
	"github.com/ndrwnv/zubrilabot/internal/config"
	"github.com/ndrwnv/zubrilabot/internal/database"
	"github.com/ndrwnv/zubrilabot/internal/logger"
	"github.com/ndrwnv/zubrilabot/internal/memory"
	"github.com/ndrwnv/zubrilabot/internal/openrouter"
	"github.com/ndrwnv/zubrilabot/internal/quota"
	"github.com/ndrwnv/zubrilabot/internal/session"
	"github.com/ndrwnv/zubrilabot/internal/telegram"
	"github.com/ndrwnv/zubrilabot/internal/tier"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all application components, starts the bot, handles
// graceful shutdown, and returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	llmClient, err := openrouter.NewClient(cfg.OpenRouter, log)
	if err != nil {
		log.Error("Failed to initialize OpenRouter client", "error", err)
		return 1
	}

	tiers := tier.NewRegistry(store, cfg.Telegram.AdminIDs, log)
	quotas := quota.NewManager(store, tiers, cfg.Quota.StandardDailyLimit, cfg.Quota.PremiumDailyLimit, log)
	memories := memory.NewManager(store, cfg.Memory.WindowSize, log)
	sessions := session.NewTracker(store, log)

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Quota:    quotas,
		Memory:   memories,
		Sessions: sessions,
		Tiers:    tiers,
		LLM:      llmClient,
		Drafts:   handlers.NewBroadcastDrafts(),
	}
	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, cfg, db, store, llmClient, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
