package handlers

import (
	"log/slog"

	"github.com/ndrwnv/zubrilabot/internal/config"
	"github.com/ndrwnv/zubrilabot/internal/database"
	"github.com/ndrwnv/zubrilabot/internal/memory"
	"github.com/ndrwnv/zubrilabot/internal/openrouter"
	"github.com/ndrwnv/zubrilabot/internal/quota"
	"github.com/ndrwnv/zubrilabot/internal/session"
	"github.com/ndrwnv/zubrilabot/internal/tier"
)

// HandlerDeps provides dependencies for Telegram command and callback
// handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Quota    *quota.Manager
	Memory   *memory.Manager
	Sessions *session.Tracker
	Tiers    *tier.Registry
	LLM      openrouter.Client
	Drafts   *BroadcastDrafts
}
