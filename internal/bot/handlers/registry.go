package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler bundles a handler with its registration parameters and
// per-handler middleware chain.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands builds the map of command and callback handlers. Menu
// callbacks are dispatched by the btn_ prefix, admin callbacks by the admin_
// prefix behind the AdminOnly middleware.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     NewStartHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/help"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "help",
		Handler:     NewHelpHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/profile"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "profile",
		Handler:     NewProfileHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}

	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}

	handlers["/admpanel"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "admpanel",
		Handler:     NewAdminPanelHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  adminMiddleware,
	}

	handlers["menu_callbacks"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     menuCallbackPrefix,
		Handler:     NewMenuCallbackHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}
	handlers["admin_callbacks"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     adminCallbackPrefix,
		Handler:     NewAdminCallbackHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
		Middleware:  adminMiddleware,
	}

	return handlers
}
