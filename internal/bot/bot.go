// Package bot wires the conversation engine to the Telegram transport:
// commands, callback buttons and free-text messages are decoded here and
// engine replies are rendered as messages with inline keyboards.
package bot

import (
	"strings"
	"time"

	coreconfig "orderbot/core/config"
	tg "orderbot/core/telegram"
	"orderbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"

	"orderbot/internal/flow"
)

// Bot holds the transport-facing wiring around the flow engine.
type Bot struct {
	cfg      *coreconfig.Config
	engine   *flow.Engine
	registry *tg.Registry
}

// New builds the registry of commands and callbacks for the order flow.
func New(cfg *coreconfig.Config, engine *flow.Engine) *Bot {
	b := &Bot{
		cfg:      cfg,
		engine:   engine,
		registry: tg.NewRegistry(),
	}

	b.registry.RegisterCommand("/start", tg.Command{
		Handler:     b.handleStart,
		Description: "Begin a new order",
	})
	b.registry.RegisterCommand("/cancel", tg.Command{
		Handler:     b.handleCancel,
		Description: "Cancel the current order",
	})

	_ = b.registry.RegisterCallback(callbackCategory, b.handleCategory)
	_ = b.registry.RegisterCallback(callbackProduct, b.handleProduct)
	_ = b.registry.RegisterCallback(callbackConfirm, b.handleConfirm)

	b.registry.SetTextFallback(b.handleText)

	return b
}

// Registry exposes the command/callback registry.
func (b *Bot) Registry() *tg.Registry {
	return b.registry
}

// RunOptions assembles the middleware chain and routes for telegram.Run.
func (b *Bot) RunOptions() tg.RunOptions {
	mws := []tg.Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	interval := time.Duration(b.cfg.RateLimit.IntervalMS) * time.Millisecond
	if interval > 0 {
		exclude := make(map[string]struct{}, len(b.cfg.RateLimit.ExcludeUpdates))
		for _, t := range b.cfg.RateLimit.ExcludeUpdates {
			exclude[strings.ToLower(t)] = struct{}{}
		}
		mws = append(mws, tg.Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval: interval,
				Exclude:  exclude,
			}),
		})
	}

	mws = append(mws, tg.Middleware{Name: "logger", Use: middleware.LoggerMiddleware})

	routes := make([]tg.Route, 0, len(b.registry.Commands())+2)
	for name, cmd := range b.registry.Commands() {
		routes = append(routes, tg.Route{Endpoint: name, Handler: cmd.Handler})
	}
	routes = append(routes,
		tg.Route{Endpoint: tele.OnCallback, Handler: b.routeCallback},
		tg.Route{Endpoint: tele.OnText, Handler: b.handleText},
	)

	return tg.RunOptions{
		Config:      b.cfg,
		Registry:    b.registry,
		Middlewares: mws,
		Routes:      routes,
	}
}
