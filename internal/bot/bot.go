// Package bot binds the command surface to the login and retrieval flows
// through the Bot API long-poll loop.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/telefetch/telefetch/internal/config"
	"github.com/telefetch/telefetch/internal/entitlement"
	"github.com/telefetch/telefetch/internal/login"
	"github.com/telefetch/telefetch/internal/relay"
	"github.com/telefetch/telefetch/internal/retrieval"
	"github.com/telefetch/telefetch/internal/session"
	"github.com/telefetch/telefetch/internal/telegram"
)

// Bot routes inbound updates: authentication steps to the login manager,
// message links to the retrieval pipeline, admin commands to the
// entitlement store.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      config.Config
	login    *login.Manager
	pipeline *retrieval.Pipeline
	sessions *session.Service
	ents     entitlement.Repository
	dialer   *telegram.Dialer
	sender   relay.Sender
	logger   *slog.Logger
}

// Deps aggregates the collaborators the bot dispatches to.
type Deps struct {
	API      *tgbotapi.BotAPI
	Cfg      config.Config
	Login    *login.Manager
	Pipeline *retrieval.Pipeline
	Sessions *session.Service
	Ents     entitlement.Repository
	Dialer   *telegram.Dialer
	Sender   relay.Sender
	Logger   *slog.Logger
}

// New builds the dispatcher around an authorized Bot API client.
func New(d Deps) (*Bot, error) {
	if d.API == nil {
		return nil, fmt.Errorf("bot api client is required")
	}
	d.Logger.Info("bot authorized", "username", d.API.Self.UserName)

	return &Bot{
		api:      d.API,
		cfg:      d.Cfg,
		login:    d.Login,
		pipeline: d.Pipeline,
		sessions: d.Sessions,
		ents:     d.Ents,
		dialer:   d.Dialer,
		sender:   d.Sender,
		logger:   d.Logger,
	}, nil
}

// Run consumes updates until the context ends. Each update is handled on its
// own goroutine so one user's blocking remote call never stalls another's.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			go b.handle(ctx, update.Message)
		}
	}
}

// handle processes a single inbound message. Panics are contained here so a
// failure in one user's flow cannot take the process down.
func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panic", "user_id", msg.From.ID, "panic", r)
		}
	}()

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleText(ctx, msg)
}

// send replies into the originating chat. Failures are logged, never propagated.
func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Warn("send reply failed", "chat_id", chatID, "error", err)
	}
}

// audit posts a record to the configured log channel, when one is set.
func (b *Bot) audit(ctx context.Context, text string) {
	if b.cfg.LogChannelID == 0 {
		return
	}
	if err := b.sender.SendText(ctx, b.cfg.LogChannelID, text); err != nil {
		b.logger.Warn("audit notification failed", "error", err)
	}
}
