// Package slackbot serves the /clinicai slash command for clinic staff over
// Slack Socket Mode.
package slackbot

import (
	"context"
	"log/slog"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/cpsu-health/clinicai/internal/domain/port/inbound"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

// StatusReader exposes provider availability and usage counts.
type StatusReader interface {
	Providers() []inbound.ProviderStatus
	Usage(ctx context.Context, filter outbound.UsageFilter) ([]outbound.UsageSummary, error)
}

// Config holds Slack bot configuration.
type Config struct {
	BotToken string
	AppToken string
}

// Bot handles incoming Slack events via Socket Mode.
type Bot struct {
	socketMode *socketmode.Client
	commands   *Commands
	logger     *slog.Logger
}

// NewBot creates a new Bot with Socket Mode enabled.
func NewBot(cfg Config, status StatusReader, logger *slog.Logger) *Bot {
	client := slackapi.New(cfg.BotToken, slackapi.OptionAppLevelToken(cfg.AppToken))
	return &Bot{
		socketMode: socketmode.New(client),
		commands:   NewCommands(status, logger),
		logger:     logger,
	}
}

// Start begins processing Slack events. It blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting slack bot")
	go b.handleEvents(ctx)
	return b.socketMode.RunContext(ctx)
}

func (b *Bot) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-b.socketMode.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				b.handleSlashCommand(ctx, evt)
			case socketmode.EventTypeConnectionError:
				b.logger.Warn("slack socket mode connection error", "error", evt.Data)
			default:
				if evt.Request != nil {
					b.socketMode.Ack(*evt.Request)
				}
			}
		}
	}
}

// handleSlashCommand answers /clinicai in the acknowledgement payload.
func (b *Bot) handleSlashCommand(ctx context.Context, evt socketmode.Event) {
	cmd, ok := evt.Data.(slackapi.SlashCommand)
	if !ok {
		b.socketMode.Ack(*evt.Request)
		return
	}

	b.logger.Info("slash command received", "user", cmd.UserID, "text", cmd.Text)
	b.socketMode.Ack(*evt.Request, b.commands.Respond(ctx, cmd.Text))
}
