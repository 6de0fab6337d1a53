package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

// Config holds Slack notifier configuration.
type Config struct {
	BotToken string
	Channel  string
	// APIURL overrides the Slack Web API base URL; it must end with a slash.
	APIURL string
}

// Notifier implements outbound.Notifier via the Slack API.
type Notifier struct {
	client  *slackapi.Client
	channel string
}

var _ outbound.Notifier = (*Notifier)(nil)

func NewNotifier(cfg Config) *Notifier {
	var opts []slackapi.Option
	if cfg.APIURL != "" {
		opts = append(opts, slackapi.OptionAPIURL(cfg.APIURL))
	}
	return &Notifier{
		client:  slackapi.New(cfg.BotToken, opts...),
		channel: cfg.Channel,
	}
}

// NotifyDiagnosis posts a diagnosis card to the clinic staff channel.
func (n *Notifier) NotifyDiagnosis(ctx context.Context, notification outbound.DiagnosisNotification) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slackapi.MsgOptionBlocks(BuildDiagnosisBlocks(notification)...),
		slackapi.MsgOptionText(Headline(notification), false),
	)
	if err != nil {
		return fmt.Errorf("slack NotifyDiagnosis: %w", err)
	}
	return nil
}
