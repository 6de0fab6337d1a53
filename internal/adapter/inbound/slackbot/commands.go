package slackbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/cpsu-health/clinicai/internal/adapter/inbound/slackbot/template"
	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

// UsageWindow is how far back "/clinicai usage" looks.
const UsageWindow = 24 * time.Hour

const responseEphemeral = "ephemeral"

// Commands turns slash command text into a Slack response payload.
type Commands struct {
	status StatusReader
	logger *slog.Logger
	now    func() time.Time
}

func NewCommands(status StatusReader, logger *slog.Logger) *Commands {
	return &Commands{status: status, logger: logger, now: time.Now}
}

// Respond handles one command. Responses are ephemeral to the caller.
func (c *Commands) Respond(ctx context.Context, text string) slackapi.Msg {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return ephemeral(helpText())
	}

	switch fields[0] {
	case "providers", "status":
		return slackapi.Msg{
			ResponseType: responseEphemeral,
			Blocks:       slackapi.Blocks{BlockSet: template.BuildProviderBlocks(c.status.Providers())},
		}
	case "usage":
		return ephemeral(c.usage(ctx, fields[1:]))
	case "help":
		return ephemeral(helpText())
	default:
		sanitized := fields[0]
		if len(sanitized) > 100 {
			sanitized = sanitized[:100]
		}
		sanitized = strings.ReplaceAll(sanitized, "`", "'")
		return ephemeral(fmt.Sprintf(":question: Unknown command `%s`. Try `/clinicai help`.", sanitized))
	}
}

func (c *Commands) usage(ctx context.Context, args []string) string {
	since := c.now().Add(-UsageWindow)
	filter := outbound.UsageFilter{Since: &since}
	if len(args) > 0 {
		op := model.Operation(args[0])
		if !knownOperation(op) {
			return fmt.Sprintf(":warning: Unknown operation `%s`.", strings.ReplaceAll(args[0], "`", "'"))
		}
		filter.Operation = op
	}

	summaries, err := c.status.Usage(ctx, filter)
	if err != nil {
		c.logger.Error("slash command usage failed", "error", err)
		return ":warning: Usage is unavailable right now."
	}
	return template.BuildUsageText("24h", summaries)
}

func knownOperation(op model.Operation) bool {
	for _, known := range model.AllOperations {
		if op == known {
			return true
		}
	}
	return false
}

func ephemeral(text string) slackapi.Msg {
	return slackapi.Msg{ResponseType: responseEphemeral, Text: text}
}

func helpText() string {
	ops := make([]string, len(model.AllOperations))
	for i, op := range model.AllOperations {
		ops[i] = string(op)
	}
	return strings.Join([]string{
		":stethoscope: *Clinic assistant commands*",
		"",
		"• `/clinicai providers`: provider availability",
		"• `/clinicai usage [operation]`: provider outcomes in the last 24h",
		"• `/clinicai help`: this message",
		"",
		"Operations: " + strings.Join(ops, ", "),
	}, "\n")
}
