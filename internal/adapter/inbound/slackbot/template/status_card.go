// Package template renders staff-facing Slack messages.
package template

import (
	"fmt"
	"sort"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/cpsu-health/clinicai/internal/domain/port/inbound"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

// BuildProviderBlocks renders one line per provider with its availability.
func BuildProviderBlocks(statuses []inbound.ProviderStatus) []slackapi.Block {
	header := slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType, ":stethoscope: *Health assistant providers*", false, false),
		nil, nil,
	)
	if len(statuses) == 0 {
		empty := slackapi.NewContextBlock("",
			slackapi.NewTextBlockObject(slackapi.MarkdownType, "No provider is configured. Every request uses its fallback reply.", false, false),
		)
		return []slackapi.Block{header, empty}
	}

	lines := make([]string, 0, len(statuses))
	for _, s := range statuses {
		lines = append(lines, providerLine(s))
	}
	body := slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType, strings.Join(lines, "\n"), false, false),
		nil, nil,
	)
	return []slackapi.Block{header, slackapi.NewDividerBlock(), body}
}

func providerLine(s inbound.ProviderStatus) string {
	name := fmt.Sprintf("*%s*", s.Provider)
	if s.Model != "" {
		name += fmt.Sprintf(" `%s`", s.Model)
	}
	if s.Available {
		return ":large_green_circle: " + name
	}
	line := ":red_circle: " + name + " unavailable"
	if s.Reason != "" {
		line += " (" + s.Reason + ")"
	}
	return line
}

// BuildUsageText renders usage counts grouped by operation, in a stable order.
func BuildUsageText(window string, summaries []outbound.UsageSummary) string {
	if len(summaries) == 0 {
		return fmt.Sprintf(":bar_chart: No provider activity in the last %s.", window)
	}

	byOp := make(map[string][]outbound.UsageSummary)
	for _, s := range summaries {
		op := string(s.Operation)
		byOp[op] = append(byOp[op], s)
	}
	ops := make([]string, 0, len(byOp))
	for op := range byOp {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	var b strings.Builder
	fmt.Fprintf(&b, ":bar_chart: *Provider usage, last %s*", window)
	for _, op := range ops {
		fmt.Fprintf(&b, "\n*%s*", op)
		for _, s := range byOp[op] {
			fmt.Fprintf(&b, "\n  %s %s: %d", s.Provider, s.Outcome, s.Count)
		}
	}
	return b.String()
}
