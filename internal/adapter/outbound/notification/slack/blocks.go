package slack

import (
	"fmt"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

// severityEmoji maps diagnosis severity to an emoji prefix.
func severityEmoji(severity string) string {
	switch strings.ToLower(severity) {
	case string(model.SeveritySevere):
		return ":red_circle:"
	case string(model.SeverityModerate):
		return ":large_yellow_circle:"
	case string(model.SeverityMild):
		return ":large_green_circle:"
	default:
		return ":large_blue_circle:"
	}
}

// Headline is the plain-text fallback shown in notifications.
func Headline(n outbound.DiagnosisNotification) string {
	var tags []string
	if strings.EqualFold(n.Severity, string(model.SeveritySevere)) {
		tags = append(tags, "SEVERE")
	}
	if n.IsCommunicable {
		tags = append(tags, "COMMUNICABLE")
	}
	prefix := ""
	if len(tags) > 0 {
		prefix = "[" + strings.Join(tags, ", ") + "] "
	}
	return fmt.Sprintf("%s%s reported via health assistant chat", prefix, n.PredictedDisease)
}

// BuildDiagnosisBlocks constructs the Block Kit card clinic staff see for a
// chat diagnosis.
func BuildDiagnosisBlocks(n outbound.DiagnosisNotification) []slackapi.Block {
	header := slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("%s *%s*", severityEmoji(n.Severity), Headline(n)), false, false),
		nil, nil,
	)

	communicable := "No"
	if n.IsCommunicable {
		communicable = "Yes"
	}
	icd := n.ICD10Code
	if icd == "" {
		icd = "n/a"
	}
	fields := []*slackapi.TextBlockObject{
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Predicted condition*\n%s", n.PredictedDisease), false, false),
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Confidence*\n%.0f%%", n.Confidence*100), false, false),
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Severity*\n%s", strings.ToUpper(n.Severity)), false, false),
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Communicable*\n%s", communicable), false, false),
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*ICD-10*\n`%s`", icd), false, false),
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Student*\n%s", orUnknown(n.StudentID)), false, false),
	}

	blocks := []slackapi.Block{header, slackapi.NewDividerBlock(), slackapi.NewSectionBlock(nil, fields, nil)}

	if len(n.Symptoms) > 0 {
		blocks = append(blocks, slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType,
				"*Reported symptoms*\n"+model.HumanSymptoms(n.Symptoms), false, false),
			nil, nil,
		))
	}

	blocks = append(blocks, slackapi.NewContextBlock("",
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("Record `%s` · Session `%s` · follow-up due in 3 days", n.RecordID, n.SessionID), false, false),
	))
	return blocks
}

func orUnknown(s string) string {
	if s == "" {
		return "_unknown_"
	}
	return s
}
