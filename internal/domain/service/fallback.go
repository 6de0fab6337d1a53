package service

import (
	"fmt"
	"strings"

	"github.com/cpsu-health/clinicai/internal/domain/model"
)

// ChatFallback is returned by Chat when no provider answers.
const ChatFallback = "Thank you for your message. I'm currently experiencing technical issues with AI services. " +
	"Please consult with our clinic staff for proper evaluation."

const validationFallbackReasoning = "LLM validation unavailable, using ML prediction only"

// ValidationFallback trusts the ML prediction unchanged.
func ValidationFallback() model.ValidationVerdict {
	return model.NewValidationVerdict(true, 0, validationFallbackReasoning, "")
}

// InsightsFallback derives generic insights from the inputs alone.
func InsightsFallback(symptoms []string, prediction model.Prediction) []model.Insight {
	prevention := "Maintain good hygiene and adequate rest."
	if len(symptoms) > 0 {
		first := symptoms
		if len(first) > 3 {
			first = first[:3]
		}
		prevention = fmt.Sprintf("Based on your symptoms (%s), maintain good hygiene and adequate rest.", model.HumanSymptoms(first))
	}

	insights := []model.Insight{
		{Category: model.InsightPrevention, Text: prevention, ReliabilityScore: 0.85},
		{
			Category:         model.InsightMonitoring,
			Text:             "Monitor your condition. If symptoms persist beyond 3 days, visit the campus clinic.",
			ReliabilityScore: 0.90,
		},
	}

	if disease := strings.TrimSpace(prediction.PredictedDisease); disease != "" {
		score := prediction.ConfidenceScore
		if score <= 0 {
			score = 0.7
		}
		insights = append(insights, model.Insight{
			Category:         model.InsightMedicalAdvice,
			Text:             fmt.Sprintf("Predicted condition: %s. Please consult CPSU clinic staff for proper diagnosis.", disease),
			ReliabilityScore: score,
		})
	}
	return insights
}

// DiagnosisReplyFallback assembles a reply from the diagnosis fields without
// calling a provider.
func DiagnosisReplyFallback(d model.Diagnosis) string {
	var b strings.Builder

	if len(d.ExtractedSymptoms) > 0 {
		fmt.Fprintf(&b, "Thank you for sharing. Based on your symptoms (%s), ", model.HumanSymptoms(d.ExtractedSymptoms))
	} else {
		b.WriteString("Thank you for sharing. Based on what you described, ")
	}
	if d.PredictedDisease != "" {
		fmt.Fprintf(&b, "a possible condition is %s (%.0f%% confidence).", d.PredictedDisease, d.ConfidenceScore*100)
	} else {
		b.WriteString("we could not identify a likely condition.")
	}
	if d.Description != "" {
		b.WriteString(" " + d.Description)
	}
	if len(d.Precautions) > 0 {
		b.WriteString(" Recommended precautions: " + strings.Join(d.Precautions, "; ") + ".")
	}
	if d.IsCommunicable {
		b.WriteString(" This condition may be contagious, so please limit close contact with others.")
	}
	if d.Severity == model.SeveritySevere {
		b.WriteString(" Your symptoms sound severe. Please visit the CPSU campus clinic as soon as possible.")
	} else {
		b.WriteString(" If your symptoms get worse or last more than 3 days, please visit the CPSU campus clinic.")
	}
	b.WriteString(" This is not a final diagnosis. Please consult with our clinic staff for proper evaluation.")
	return b.String()
}
