package inbound

import (
	"context"

	"github.com/cpsu-health/clinicai/internal/domain/model"
)

// ChatContext carries optional hints for a free-form chat reply.
type ChatContext struct {
	Language  string
	SessionID string
	Summary   string
}

// AssistantPort exposes the orchestrated LLM operations. None of them fail:
// each degrades to a documented fallback value when no provider answers.
type AssistantPort interface {
	Chat(ctx context.Context, message string, chatCtx ChatContext) string
	Validate(ctx context.Context, symptoms []string, predictedDisease string, confidence float64) model.ValidationVerdict
	Insights(ctx context.Context, symptoms []string, prediction model.Prediction, chatSummary string) []model.Insight
	ExtractAndPredict(ctx context.Context, message string) model.Diagnosis
	DiagnosisReply(ctx context.Context, message string, diagnosis model.Diagnosis) string
	FollowUpQuestions(ctx context.Context, symptoms []string, message string) (string, bool)
}

// ProviderStatus reports whether a provider is currently eligible for calls.
type ProviderStatus struct {
	Provider  model.ProviderID `json:"provider"`
	Model     string           `json:"model"`
	Available bool             `json:"available"`
	Reason    string           `json:"reason,omitempty"`
}
