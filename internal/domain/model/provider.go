package model

import "time"

type ProviderID string

const (
	ProviderCohere     ProviderID = "cohere"
	ProviderOpenRouter ProviderID = "openrouter"
	ProviderGroq       ProviderID = "groq"
	ProviderGemini     ProviderID = "gemini"
)

// AllProviders lists every known provider.
var AllProviders = []ProviderID{ProviderCohere, ProviderOpenRouter, ProviderGroq, ProviderGemini}

func (p ProviderID) Known() bool {
	for _, k := range AllProviders {
		if p == k {
			return true
		}
	}
	return false
}

type Operation string

const (
	OperationChat           Operation = "chat"
	OperationValidate       Operation = "validate"
	OperationInsights       Operation = "insights"
	OperationExtract        Operation = "extract"
	OperationDiagnosisReply Operation = "diagnosis_reply"
	OperationFollowUp       Operation = "follow_up"
)

var AllOperations = []Operation{
	OperationChat, OperationValidate, OperationInsights,
	OperationExtract, OperationDiagnosisReply, OperationFollowUp,
}

type EventOutcome string

const (
	OutcomeSuccess  EventOutcome = "success"
	OutcomeFailure  EventOutcome = "failure"
	OutcomeFallback EventOutcome = "fallback"
)

// ProviderEvent records one provider attempt, or the fallback, for an operation.
type ProviderEvent struct {
	ID        string       `json:"id"`
	Operation Operation    `json:"operation"`
	Provider  string       `json:"provider"`
	Outcome   EventOutcome `json:"outcome"`
	Reason    string       `json:"reason,omitempty"`
	LatencyMs int64        `json:"latency_ms"`
	CreatedAt time.Time    `json:"created_at"`
}

func NewProviderEvent(op Operation, provider string, outcome EventOutcome) ProviderEvent {
	return ProviderEvent{
		ID:        generateID(),
		Operation: op,
		Provider:  provider,
		Outcome:   outcome,
		CreatedAt: time.Now().UTC(),
	}
}

func (e ProviderEvent) WithReason(reason string) ProviderEvent {
	e.Reason = reason
	return e
}

func (e ProviderEvent) WithLatency(d time.Duration) ProviderEvent {
	e.LatencyMs = d.Milliseconds()
	return e
}
