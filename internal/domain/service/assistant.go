package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/normalize"
	"github.com/cpsu-health/clinicai/internal/domain/port/inbound"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
	"github.com/cpsu-health/clinicai/internal/domain/prompt"
)

const (
	DefaultCallTimeout = 30 * time.Second
	tracerName         = "github.com/cpsu-health/clinicai/internal/domain/service"
)

// generation holds the sampling parameters used for one operation.
type generation struct {
	temperature float64
	maxTokens   int
}

var generations = map[model.Operation]generation{
	model.OperationChat:           {temperature: 0.6, maxTokens: 500},
	model.OperationValidate:       {temperature: 0.3, maxTokens: 500},
	model.OperationInsights:       {temperature: 0.5, maxTokens: 800},
	model.OperationExtract:        {temperature: 0.2, maxTokens: 800},
	model.OperationDiagnosisReply: {temperature: 0.6, maxTokens: 600},
	model.OperationFollowUp:       {temperature: 0.5, maxTokens: 300},
}

var errNoUsableContent = errors.New("no usable content")

// AssistantConfig tunes the orchestrator.
type AssistantConfig struct {
	CallTimeout time.Duration
	Priority    Priority
}

// Assistant runs each operation against its provider priority list and
// degrades to a deterministic fallback when every provider fails.
type Assistant struct {
	providers *Providers
	prompts   *prompt.Builder
	priority  Priority
	timeout   time.Duration
	usage     outbound.UsageRecorder
	tracer    trace.Tracer
	logger    *slog.Logger
}

var _ inbound.AssistantPort = (*Assistant)(nil)

// NewAssistant creates an Assistant. usage may be nil.
func NewAssistant(
	providers *Providers,
	prompts *prompt.Builder,
	cfg AssistantConfig,
	usage outbound.UsageRecorder,
	logger *slog.Logger,
) *Assistant {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Assistant{
		providers: providers,
		prompts:   prompts,
		priority:  DefaultPriority().Merge(cfg.Priority),
		timeout:   timeout,
		usage:     usage,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
}

// Providers returns the current availability of every known provider.
func (a *Assistant) Providers() []inbound.ProviderStatus {
	return a.providers.Status()
}

// Usage summarizes recorded provider events. It is empty when no recorder is
// configured.
func (a *Assistant) Usage(ctx context.Context, filter outbound.UsageFilter) ([]outbound.UsageSummary, error) {
	if a.usage == nil {
		return nil, nil
	}
	summary, err := a.usage.Summarize(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("summarize provider usage: %w", err)
	}
	return summary, nil
}

// Chat produces a free-form health reply.
func (a *Assistant) Chat(ctx context.Context, message string, chatCtx inbound.ChatContext) string {
	p, err := a.prompts.BuildChat(prompt.ChatInput{
		Message:  message,
		Language: chatCtx.Language,
		Summary:  chatCtx.Summary,
	})
	if err != nil {
		a.logger.Error("building chat prompt", "error", err)
		return ChatFallback
	}

	var reply string
	ok := a.attempt(ctx, model.OperationChat, p, func(raw string) error {
		reply = normalize.Text(raw)
		return nonEmpty(reply)
	})
	if !ok {
		return ChatFallback
	}
	return reply
}

type rawVerdict struct {
	AgreesWithML         *normalize.Bool  `json:"agrees_with_ml"`
	Agrees               *normalize.Bool  `json:"agrees"`
	ConfidenceBoost      *normalize.Float `json:"confidence_boost"`
	ConfidenceAdjustment *normalize.Float `json:"confidence_adjustment"`
	Reasoning            string           `json:"reasoning"`
	AlternativeDiagnosis *string          `json:"alternative_diagnosis"`
}

func (r rawVerdict) verdict() (model.ValidationVerdict, error) {
	agrees := r.AgreesWithML
	if agrees == nil {
		agrees = r.Agrees
	}
	if agrees == nil {
		return model.ValidationVerdict{}, errors.New("verdict has no agreement field")
	}
	var boost float64
	switch {
	case r.ConfidenceBoost != nil:
		boost = float64(*r.ConfidenceBoost)
	case r.ConfidenceAdjustment != nil:
		boost = float64(*r.ConfidenceAdjustment)
	}
	var alt string
	if r.AlternativeDiagnosis != nil {
		alt = *r.AlternativeDiagnosis
	}
	return model.NewValidationVerdict(bool(*agrees), boost, r.Reasoning, alt), nil
}

// Validate asks a provider to second-guess an ML prediction.
func (a *Assistant) Validate(ctx context.Context, symptoms []string, predictedDisease string, confidence float64) model.ValidationVerdict {
	p, err := a.prompts.BuildValidate(prompt.ValidateInput{
		Symptoms:   model.CanonicalSymptoms(symptoms),
		Disease:    predictedDisease,
		Confidence: confidence,
	})
	if err != nil {
		a.logger.Error("building validation prompt", "error", err)
		return ValidationFallback()
	}

	var verdict model.ValidationVerdict
	ok := a.attempt(ctx, model.OperationValidate, p, func(raw string) error {
		var r rawVerdict
		if err := normalize.Decode(raw, &r); err != nil {
			return err
		}
		v, err := r.verdict()
		if err != nil {
			return err
		}
		verdict = v
		return nil
	})
	if !ok {
		return ValidationFallback()
	}
	return verdict
}

type rawInsight struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

func decodeInsights(raw string) ([]rawInsight, error) {
	var items []rawInsight
	if err := normalize.Decode(raw, &items); err == nil {
		return items, nil
	}
	var wrapped struct {
		Insights []rawInsight `json:"insights"`
	}
	if err := normalize.Decode(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Insights, nil
}

// Insights generates up to three categorized health tips.
func (a *Assistant) Insights(ctx context.Context, symptoms []string, prediction model.Prediction, chatSummary string) []model.Insight {
	symptoms = model.CanonicalSymptoms(symptoms)
	p, err := a.prompts.BuildInsights(prompt.InsightsInput{
		Symptoms:   symptoms,
		Disease:    prediction.PredictedDisease,
		Confidence: prediction.ConfidenceScore,
		Summary:    chatSummary,
	})
	if err != nil {
		a.logger.Error("building insights prompt", "error", err)
		return InsightsFallback(symptoms, prediction)
	}

	var insights []model.Insight
	ok := a.attempt(ctx, model.OperationInsights, p, func(raw string) error {
		items, err := decodeInsights(raw)
		if err != nil {
			return err
		}
		insights = make([]model.Insight, 0, model.MaxInsights)
		for _, it := range items {
			text := strings.TrimSpace(it.Text)
			if text == "" {
				continue
			}
			category := strings.TrimSpace(it.Category)
			if category == "" {
				category = "General"
			}
			insights = append(insights, model.Insight{
				Category:         category,
				Text:             text,
				ReliabilityScore: model.Reliability(category, prediction.ConfidenceScore),
			})
			if len(insights) == model.MaxInsights {
				break
			}
		}
		if len(insights) == 0 {
			return errNoUsableContent
		}
		return nil
	})
	if !ok {
		return InsightsFallback(symptoms, prediction)
	}
	return insights
}

type rawPrediction struct {
	Disease    string          `json:"disease"`
	Confidence normalize.Float `json:"confidence"`
}

type rawDiagnosis struct {
	HasSymptoms       *normalize.Bool      `json:"has_symptoms"`
	ExtractedSymptoms normalize.StringList `json:"extracted_symptoms"`
	Symptoms          normalize.StringList `json:"symptoms"`
	PredictedDisease  string               `json:"predicted_disease"`
	ConfidenceScore   normalize.Float      `json:"confidence_score"`
	TopPredictions    []rawPrediction      `json:"top_predictions"`
	Description       string               `json:"description"`
	Precautions       normalize.StringList `json:"precautions"`
	Severity          string               `json:"severity"`
	DurationDays      normalize.Int        `json:"duration_days"`
	IsCommunicable    normalize.Bool       `json:"is_communicable"`
	IsAcute           *normalize.Bool      `json:"is_acute"`
	ICD10Code         string               `json:"icd10_code"`
}

func (r rawDiagnosis) diagnosis() model.Diagnosis {
	symptoms := []string(r.ExtractedSymptoms)
	if len(symptoms) == 0 {
		symptoms = r.Symptoms
	}
	hasSymptoms := len(symptoms) > 0
	if r.HasSymptoms != nil {
		hasSymptoms = bool(*r.HasSymptoms)
	}
	top := make([]model.DiseaseConfidence, 0, len(r.TopPredictions))
	for _, p := range r.TopPredictions {
		top = append(top, model.DiseaseConfidence{Disease: p.Disease, Confidence: p.Confidence.Fraction()})
	}
	acute := true
	if r.IsAcute != nil {
		acute = bool(*r.IsAcute)
	}
	return model.Diagnosis{
		HasSymptoms:       hasSymptoms,
		ExtractedSymptoms: symptoms,
		PredictedDisease:  r.PredictedDisease,
		ConfidenceScore:   r.ConfidenceScore.Fraction(),
		TopPredictions:    top,
		Description:       r.Description,
		Precautions:       r.Precautions,
		Severity:          model.Severity(r.Severity),
		DurationDays:      int(r.DurationDays),
		IsCommunicable:    bool(r.IsCommunicable),
		IsAcute:           acute,
		ICD10Code:         r.ICD10Code,
	}.Normalize()
}

// ExtractAndPredict pulls symptoms out of a free-text message and predicts a
// condition in the same provider call.
func (a *Assistant) ExtractAndPredict(ctx context.Context, message string) model.Diagnosis {
	if strings.TrimSpace(message) == "" {
		return model.NoSymptoms()
	}
	p, err := a.prompts.BuildExtract(message)
	if err != nil {
		a.logger.Error("building extraction prompt", "error", err)
		return model.NoSymptoms()
	}

	var diagnosis model.Diagnosis
	ok := a.attempt(ctx, model.OperationExtract, p, func(raw string) error {
		var r rawDiagnosis
		if err := normalize.Decode(raw, &r); err != nil {
			return err
		}
		diagnosis = r.diagnosis()
		return nil
	})
	if !ok {
		return model.NoSymptoms()
	}
	return diagnosis
}

// DiagnosisReply turns a structured diagnosis into a message for the student.
func (a *Assistant) DiagnosisReply(ctx context.Context, message string, diagnosis model.Diagnosis) string {
	p, err := a.prompts.BuildDiagnosisReply(prompt.DiagnosisReplyInput{Message: message, Diagnosis: diagnosis})
	if err != nil {
		a.logger.Error("building diagnosis reply prompt", "error", err)
		return DiagnosisReplyFallback(diagnosis)
	}

	var reply string
	ok := a.attempt(ctx, model.OperationDiagnosisReply, p, func(raw string) error {
		reply = normalize.Text(raw)
		return nonEmpty(reply)
	})
	if !ok {
		return DiagnosisReplyFallback(diagnosis)
	}
	return reply
}

// FollowUpQuestions asks for clarifying questions about a first complaint.
// The second result is false when no clarification is needed.
func (a *Assistant) FollowUpQuestions(ctx context.Context, symptoms []string, message string) (string, bool) {
	p, err := a.prompts.BuildFollowUp(prompt.FollowUpInput{Symptoms: model.CanonicalSymptoms(symptoms), Message: message})
	if err != nil {
		a.logger.Error("building follow-up prompt", "error", err)
		return "", false
	}

	var questions string
	ok := a.attempt(ctx, model.OperationFollowUp, p, func(raw string) error {
		questions = normalize.Text(raw)
		return nonEmpty(questions)
	})
	if !ok || noQuestions(questions) {
		return "", false
	}
	return questions, true
}

func noQuestions(text string) bool {
	return strings.EqualFold(strings.Trim(text, " .!\"'`"), "none")
}

func nonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errNoUsableContent
	}
	return nil
}

// attempt walks the priority list for op until accept takes a reply. It
// returns false when the caller should use its fallback.
func (a *Assistant) attempt(ctx context.Context, op model.Operation, p prompt.Prompt, accept func(raw string) error) bool {
	ctx, span := a.tracer.Start(ctx, "assistant."+string(op),
		trace.WithAttributes(attribute.String("llm.operation", string(op))))
	defer span.End()

	gen := generations[op]
	req := outbound.CompletionRequest{
		System:      p.System,
		User:        p.User,
		Temperature: gen.temperature,
		MaxTokens:   gen.maxTokens,
		Timeout:     a.timeout,
	}

	for _, id := range a.priority[op] {
		h, ok := a.providers.Get(id)
		if !ok || !h.Available() {
			continue
		}

		start := time.Now()
		err := a.try(ctx, h, req, accept)
		latency := time.Since(start)

		if err == nil {
			span.SetAttributes(attribute.String("llm.provider", string(id)))
			a.logger.Info("llm operation served",
				"operation", op, "provider", id, "model", h.Model(), "latency_ms", latency.Milliseconds())
			a.record(ctx, model.NewProviderEvent(op, string(id), model.OutcomeSuccess).WithLatency(latency))
			return true
		}

		reason := outbound.ReasonOf(err)
		span.AddEvent("provider failed", trace.WithAttributes(
			attribute.String("llm.provider", string(id)),
			attribute.String("llm.failure_reason", string(reason)),
		))
		a.logger.Warn("llm provider failed",
			"operation", op, "provider", id, "reason", reason, "latency_ms", latency.Milliseconds(), "error", err)
		a.record(ctx, model.NewProviderEvent(op, string(id), model.OutcomeFailure).
			WithReason(string(reason)).WithLatency(latency))

		if reason == outbound.ReasonGeoRestricted {
			h.Disable(err.Error())
			a.logger.Warn("llm provider disabled for the rest of the process", "provider", id, "reason", reason)
		}
		if ctx.Err() != nil {
			break
		}
	}

	span.SetAttributes(attribute.Bool("llm.fallback", true))
	span.SetStatus(codes.Error, "all providers failed")
	a.logger.Warn("llm operation fell back", "operation", op, "provider", "fallback")
	a.record(ctx, model.NewProviderEvent(op, "fallback", model.OutcomeFallback))
	return false
}

// try makes one bounded provider call and runs accept on a non-blank reply.
func (a *Assistant) try(ctx context.Context, h *ProviderHandle, req outbound.CompletionRequest, accept func(string) error) error {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := h.client.Complete(callCtx, req)
	if err != nil {
		var ce *outbound.CompletionError
		if !errors.As(err, &ce) {
			reason := outbound.ReasonNetwork
			if errors.Is(err, context.DeadlineExceeded) {
				reason = outbound.ReasonTimeout
			}
			err = &outbound.CompletionError{Provider: h.ID(), Reason: reason, Err: err}
		}
		return err
	}
	if strings.TrimSpace(raw) == "" {
		return &outbound.CompletionError{Provider: h.ID(), Reason: outbound.ReasonEmpty}
	}
	if err := accept(raw); err != nil {
		return &outbound.CompletionError{Provider: h.ID(), Reason: outbound.ReasonMalformed, Err: err}
	}
	return nil
}

func (a *Assistant) record(ctx context.Context, event model.ProviderEvent) {
	if a.usage == nil {
		return
	}
	if err := a.usage.Record(context.WithoutCancel(ctx), event); err != nil {
		a.logger.Debug("recording provider usage", "operation", event.Operation, "error", err)
	}
}
