package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/inbound"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
	"github.com/cpsu-health/clinicai/pkg/apierror"
	"github.com/cpsu-health/clinicai/pkg/version"
)

// StatusReader is what the staff endpoints need from the orchestrator.
type StatusReader interface {
	Providers() []inbound.ProviderStatus
	Usage(ctx context.Context, filter outbound.UsageFilter) ([]outbound.UsageSummary, error)
}

// Handler serves the portal's chat and AI endpoints.
type Handler struct {
	chat      inbound.ChatPort
	assistant inbound.AssistantPort
	status    StatusReader
	logger    *slog.Logger
}

func NewHandler(
	chat inbound.ChatPort,
	assistant inbound.AssistantPort,
	status StatusReader,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		chat:      chat,
		assistant: assistant,
		status:    status,
		logger:    logger,
	}
}

type startSessionRequest struct {
	StudentID string `json:"student_id"`
	Language  string `json:"language"`
}

type sessionResponse struct {
	SessionID       string     `json:"session_id"`
	StudentID       string     `json:"student_id,omitempty"`
	Language        string     `json:"language"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
}

func toSessionResponse(s model.ChatSession) sessionResponse {
	return sessionResponse{
		SessionID:       s.ID,
		StudentID:       s.StudentID,
		Language:        s.Language,
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		DurationSeconds: s.DurationSeconds,
	}
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := h.chat.StartSession(r.Context(), strings.TrimSpace(req.StudentID), strings.TrimSpace(req.Language))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

type messageRequest struct {
	SessionID string `json:"session_id"`
	StudentID string `json:"student_id"`
	Message   string `json:"message"`
	Language  string `json:"language"`
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.chat.HandleMessage(r.Context(), inbound.MessageRequest{
		SessionID: strings.TrimSpace(req.SessionID),
		StudentID: strings.TrimSpace(req.StudentID),
		Text:      req.Message,
		Language:  strings.TrimSpace(req.Language),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type endSessionRequest struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := h.chat.EndSession(r.Context(), strings.TrimSpace(req.SessionID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

type insightsRequest struct {
	Symptoms         []string `json:"symptoms"`
	PredictedDisease string   `json:"predicted_disease"`
	ConfidenceScore  float64  `json:"confidence_score"`
	ChatSummary      string   `json:"chat_summary"`
}

func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	var req insightsRequest
	if !decode(w, r, &req) {
		return
	}
	symptoms := model.CanonicalSymptoms(req.Symptoms)
	if len(symptoms) == 0 {
		apierror.Write(w, apierror.BadRequest("symptoms are required"))
		return
	}
	insights := h.assistant.Insights(r.Context(), symptoms, model.Prediction{
		PredictedDisease: strings.TrimSpace(req.PredictedDisease),
		ConfidenceScore:  model.Clamp(req.ConfidenceScore, 0, 1),
	}, req.ChatSummary)
	writeJSON(w, http.StatusOK, map[string]any{"insights": insights})
}

type validateRequest struct {
	Symptoms         []string `json:"symptoms"`
	PredictedDisease string   `json:"predicted_disease"`
	Confidence       float64  `json:"confidence"`
}

type validateResponse struct {
	model.ValidationVerdict
	AdjustedConfidence float64 `json:"adjusted_confidence"`
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decode(w, r, &req) {
		return
	}
	symptoms := model.CanonicalSymptoms(req.Symptoms)
	disease := strings.TrimSpace(req.PredictedDisease)
	if len(symptoms) == 0 || disease == "" {
		apierror.Write(w, apierror.BadRequest("symptoms and predicted_disease are required"))
		return
	}
	confidence := model.Clamp(req.Confidence, 0, 1)
	verdict := h.assistant.Validate(r.Context(), symptoms, disease, confidence)
	writeJSON(w, http.StatusOK, validateResponse{
		ValidationVerdict:  verdict,
		AdjustedConfidence: verdict.AdjustedConfidence(confidence),
	})
}

func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": h.status.Providers()})
}

// Usage serves provider usage counts, optionally filtered by ?operation= and
// ?since= (RFC 3339).
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	var filter outbound.UsageFilter
	if op := r.URL.Query().Get("operation"); op != "" {
		filter.Operation = model.Operation(op)
		if !knownOperation(filter.Operation) {
			apierror.Write(w, apierror.BadRequest("unknown operation"))
			return
		}
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			apierror.Write(w, apierror.WithDetail(http.StatusBadRequest, "invalid since", err.Error()))
			return
		}
		filter.Since = &t
	}

	usage, err := h.status.Usage(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if usage == nil {
		usage = []outbound.UsageSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"usage": usage})
}

// Health reports service liveness plus how many providers can take calls.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	available := 0
	for _, p := range h.status.Providers() {
		if p.Available {
			available++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"version":             version.Get(),
		"providers_available": available,
	})
}

func knownOperation(op model.Operation) bool {
	for _, known := range model.AllOperations {
		if op == known {
			return true
		}
	}
	return false
}

// fail maps domain errors onto API errors.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, inbound.ErrSessionRequired), errors.Is(err, inbound.ErrMessageRequired):
		apierror.Write(w, apierror.BadRequest(err.Error()))
	case errors.Is(err, inbound.ErrSessionNotFound):
		apierror.Write(w, apierror.NotFound("session"))
	case errors.Is(err, inbound.ErrSessionEnded):
		apierror.Write(w, apierror.Conflict(err.Error()))
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		apierror.Write(w, apierror.Internal("internal error"))
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		apierror.Write(w, apierror.WithDetail(http.StatusBadRequest, "invalid request body", err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
