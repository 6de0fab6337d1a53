package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cpsu-health/clinicai/internal/adapter/inbound/httpapi"
	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/inbound"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

// fakeChat records requests and returns canned results.
type fakeChat struct {
	mu       sync.Mutex
	messages []inbound.MessageRequest
	err      error
}

func (f *fakeChat) StartSession(_ context.Context, studentID, language string) (model.ChatSession, error) {
	if f.err != nil {
		return model.ChatSession{}, f.err
	}
	s := model.NewChatSession(studentID, language)
	s.ID = "sess-1"
	return s, nil
}

func (f *fakeChat) HandleMessage(_ context.Context, req inbound.MessageRequest) (inbound.MessageResponse, error) {
	f.mu.Lock()
	f.messages = append(f.messages, req)
	f.mu.Unlock()
	if f.err != nil {
		return inbound.MessageResponse{}, f.err
	}
	return inbound.MessageResponse{Text: "How long have you had the cough?", SessionID: req.SessionID, AwaitingFollowUp: true}, nil
}

func (f *fakeChat) EndSession(_ context.Context, sessionID string) (model.ChatSession, error) {
	if f.err != nil {
		return model.ChatSession{}, f.err
	}
	s := model.NewChatSession("2021-0001", "")
	s.ID = sessionID
	return s.End(s.StartedAt.Add(time.Minute)), nil
}

var _ inbound.ChatPort = (*fakeChat)(nil)

// fakeAssistant answers every operation with fixed values.
type fakeAssistant struct {
	lastConfidence float64
	lastSymptoms   []string
}

func (f *fakeAssistant) Chat(context.Context, string, inbound.ChatContext) string { return "hello" }

func (f *fakeAssistant) Validate(_ context.Context, symptoms []string, _ string, confidence float64) model.ValidationVerdict {
	f.lastSymptoms = symptoms
	f.lastConfidence = confidence
	return model.NewValidationVerdict(true, 0.1, "consistent", "")
}

func (f *fakeAssistant) Insights(_ context.Context, symptoms []string, p model.Prediction, _ string) []model.Insight {
	f.lastSymptoms = symptoms
	return []model.Insight{{Category: model.InsightPrevention, Text: "Rest", ReliabilityScore: 0.85}}
}

func (f *fakeAssistant) ExtractAndPredict(context.Context, string) model.Diagnosis {
	return model.NoSymptoms()
}

func (f *fakeAssistant) DiagnosisReply(context.Context, string, model.Diagnosis) string { return "" }

func (f *fakeAssistant) FollowUpQuestions(context.Context, []string, string) (string, bool) {
	return "", false
}

var _ inbound.AssistantPort = (*fakeAssistant)(nil)

type fakeStatus struct {
	filter outbound.UsageFilter
	err    error
}

func (f *fakeStatus) Providers() []inbound.ProviderStatus {
	return []inbound.ProviderStatus{
		{Provider: model.ProviderCohere, Model: "command-r", Available: true},
		{Provider: model.ProviderGemini, Available: false, Reason: "not configured"},
	}
}

func (f *fakeStatus) Usage(_ context.Context, filter outbound.UsageFilter) ([]outbound.UsageSummary, error) {
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return []outbound.UsageSummary{{Operation: model.OperationChat, Provider: "cohere", Outcome: model.OutcomeSuccess, Count: 4}}, nil
}

type fixture struct {
	chat      *fakeChat
	assistant *fakeAssistant
	status    *fakeStatus
	handler   http.Handler
}

func newFixture(t *testing.T, apiKey string) fixture {
	t.Helper()
	f := fixture{chat: &fakeChat{}, assistant: &fakeAssistant{}, status: &fakeStatus{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := httpapi.NewHandler(f.chat, f.assistant, f.status, logger)
	f.handler = httpapi.NewServer(httpapi.ServerConfig{APIKey: apiKey, RequestsPerMinute: 100}, h, logger).Routes()
	return f
}

func (f fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decoding %s response: %v (%s)", path, err, rec.Body.String())
		}
	}
	return rec, out
}

func TestHandler_StartSession(t *testing.T) {
	f := newFixture(t, "")
	rec, body := f.do(t, http.MethodPost, "/api/chat/start", `{"student_id": "2021-0001", "language": "tagalog"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["session_id"] != "sess-1" || body["language"] != "tagalog" {
		t.Errorf("body = %v", body)
	}
}

func TestHandler_SendMessage(t *testing.T) {
	f := newFixture(t, "")
	rec, body := f.do(t, http.MethodPost, "/api/chat/message", `{"session_id": " sess-1 ", "message": "I have a cough"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["awaiting_followup"] != true || body["response"] == "" {
		t.Errorf("body = %v", body)
	}
	if len(f.chat.messages) != 1 || f.chat.messages[0].SessionID != "sess-1" || f.chat.messages[0].Text != "I have a cough" {
		t.Errorf("forwarded = %+v", f.chat.messages)
	}
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{inbound.ErrSessionRequired, http.StatusBadRequest},
		{inbound.ErrMessageRequired, http.StatusBadRequest},
		{inbound.ErrSessionNotFound, http.StatusNotFound},
		{inbound.ErrSessionEnded, http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			f := newFixture(t, "")
			f.chat.err = tt.err
			rec, body := f.do(t, http.MethodPost, "/api/chat/message", `{"session_id": "x", "message": "hi"}`)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if body["error"] == nil {
				t.Errorf("expected error body, got %v", body)
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "disk full") {
				t.Error("internal error details leaked")
			}
		})
	}
}

func TestHandler_InvalidJSON(t *testing.T) {
	f := newFixture(t, "")
	rec, _ := f.do(t, http.MethodPost, "/api/chat/start", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandler_EndSession(t *testing.T) {
	f := newFixture(t, "")
	rec, body := f.do(t, http.MethodPost, "/api/chat/end", `{"session_id": "sess-9"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["session_id"] != "sess-9" || body["duration_seconds"] != float64(60) || body["ended_at"] == nil {
		t.Errorf("body = %v", body)
	}
}

func TestHandler_Validate(t *testing.T) {
	f := newFixture(t, "")
	rec, body := f.do(t, http.MethodPost, "/api/ai/validate",
		`{"symptoms": ["Cough", "fever"], "predicted_disease": "Influenza", "confidence": 1.4}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["agrees_with_ml"] != true || body["adjusted_confidence"] != float64(1) {
		t.Errorf("body = %v", body)
	}
	if f.assistant.lastConfidence != 1 || f.assistant.lastSymptoms[0] != "cough" {
		t.Errorf("inputs not normalized: %v %v", f.assistant.lastConfidence, f.assistant.lastSymptoms)
	}

	rec, _ = f.do(t, http.MethodPost, "/api/ai/validate", `{"symptoms": [], "predicted_disease": "Influenza"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty symptoms: status = %d", rec.Code)
	}
}

func TestHandler_Insights(t *testing.T) {
	f := newFixture(t, "")
	rec, body := f.do(t, http.MethodPost, "/api/chat/insights",
		`{"symptoms": ["headache"], "predicted_disease": "Migraine", "confidence_score": 0.7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	insights, _ := body["insights"].([]any)
	if len(insights) != 1 {
		t.Errorf("insights = %v", body["insights"])
	}

	rec, _ = f.do(t, http.MethodPost, "/api/chat/insights", `{"symptoms": []}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty symptoms: status = %d", rec.Code)
	}
}

func TestHandler_ProvidersAndHealth(t *testing.T) {
	f := newFixture(t, "")
	rec, body := f.do(t, http.MethodGet, "/api/ai/providers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if providers, _ := body["providers"].([]any); len(providers) != 2 {
		t.Errorf("providers = %v", body["providers"])
	}

	rec, body = f.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || body["providers_available"] != float64(1) {
		t.Errorf("health = %d %v", rec.Code, body)
	}
}

func TestHandler_Usage(t *testing.T) {
	f := newFixture(t, "")
	rec, body := f.do(t, http.MethodGet, "/api/ai/usage?operation=chat&since=2026-01-01T00:00:00Z", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if usage, _ := body["usage"].([]any); len(usage) != 1 {
		t.Errorf("usage = %v", body["usage"])
	}
	if f.status.filter.Operation != model.OperationChat || f.status.filter.Since == nil {
		t.Errorf("filter = %+v", f.status.filter)
	}

	for _, q := range []string{"operation=translate", "since=yesterday"} {
		rec, _ := f.do(t, http.MethodGet, "/api/ai/usage?"+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", q, rec.Code)
		}
	}
}

func TestHandler_APIKeyRequired(t *testing.T) {
	f := newFixture(t, "portal-key")

	rec, _ := f.do(t, http.MethodGet, "/api/ai/providers", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without key: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/ai/providers", nil)
	req.Header.Set("Authorization", "Bearer portal-key")
	ok := httptest.NewRecorder()
	f.handler.ServeHTTP(ok, req)
	if ok.Code != http.StatusOK {
		t.Errorf("with key: status = %d", ok.Code)
	}

	if rec, _ := f.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("/health must stay open: status = %d", rec.Code)
	}
}
