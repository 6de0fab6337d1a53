package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/inbound"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

// ChatRepositories groups the stores the chat service depends on.
type ChatRepositories struct {
	Sessions   outbound.ChatSessionRepository
	TurnStates outbound.TurnStateStore
	Records    outbound.SymptomRecordRepository
}

// ChatService drives student chat sessions, including the two-turn
// clarification protocol: a first message with symptoms may be answered with
// follow-up questions, and the next message is read as their answer.
type ChatService struct {
	assistant inbound.AssistantPort
	repos     ChatRepositories
	notifier  outbound.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

var _ inbound.ChatPort = (*ChatService)(nil)

func NewChatService(
	assistant inbound.AssistantPort,
	repos ChatRepositories,
	notifier outbound.Notifier,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		assistant: assistant,
		repos:     repos,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// StartSession opens a new chat session for a student.
func (c *ChatService) StartSession(ctx context.Context, studentID, language string) (model.ChatSession, error) {
	session, err := c.repos.Sessions.Create(ctx, model.NewChatSession(studentID, language))
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("create chat session: %w", err)
	}
	c.logger.Info("chat session started", "session_id", session.ID, "student_id", studentID, "language", session.Language)
	return session, nil
}

// EndSession closes a session and records its duration.
func (c *ChatService) EndSession(ctx context.Context, sessionID string) (model.ChatSession, error) {
	session, err := c.openSession(ctx, sessionID, "")
	if err != nil {
		return model.ChatSession{}, err
	}

	session = session.End(c.now())
	session, err = c.repos.Sessions.Update(ctx, session)
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("update chat session: %w", err)
	}
	if err := c.repos.TurnStates.ClearTurnState(ctx, sessionID); err != nil {
		c.logger.Warn("clearing turn state on session end", "session_id", sessionID, "error", err)
	}

	c.logger.Info("chat session ended", "session_id", sessionID, "duration_seconds", session.DurationSeconds)
	return session, nil
}

// HandleMessage answers one student message.
func (c *ChatService) HandleMessage(ctx context.Context, req inbound.MessageRequest) (inbound.MessageResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" && req.SessionID != "" {
		return inbound.MessageResponse{}, inbound.ErrMessageRequired
	}
	session, err := c.openSession(ctx, req.SessionID, req.StudentID)
	if err != nil {
		return inbound.MessageResponse{}, err
	}

	language := req.Language
	if language == "" {
		language = session.Language
	}

	var (
		diagnosis model.Diagnosis
		message   = text
	)
	if state := c.pendingFollowUp(ctx, session.ID); state != nil {
		c.clearTurnState(ctx, session.ID)
		message = state.EnrichedMessage(text)
		diagnosis = withStoredSymptoms(c.assistant.ExtractAndPredict(ctx, message), state.Symptoms)
		c.logger.Info("follow-up answer processed",
			"session_id", session.ID, "symptoms", diagnosis.ExtractedSymptoms, "predicted_disease", diagnosis.PredictedDisease)
	} else {
		diagnosis = c.assistant.ExtractAndPredict(ctx, text)
		if questions, ok := c.askFollowUp(ctx, session.ID, text, diagnosis); ok {
			return inbound.MessageResponse{
				Text:             questions,
				SessionID:        session.ID,
				AwaitingFollowUp: true,
			}, nil
		}
	}

	resp := inbound.MessageResponse{SessionID: session.ID}
	if diagnosis.HasPrediction() {
		resp.Text = c.assistant.DiagnosisReply(ctx, message, diagnosis)
	} else {
		resp.Text = c.assistant.Chat(ctx, text, inbound.ChatContext{Language: language, SessionID: session.ID})
	}
	if diagnosis.HasSymptoms {
		d := diagnosis
		resp.Diagnosis = &d
	}

	if diagnosis.HasPrediction() {
		studentID := session.StudentID
		if studentID == "" {
			studentID = req.StudentID
		}
		if record, ok := c.saveRecord(ctx, studentID, session.ID, diagnosis); ok {
			resp.RecordID = record.ID
			resp.DiagnosisSaved = true
		}
	}
	return resp, nil
}

// openSession loads a live session, mapping store misses to input errors.
func (c *ChatService) openSession(ctx context.Context, sessionID, studentID string) (model.ChatSession, error) {
	if sessionID == "" {
		return model.ChatSession{}, inbound.ErrSessionRequired
	}
	session, err := c.repos.Sessions.GetByID(ctx, sessionID)
	if errors.Is(err, outbound.ErrNotFound) {
		return model.ChatSession{}, inbound.ErrSessionNotFound
	}
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("get chat session: %w", err)
	}
	if studentID != "" && session.StudentID != "" && session.StudentID != studentID {
		return model.ChatSession{}, inbound.ErrSessionNotFound
	}
	if session.Ended() {
		return model.ChatSession{}, inbound.ErrSessionEnded
	}
	return session, nil
}

// pendingFollowUp returns the stored turn state, treating a store failure as Idle.
func (c *ChatService) pendingFollowUp(ctx context.Context, sessionID string) *model.ConversationTurnState {
	state, err := c.repos.TurnStates.GetTurnState(ctx, sessionID)
	if err != nil {
		c.logger.Warn("reading turn state, treating session as idle", "session_id", sessionID, "error", err)
		return nil
	}
	return state
}

func (c *ChatService) clearTurnState(ctx context.Context, sessionID string) {
	if err := c.repos.TurnStates.ClearTurnState(ctx, sessionID); err != nil {
		c.logger.Warn("clearing turn state", "session_id", sessionID, "error", err)
	}
}

// askFollowUp asks clarifying questions on a first symptom report. It only
// reports true once the pending state has been stored.
func (c *ChatService) askFollowUp(ctx context.Context, sessionID, text string, d model.Diagnosis) (string, bool) {
	if !d.HasSymptoms || len(d.ExtractedSymptoms) == 0 {
		return "", false
	}
	questions, ok := c.assistant.FollowUpQuestions(ctx, d.ExtractedSymptoms, text)
	if !ok {
		return "", false
	}
	state := model.NewConversationTurnState(sessionID, text, d.ExtractedSymptoms)
	if err := c.repos.TurnStates.SetTurnState(ctx, state); err != nil {
		c.logger.Warn("storing turn state, answering in a single turn", "session_id", sessionID, "error", err)
		return "", false
	}
	c.logger.Info("follow-up questions asked", "session_id", sessionID, "symptoms", state.Symptoms)
	return questions, true
}

// withStoredSymptoms makes the follow-up diagnosis a superset of the symptoms
// found on the first turn.
func withStoredSymptoms(d model.Diagnosis, stored []string) model.Diagnosis {
	if len(stored) == 0 {
		return d
	}
	d.ExtractedSymptoms = model.MergeSymptoms(stored, d.ExtractedSymptoms)
	d.HasSymptoms = true
	return d
}

func (c *ChatService) saveRecord(ctx context.Context, studentID, sessionID string, d model.Diagnosis) (model.SymptomRecord, bool) {
	record, err := c.repos.Records.Create(ctx, model.NewSymptomRecord(studentID, sessionID, d))
	if err != nil {
		c.logger.Error("saving symptom record", "session_id", sessionID, "error", err)
		return model.SymptomRecord{}, false
	}
	c.logger.Info("symptom record saved",
		"record_id", record.ID, "session_id", sessionID, "predicted_disease", record.PredictedDisease)

	if d.NeedsStaffAttention() {
		err := c.notifier.NotifyDiagnosis(ctx, outbound.DiagnosisNotification{
			RecordID:         record.ID,
			StudentID:        studentID,
			SessionID:        sessionID,
			PredictedDisease: d.PredictedDisease,
			Confidence:       d.ConfidenceScore,
			Severity:         string(d.Severity),
			Symptoms:         d.ExtractedSymptoms,
			IsCommunicable:   d.IsCommunicable,
			ICD10Code:        d.ICD10Code,
		})
		if err != nil {
			c.logger.Warn("notifying staff", "record_id", record.ID, "error", err)
		}
	}
	return record, true
}
