package inbound

import (
	"context"
	"errors"

	"github.com/cpsu-health/clinicai/internal/domain/model"
)

var (
	ErrSessionRequired = errors.New("session_id is required")
	ErrMessageRequired = errors.New("message is required")
	ErrSessionNotFound = errors.New("invalid session_id")
	ErrSessionEnded    = errors.New("session already ended")
)

// ChatPort handles student chat sessions.
type ChatPort interface {
	StartSession(ctx context.Context, studentID, language string) (model.ChatSession, error)
	HandleMessage(ctx context.Context, req MessageRequest) (MessageResponse, error)
	EndSession(ctx context.Context, sessionID string) (model.ChatSession, error)
}

type MessageRequest struct {
	SessionID string
	StudentID string
	Text      string
	Language  string
}

type MessageResponse struct {
	Text             string           `json:"response"`
	SessionID        string           `json:"session_id"`
	AwaitingFollowUp bool             `json:"awaiting_followup"`
	Diagnosis        *model.Diagnosis `json:"diagnosis,omitempty"`
	RecordID         string           `json:"record_id,omitempty"`
	DiagnosisSaved   bool             `json:"diagnosis_saved"`
}
