package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/cpsu-health/clinicai/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// TurnStateStore holds the pending follow-up marker for each chat session.
// Get returns (nil, nil) when the session is idle.
type TurnStateStore interface {
	GetTurnState(ctx context.Context, sessionID string) (*model.ConversationTurnState, error)
	SetTurnState(ctx context.Context, state model.ConversationTurnState) error
	ClearTurnState(ctx context.Context, sessionID string) error
}

type ChatSessionRepository interface {
	Create(ctx context.Context, session model.ChatSession) (model.ChatSession, error)
	GetByID(ctx context.Context, id string) (model.ChatSession, error)
	Update(ctx context.Context, session model.ChatSession) (model.ChatSession, error)
}

type SymptomRecordRepository interface {
	Create(ctx context.Context, record model.SymptomRecord) (model.SymptomRecord, error)
	GetByID(ctx context.Context, id string) (model.SymptomRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.SymptomRecord, error)
}

type UsageFilter struct {
	Operation model.Operation
	Since     *time.Time
}

// UsageSummary counts events per provider and outcome for one operation.
type UsageSummary struct {
	Operation model.Operation    `json:"operation"`
	Provider  string             `json:"provider"`
	Outcome   model.EventOutcome `json:"outcome"`
	Count     int64              `json:"count"`
}

// UsageRecorder stores provider attempts for staff reporting.
type UsageRecorder interface {
	Record(ctx context.Context, event model.ProviderEvent) error
	Summarize(ctx context.Context, filter UsageFilter) ([]UsageSummary, error)
}
