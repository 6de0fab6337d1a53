package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

// TurnStateRepo implements outbound.TurnStateStore. A session with no row is
// idle.
type TurnStateRepo struct {
	db *sql.DB
}

var _ outbound.TurnStateStore = (*TurnStateRepo)(nil)

func NewTurnStateRepo(store *Store) *TurnStateRepo {
	return &TurnStateRepo{db: store.DB}
}

func (r *TurnStateRepo) GetTurnState(ctx context.Context, sessionID string) (*model.ConversationTurnState, error) {
	const q = `SELECT session_id, original_message, symptoms, asked_at
		FROM conversation_turn_states WHERE session_id = ?`

	var (
		s        model.ConversationTurnState
		symptoms string
	)
	err := r.db.QueryRowContext(ctx, q, sessionID).Scan(&s.SessionID, &s.OriginalMessage, &symptoms, &s.AskedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching turn state: %w", err)
	}
	if err := json.Unmarshal([]byte(symptoms), &s.Symptoms); err != nil {
		return nil, fmt.Errorf("decoding turn state symptoms: %w", err)
	}
	s.AskedAt = s.AskedAt.UTC()
	return &s, nil
}

// SetTurnState stores or replaces the pending state for a session.
func (r *TurnStateRepo) SetTurnState(ctx context.Context, s model.ConversationTurnState) error {
	symptoms, err := marshalList(s.Symptoms)
	if err != nil {
		return fmt.Errorf("marshaling turn state symptoms: %w", err)
	}

	const q = `INSERT INTO conversation_turn_states (session_id, original_message, symptoms, asked_at)
		VALUES (?,?,?,?)
		ON CONFLICT(session_id) DO UPDATE SET
			original_message = excluded.original_message,
			symptoms = excluded.symptoms,
			asked_at = excluded.asked_at`

	if _, err := r.db.ExecContext(ctx, q, s.SessionID, s.OriginalMessage, symptoms, s.AskedAt.UTC()); err != nil {
		return fmt.Errorf("storing turn state: %w", err)
	}
	return nil
}

func (r *TurnStateRepo) ClearTurnState(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM conversation_turn_states WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clearing turn state: %w", err)
	}
	return nil
}

// marshalList encodes a slice as a JSON column value, storing nil as "[]".
func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
