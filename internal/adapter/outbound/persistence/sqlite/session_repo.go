package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

// SessionRepo implements outbound.ChatSessionRepository using SQLite.
type SessionRepo struct {
	db *sql.DB
}

var _ outbound.ChatSessionRepository = (*SessionRepo)(nil)

func NewSessionRepo(store *Store) *SessionRepo {
	return &SessionRepo{db: store.DB}
}

// Create inserts a new chat session row.
func (r *SessionRepo) Create(ctx context.Context, s model.ChatSession) (model.ChatSession, error) {
	const q = `INSERT INTO chat_sessions
		(id, student_id, language, started_at, ended_at, duration_seconds)
		VALUES (?,?,?,?,?,?)`

	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.StudentID, s.Language,
		s.StartedAt.UTC(), nullTime(s.EndedAt), s.DurationSeconds,
	)
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("inserting chat session: %w", err)
	}
	return s, nil
}

// GetByID fetches a chat session, returning outbound.ErrNotFound when absent.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (model.ChatSession, error) {
	const q = `SELECT id, student_id, language, started_at, ended_at, duration_seconds
		FROM chat_sessions WHERE id = ?`

	var (
		s     model.ChatSession
		ended sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.StudentID, &s.Language, &s.StartedAt, &ended, &s.DurationSeconds,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ChatSession{}, fmt.Errorf("chat session %s: %w", id, outbound.ErrNotFound)
	}
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("fetching chat session: %w", err)
	}
	if ended.Valid {
		t := ended.Time.UTC()
		s.EndedAt = &t
	}
	s.StartedAt = s.StartedAt.UTC()
	return s, nil
}

// Update stores the mutable fields of a session.
func (r *SessionRepo) Update(ctx context.Context, s model.ChatSession) (model.ChatSession, error) {
	const q = `UPDATE chat_sessions SET language=?, ended_at=?, duration_seconds=? WHERE id=?`

	res, err := r.db.ExecContext(ctx, q, s.Language, nullTime(s.EndedAt), s.DurationSeconds, s.ID)
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("updating chat session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ChatSession{}, fmt.Errorf("chat session %s: %w", s.ID, outbound.ErrNotFound)
	}
	return s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
