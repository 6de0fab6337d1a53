package model

import (
	"fmt"
	"time"
)

// ConversationTurnState marks a session that was asked clarifying questions
// and has not answered yet.
type ConversationTurnState struct {
	SessionID       string    `json:"session_id"`
	OriginalMessage string    `json:"original_message"`
	Symptoms        []string  `json:"symptoms"`
	AskedAt         time.Time `json:"asked_at"`
}

func NewConversationTurnState(sessionID, originalMessage string, symptoms []string) ConversationTurnState {
	return ConversationTurnState{
		SessionID:       sessionID,
		OriginalMessage: originalMessage,
		Symptoms:        CanonicalSymptoms(symptoms),
		AskedAt:         time.Now().UTC(),
	}
}

// EnrichedMessage folds the original complaint, the symptoms found so far and
// the student's answer into one prompt for re-extraction.
func (s ConversationTurnState) EnrichedMessage(answer string) string {
	return fmt.Sprintf(
		"Original complaint: %s. Symptoms identified: %s. Student's follow-up answer: %s",
		s.OriginalMessage, HumanSymptoms(s.Symptoms), answer,
	)
}

// ChatSession is one student's conversation with the assistant.
type ChatSession struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"student_id"`
	Language        string     `json:"language"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationSeconds int        `json:"duration_seconds"`
}

func NewChatSession(studentID, language string) ChatSession {
	if language == "" {
		language = "english"
	}
	return ChatSession{
		ID:        generateID(),
		StudentID: studentID,
		Language:  language,
		StartedAt: time.Now().UTC(),
	}
}

func (s ChatSession) Ended() bool {
	return s.EndedAt != nil
}

// End closes the session and records its whole-second duration.
func (s ChatSession) End(at time.Time) ChatSession {
	at = at.UTC()
	s.EndedAt = &at
	s.DurationSeconds = int(at.Sub(s.StartedAt).Seconds())
	if s.DurationSeconds < 0 {
		s.DurationSeconds = 0
	}
	return s
}
