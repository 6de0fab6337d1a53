package model

import "time"

// FollowUpDelay is how long after a chat diagnosis the clinic checks back in.
const FollowUpDelay = 3 * 24 * time.Hour

// SymptomRecord is the persisted form of a chat diagnosis.
type SymptomRecord struct {
	ID               string              `json:"id"`
	StudentID        string              `json:"student_id"`
	SessionID        string              `json:"session_id"`
	Symptoms         []string            `json:"symptoms"`
	DurationDays     int                 `json:"duration_days"`
	Severity         int                 `json:"severity"`
	PredictedDisease string              `json:"predicted_disease"`
	ConfidenceScore  float64             `json:"confidence_score"`
	TopPredictions   []DiseaseConfidence `json:"top_predictions"`
	IsCommunicable   bool                `json:"is_communicable"`
	IsAcute          bool                `json:"is_acute"`
	ICD10Code        string              `json:"icd10_code"`
	FollowUpDue      time.Time           `json:"follow_up_due"`
	CreatedAt        time.Time           `json:"created_at"`
}

func NewSymptomRecord(studentID, sessionID string, d Diagnosis) SymptomRecord {
	now := time.Now().UTC()
	return SymptomRecord{
		ID:               generateID(),
		StudentID:        studentID,
		SessionID:        sessionID,
		Symptoms:         d.ExtractedSymptoms,
		DurationDays:     d.DurationDays,
		Severity:         d.Severity.Level(),
		PredictedDisease: d.PredictedDisease,
		ConfidenceScore:  d.ConfidenceScore,
		TopPredictions:   d.TopPredictions,
		IsCommunicable:   d.IsCommunicable,
		IsAcute:          d.IsAcute,
		ICD10Code:        d.ICD10Code,
		FollowUpDue:      now.Add(FollowUpDelay),
		CreatedAt:        now,
	}
}
