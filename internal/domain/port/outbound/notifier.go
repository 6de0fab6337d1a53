package outbound

import "context"

// DiagnosisNotification tells clinic staff about a chat diagnosis that needs a look.
type DiagnosisNotification struct {
	RecordID         string
	StudentID        string
	SessionID        string
	PredictedDisease string
	Confidence       float64
	Severity         string
	Symptoms         []string
	IsCommunicable   bool
	ICD10Code        string
}

// Notifier sends notifications to clinic staff via messaging platforms.
type Notifier interface {
	NotifyDiagnosis(ctx context.Context, notification DiagnosisNotification) error
}
