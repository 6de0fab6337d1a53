package notification

import (
	"context"
	"log/slog"

	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

// NoopNotifier logs notifications instead of sending them.
// Used in local development when Slack is not configured.
type NoopNotifier struct {
	logger *slog.Logger
}

var _ outbound.Notifier = (*NoopNotifier)(nil)

func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

func (n *NoopNotifier) NotifyDiagnosis(_ context.Context, notification outbound.DiagnosisNotification) error {
	n.logger.Info("noop: diagnosis notification",
		"record_id", notification.RecordID,
		"session_id", notification.SessionID,
		"predicted_disease", notification.PredictedDisease,
		"severity", notification.Severity,
		"communicable", notification.IsCommunicable,
	)
	return nil
}
