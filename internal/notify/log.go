package notify

import (
	"context"
	"log/slog"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
)

// LogSink writes notifications to the log. Used when no notification
// service is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, n domain.Notification) error {
	s.logger.Info("notification",
		"notification_id", n.ID,
		"account_id", n.AccountID,
		"kind", n.Kind,
		"payload", string(n.Payload),
	)
	return nil
}
