package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes messages to a logger instead of delivering them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a LogNotifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "notification",
		"kind", msg.Kind,
		"to", msg.Recipients(),
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
	)
	n.logger.DebugContext(ctx, "notification body", "kind", msg.Kind, "body", msg.Body)
	return nil
}
