package notify

import (
	"context"
	"log/slog"

	"github.com/dukerupert/adoptrack/internal/model"
)

// LogGateway writes every message to the logger instead of sending it. It is
// the default channel for local runs.
type LogGateway struct {
	logger *slog.Logger
}

func NewLogGateway(logger *slog.Logger) *LogGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogGateway{logger: logger}
}

func (g *LogGateway) SendToUser(ctx context.Context, user model.User, text string, priority Priority) error {
	g.logger.InfoContext(ctx, "notification",
		"user_id", user.ID,
		"priority", priority.String(),
		"text", text,
	)
	return nil
}
