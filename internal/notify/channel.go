package notify

import (
	"context"

	"go.uber.org/zap"
)

// Channel sends a rendered message to a recipient.
type Channel interface {
	Send(ctx context.Context, userID int64, text string) error
}

// LogChannel writes messages to the log instead of sending them.
type LogChannel struct {
	logger *zap.Logger
}

func NewLogChannel(logger *zap.Logger) *LogChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Send(ctx context.Context, userID int64, text string) error {
	c.logger.Info("dry-run notification", zap.Int64("user_id", userID), zap.String("text", text))
	return nil
}
