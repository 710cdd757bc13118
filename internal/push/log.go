package push

import (
	"context"

	"github.com/google/uuid"

	"evently-backend/internal/logger"
)

type logSender struct{}

func NewLogSender() Sender {
	return logSender{}
}

func (logSender) Send(ctx context.Context, n Notification) (string, error) {
	if n.DeviceToken == "" {
		return "", ErrNoDeviceToken
	}
	id := "log-" + uuid.NewString()
	logger.InfoContext(ctx, "Push notification (log provider)", "title", n.Title, "body", n.Body, "message_id", id)
	return id, nil
}
