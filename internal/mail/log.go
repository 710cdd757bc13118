package mail

import (
	"context"

	"github.com/google/uuid"

	"evently-backend/internal/logger"
)

type logGateway struct{}

// NewLogGateway returns a gateway that only logs messages. Used in development.
func NewLogGateway() Gateway {
	return logGateway{}
}

func (logGateway) Send(ctx context.Context, msg Message) (string, error) {
	id := "log-" + uuid.NewString()
	logger.InfoContext(ctx, "Email (log provider)", "to", msg.To, "subject", msg.Subject, "message_id", id)
	return id, nil
}
