package mail

import (
	"context"
	"fmt"
	netmail "net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"evently-backend/internal/logger"
)

type sendGridGateway struct {
	client *sendgrid.Client
	from   *netmail.Address
}

func NewSendGridGateway(apiKey string, from *netmail.Address) Gateway {
	return &sendGridGateway{
		client: sendgrid.NewSendClient(apiKey),
		from:   from,
	}
}

func (g *sendGridGateway) Send(ctx context.Context, msg Message) (string, error) {
	message := sgmail.NewSingleEmail(
		sgmail.NewEmail(g.from.Name, g.from.Address),
		msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.To),
		msg.TextBody,
		msg.HTMLBody,
	)

	logger.ExternalServiceCall("sendgrid", "send", "to", msg.To)
	response, err := g.client.SendWithContext(ctx, message)
	if err != nil {
		logger.ExternalServiceResult("sendgrid", "send", err, "to", msg.To)
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		err := fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("sendgrid", "send", err, "to", msg.To)
		return "", err
	}
	logger.ExternalServiceResult("sendgrid", "send", nil, "to", msg.To, "status", response.StatusCode)

	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 && ids[0] != "" {
		return ids[0], nil
	}
	return "", ErrNoMessageID
}
